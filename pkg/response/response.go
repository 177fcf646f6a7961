// Package response writes the {success, data, error} JSON envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talentdesk/backend/pkg/apperr"
)

// Body is the envelope every endpoint answers with.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Deletion is the data of a successful delete.
type Deletion struct {
	ID      interface{} `json:"id"`
	Deleted bool        `json:"deleted"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Error: msg})
}

// OK sends 200 with data.
func OK(c *gin.Context, data interface{}) { ok(c, http.StatusOK, data) }

// Created sends 201 with the new resource.
func Created(c *gin.Context, data interface{}) { ok(c, http.StatusCreated, data) }

// Deleted sends 200 with {id, deleted: true}.
func Deleted(c *gin.Context, id interface{}) {
	ok(c, http.StatusOK, Deletion{ID: id, Deleted: true})
}

// NoContent sends 204 and flushes the header, since there is no body to do it.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
	c.Writer.WriteHeaderNow()
}

func BadRequest(c *gin.Context, msg string)      { fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string)    { fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string)       { fail(c, http.StatusForbidden, msg) }
func TooManyRequests(c *gin.Context, msg string) { fail(c, http.StatusTooManyRequests, msg) }
func Internal(c *gin.Context, msg string)        { fail(c, http.StatusInternalServerError, msg) }

// Error sends the status mapped from err's kind with its client-visible message.
// Errors that are not *apperr.Error become a 500 carrying err's text.
func Error(c *gin.Context, err error) {
	fail(c, apperr.HTTPStatus(err), apperr.Message(err))
}
