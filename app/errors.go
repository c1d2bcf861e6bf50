package app

import (
	"errors"
	"fmt"
	"net/http"

	"equipment_lending/lending"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[string]int{
	"validation":                 http.StatusBadRequest,
	"invalid_quantity":           http.StatusBadRequest,
	"invalid_quantity_reduction": http.StatusBadRequest,
	"invalid_transition":         http.StatusConflict,
	"insufficient_availability":  http.StatusConflict,
	"forbidden":                  http.StatusForbidden,
	"not_found":                  http.StatusNotFound,
	"has_active_requests":        http.StatusConflict,
	"conflict":                   http.StatusConflict,
	"unauthorized":               http.StatusUnauthorized,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if code, ok := statusByKind[lending.Kind(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Fail aborts the request with the JSON error envelope. Internal errors are
// logged and not echoed to the client.
func Fail(c *gin.Context, err error) {
	code := StatusFor(err)
	kind := lending.Kind(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		kind, msg = "internal", "internal server error"
	}
	c.AbortWithStatusJSON(code, H{
		"status":  code,
		"error":   kind,
		"message": msg,
		"path":    c.Request.URL.Path,
	})
}

// BadRequest reports a malformed body or parameter as a validation error.
func BadRequest(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("bad request")
	}
	Fail(c, fmt.Errorf("%w: %v", lending.ErrValidation, err))
}
