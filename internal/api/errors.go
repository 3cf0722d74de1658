package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"futures-trading-engine/internal/errs"
)

// writeError maps the error taxonomy onto HTTP statuses and emits the
// structured {kind, message, code} envelope the UI consumes.
func writeError(c *gin.Context, err error) {
	kind := errs.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case errs.ValidationFailed, errs.InvalidQuantity, errs.NoData:
		status = http.StatusBadRequest
	case errs.NotConfigured:
		status = http.StatusPreconditionFailed
	case errs.NotFound:
		status = http.StatusNotFound
	case errs.NotActive:
		status = http.StatusConflict
	case errs.ExchangeRejected, errs.Network:
		status = http.StatusBadGateway
	}

	body := gin.H{"kind": string(kind), "message": err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		body["message"] = e.Message
		if e.Code != 0 {
			body["code"] = e.Code
		}
	}
	c.JSON(status, body)
}
