package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reservation-api/internal/apperr"
	"github.com/sirupsen/logrus"
)

// httpError maps an error kind to its HTTP status. Storage failures are
// logged here and reach the client only as a generic message.
func httpError(log logrus.FieldLogger, err error) error {
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}

	msg := apperr.MessageOf(err)
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		return huma.Error400BadRequest(msg)
	case apperr.KindNotFound:
		return huma.Error404NotFound(msg)
	case apperr.KindConflict, apperr.KindInvalidState:
		return huma.Error409Conflict(msg)
	case apperr.KindForbidden:
		return huma.Error403Forbidden(msg)
	default:
		log.WithError(err).Error("request failed")
		return huma.Error503ServiceUnavailable(msg)
	}
}
