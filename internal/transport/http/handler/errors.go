package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/auirah-api/internal/domain"
)

const serverErrorMessage = "Server Error"

// httpError maps a service error onto a status code and a client-safe body.
// Only PublicError and ValidationError messages reach the client; anything
// else is logged and reported generically.
func httpError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationEnvelope{Message: ve.Message, Errors: ve.Fields})
		return
	}
	var te *domain.ThrottledError
	if errors.As(err, &te) {
		w.Header().Set("Retry-After", strconv.Itoa(te.RetryAfterSeconds()))
		writeError(w, http.StatusTooManyRequests, te.Error())
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, status, serverErrorMessage)
		return
	}
	var pe *domain.PublicError
	if errors.As(err, &pe) {
		writeError(w, status, pe.Message)
		return
	}
	writeError(w, status, http.StatusText(status))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrOTPExpired), errors.Is(err, domain.ErrOTPInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOTPTooManyAttempts), errors.Is(err, domain.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
