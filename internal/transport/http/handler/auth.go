package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/auirah-api/internal/application/otp"
	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/transport/http/middleware"
)

type otpRequestBody struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type otpVerifyBody struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Code       string `json:"code" validate:"required,len=6,numeric"`
	DeviceName string `json:"device_name" validate:"omitempty,max=255"`
}

type tokenRevoker interface {
	Logout(ctx context.Context, tokenID string) error
}

// AuthHandler serves the passcode login flow and the caller's own session.
type AuthHandler struct {
	otp      otp.Service
	sessions tokenRevoker
}

func NewAuthHandler(otpSvc otp.Service, sessions tokenRevoker) *AuthHandler {
	return &AuthHandler{otp: otpSvc, sessions: sessions}
}

func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var body otpRequestBody
	if !decodeAndValidate(w, r, &body) {
		return
	}
	ch, err := h.otp.Request(r.Context(), otp.RequestInput{Email: body.Email, ClientIP: middleware.ClientIP(r)})
	if err != nil {
		otpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPRequestEnvelope{
		Message:   otp.MsgIssued,
		ExpiresAt: ch.ExpiresAt,
		DemoCode:  ch.DemoCode,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body otpVerifyBody
	if !decodeAndValidate(w, r, &body) {
		return
	}
	login, err := h.otp.Verify(r.Context(), otp.VerifyInput{
		Email:      body.Email,
		Code:       body.Code,
		DeviceName: strings.TrimSpace(body.DeviceName),
	})
	if err != nil {
		otpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginEnvelope{
		Token:     login.Token,
		TokenType: "Bearer",
		Abilities: login.Abilities,
		User:      toUserResource(login.User),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DataEnvelope{Data: toUserResource(p.User)})
}

// Logout revokes only the token used for this call.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Logout(r.Context(), p.Token.TokenID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Signed out successfully."})
}

// otpError reports an unknown address as a validation failure on the email field.
func otpError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		httpError(w, domain.FieldError("email", otp.MsgUnknownEmail))
		return
	}
	httpError(w, err)
}
