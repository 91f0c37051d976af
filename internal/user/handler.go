package user

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/token"
)

// CookieConfig controls the session cookie. Secure also switches SameSite
// to None so that the cross-site frontend keeps sending it.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// Handler exposes HTTP endpoints for the auth flows.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
	cookie CookieConfig
}

func NewHandler(svc *UserService, cookie CookieConfig, logger *zap.SugaredLogger) *Handler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = token.DefaultTTL
	}
	return &Handler{svc: svc, logger: logger, cookie: cookie}
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetOTPRequest struct {
	Email string `json:"email"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type VerifyEmailRequest struct {
	OTP string `json:"otp"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, "register failed", err)
		return
	}
	h.setCookie(w, res.Token)
	h.writeJSON(w, http.StatusCreated, response{Success: true, Token: res.Token, Data: res.User})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "login failed", err)
		return
	}
	h.setCookie(w, res.Token)
	h.writeJSON(w, http.StatusOK, response{Success: true, Token: res.Token, Data: res.User})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), token.FromRequest(r))
	http.SetCookie(w, h.cookieFor("", -1))
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Logged out successfully."})
}

func (h *Handler) SendResetOTP(w http.ResponseWriter, r *http.Request) {
	var req ResetOTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, "send reset otp failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Reset OTP sent successfully."})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		h.writeError(w, "change password failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Password reset successfully."})
}

// SendVerificationOTP and the handlers below run behind RequireAuth.
func (h *Handler) SendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RequestEmailVerification(r.Context(), token.SubjectFrom(r.Context())); err != nil {
		h.writeError(w, "send verification otp failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Verification email sent successfully."})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ConfirmEmailVerification(r.Context(), token.SubjectFrom(r.Context()), req.OTP); err != nil {
		h.writeError(w, "verify email failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "Email verified successfully."})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetUser(r.Context(), token.SubjectFrom(r.Context()))
	if err != nil {
		h.writeError(w, "get user failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Data: view})
}

func (h *Handler) IsAuth(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.WhoAmI(r.Context(), token.FromRequest(r))
	if err != nil {
		h.writeError(w, "is-auth failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response{Success: true, Message: "User is authenticated.", Data: view})
}

func (h *Handler) cookieFor(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     token.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cookie.Secure {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func (h *Handler) setCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, h.cookieFor(value, int(h.cookie.MaxAge/time.Second)))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, response{Message: "Invalid request body."})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status, text := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw(msg, "err", err)
	} else {
		h.logger.Debugw(msg, "err", err)
	}
	h.writeJSON(w, status, response{Message: text})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
