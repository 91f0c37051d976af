package user

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/token"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, fn http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, r)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func post(path, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func newTestHandler(t *testing.T, secure bool) (*Handler, *fixture) {
	f := newFixture(t)
	return NewHandler(f.svc, CookieConfig{Secure: secure}, zap.NewNop().Sugar()), f
}

func TestHandlerRegisterSetsCookie(t *testing.T) {
	h, _ := newTestHandler(t, false)

	w, env := doJSON(t, h.Register, post("/api/v1/auth/register", `{"name":"Alice","email":"ALICE@x.com","password":"secret1"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Token)
	assert.Contains(t, string(env.Data), `"email":"alice@x.com"`)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.Equal(t, env.Token, c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 7*24*60*60, c.MaxAge)

	w, env = doJSON(t, h.Register, post("/api/v1/auth/register", `{"name":"Alice","email":"alice@x.com","password":"secret1"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "User already exists.", env.Message)
}

func TestHandlerLogin(t *testing.T) {
	h, f := newTestHandler(t, true)
	f.register(t)

	w, env := doJSON(t, h.Login, post("/api/v1/auth/login", `{"email":"alice@x.com","password":"secret1"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Token)
	c := w.Result().Cookies()[0]
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)

	w, env = doJSON(t, h.Login, post("/api/v1/auth/login", `{"email":"alice@x.com","password":"nope123"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials.", env.Message)

	w, env = doJSON(t, h.Login, post("/api/v1/auth/login", `{"email":"bob@x.com","password":"secret1"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found.", env.Message)

	w, env = doJSON(t, h.Login, post("/api/v1/auth/login", `{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body.", env.Message)
}

func TestHandlerLogoutClearsCookie(t *testing.T) {
	h, _ := newTestHandler(t, false)
	w, env := doJSON(t, h.Logout, post("/api/v1/auth/logout", ``))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully.", env.Message)
	c := w.Result().Cookies()[0]
	assert.Equal(t, "", c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestHandlerResetFlow(t *testing.T) {
	h, f := newTestHandler(t, false)
	f.register(t)

	w, env := doJSON(t, h.SendResetOTP, post("/api/v1/auth/send-reset-otp", `{"email":"alice@x.com"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Reset OTP sent successfully.", env.Message)
	code := f.mailer.lastCode(t)

	w, env = doJSON(t, h.ChangePassword, post("/api/v1/auth/change-password", `{"email":"alice@x.com","otp":"`+code+`","newPassword":"newpass1"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password reset successfully.", env.Message)

	w, env = doJSON(t, h.ChangePassword, post("/api/v1/auth/change-password", `{"email":"alice@x.com","otp":"`+code+`","newPassword":"newpass1"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid OTP.", env.Message)
}

func TestHandlerResetMailFailure(t *testing.T) {
	h, f := newTestHandler(t, false)
	f.register(t)
	f.mailer.err = assert.AnError

	w, env := doJSON(t, h.SendResetOTP, post("/api/v1/auth/send-reset-otp", `{"email":"alice@x.com"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to send reset OTP to email.", env.Message)
}

func TestHandlerVerifyAndIsAuth(t *testing.T) {
	h, f := newTestHandler(t, false)
	res := f.register(t)
	authed := func(r *http.Request) *http.Request {
		return r.WithContext(token.WithClaims(r.Context(), res.Claims))
	}

	w, env := doJSON(t, h.SendVerificationOTP, authed(post("/api/v1/auth/send-verification-email-otp", ``)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Verification email sent successfully.", env.Message)
	code := f.mailer.lastCode(t)

	w, env = doJSON(t, h.VerifyEmail, authed(post("/api/v1/auth/verify-email", `{"otp":"`+code+`"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email verified successfully.", env.Message)

	w, env = doJSON(t, h.VerifyEmail, authed(post("/api/v1/auth/verify-email", `{"otp":"`+code+`"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already verified.", env.Message)

	w, env = doJSON(t, h.GetUser, authed(httptest.NewRequest(http.MethodGet, "/api/v1/auth/get-user", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"isAccountVerified":true`)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/auth/is-auth", nil)
	r.AddCookie(&http.Cookie{Name: token.CookieName, Value: res.Token})
	w, env = doJSON(t, h.IsAuth, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User is authenticated.", env.Message)
	assert.Contains(t, string(env.Data), `"id":"`+res.User.ID+`"`)

	w, env = doJSON(t, h.IsAuth, httptest.NewRequest(http.MethodGet, "/api/v1/auth/is-auth", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token provided.", env.Message)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/auth/is-auth", nil)
	r.Header.Set("Authorization", "Bearer tampered")
	w, env = doJSON(t, h.IsAuth, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication failed.", env.Message)
}
