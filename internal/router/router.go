package router

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/user"
)

// Deps are the handlers and collaborators mounted by RegisterRoutes.
type Deps struct {
	Users          *user.Handler
	Todos          *todo.Handler
	Issuer         *token.Issuer
	AllowedOrigins []string
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// RecoverMiddleware turns a handler panic into a plain 500 response.
func RecoverMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Errorw("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", v)
					writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Server Error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	corsMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	corsHeaders = "Content-Type, Authorization, Cookie"
)

// CORSMiddleware allows credentialed requests from the listed origins.
// Requests without an Origin header pass through untouched; a disallowed
// origin gets 403.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !slices.Contains(origins, strings.TrimRight(origin, "/")) {
				writeJSON(w, http.StatusForbidden, errorBody{Message: "Not allowed by CORS"})
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth verifies the session token and stores its claims on the
// request context.
func RequireAuth(issuer *token.Issuer, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := issuer.Verify(r.Context(), token.FromRequest(r))
			if err != nil {
				status, msg := apperr.Status(err)
				if status >= http.StatusInternalServerError {
					logger.Errorw("verify token failed", "path", r.URL.Path, "err", err)
				}
				writeJSON(w, status, errorBody{Message: msg})
				return
			}
			next.ServeHTTP(w, r.WithContext(token.WithClaims(r.Context(), claims)))
		})
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RegisterRoutes mounts all HTTP handlers on a standard library ServeMux and
// wraps the mux with the middleware chain.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()
	auth := RequireAuth(d.Issuer, logger)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth
	mux.HandleFunc("POST /api/v1/auth/register", d.Users.Register)
	mux.HandleFunc("POST /api/v1/auth/login", d.Users.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", d.Users.Logout)
	mux.HandleFunc("POST /api/v1/auth/send-reset-otp", d.Users.SendResetOTP)
	mux.HandleFunc("POST /api/v1/auth/change-password", d.Users.ChangePassword)
	mux.Handle("POST /api/v1/auth/send-verification-email-otp", protected(d.Users.SendVerificationOTP))
	mux.Handle("POST /api/v1/auth/verify-email", protected(d.Users.VerifyEmail))
	mux.Handle("GET /api/v1/auth/get-user", protected(d.Users.GetUser))
	mux.HandleFunc("GET /api/v1/auth/is-auth", d.Users.IsAuth)

	// todos
	mux.Handle("GET /api/v1/todos", protected(d.Todos.List))
	mux.Handle("GET /api/v1/todos/recent", protected(d.Todos.Recent))
	mux.Handle("GET /api/v1/todos/stats", protected(d.Todos.Stats))
	mux.Handle("POST /api/v1/todo", protected(d.Todos.Create))
	mux.Handle("GET /api/v1/todos/{id}", protected(d.Todos.Get))
	mux.Handle("PATCH /api/v1/todos/{id}", protected(d.Todos.Update))
	mux.Handle("DELETE /api/v1/todos/{id}", protected(d.Todos.Delete))

	return RecoverMiddleware(logger)(
		LoggingMiddleware(logger)(
			SecurityHeadersMiddleware()(
				CORSMiddleware(d.AllowedOrigins)(mux))))
}
