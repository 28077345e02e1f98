package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenLen   = 32
	csrfMaxAge     = 12 * 60 * 60 // 12 hours
)

type csrfContextKey struct{}

// CSRFTokenFromContext returns the token the page should embed in its form.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey{}).(string)
	return token
}

// CSRFMiddleware implements the double-submit cookie pattern for the HTML
// form. The token is compared against the csrf_token form field or the
// X-CSRF-Token header.
type CSRFMiddleware struct {
	secure    bool
	onFailure CSRFFailureFunc
}

// CSRFFailureFunc writes the response for a rejected request. status is
// 403, or 413 when the form body exceeded its limit.
type CSRFFailureFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

func NewCSRFMiddleware(secure bool) *CSRFMiddleware {
	return &CSRFMiddleware{secure: secure}
}

// OnFailure returns a copy of m that calls fn instead of writing a JSON
// error. The request given to fn carries a token for CSRFTokenFromContext,
// so a page can re-render its form.
func (m *CSRFMiddleware) OnFailure(fn CSRFFailureFunc) *CSRFMiddleware {
	c := *m
	c.onFailure = fn
	return &c
}

func (m *CSRFMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			token := m.ensureToken(w, r)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			m.fail(w, r, http.StatusForbidden, "CSRF token missing")
			return
		}

		submitted := r.Header.Get(csrfHeaderName)
		if submitted == "" {
			if err := r.ParseForm(); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					m.fail(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
					return
				}
			}
			submitted = r.PostFormValue(csrfFormField)
		}
		if submitted == "" {
			m.fail(w, r, http.StatusForbidden, "CSRF token not submitted")
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
			m.fail(w, r, http.StatusForbidden, "CSRF token mismatch")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, cookie.Value)))
	})
}

func (m *CSRFMiddleware) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	if m.onFailure == nil {
		writeError(w, status, message)
		return
	}
	token := m.ensureToken(w, r)
	m.onFailure(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)), status, message)
}

func (m *CSRFMiddleware) ensureToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateCSRFToken()
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfMaxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
