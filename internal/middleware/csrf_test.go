package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestCSRFMiddleware_SafeMethodsAllowed(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	safeMethods := []string{http.MethodGet, http.MethodHead, http.MethodOptions}

	for _, method := range safeMethods {
		t.Run(method, func(t *testing.T) {
			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(method, "/report", nil)
			rr := httptest.NewRecorder()

			csrf.Protect(handler).ServeHTTP(rr, req)

			if !handlerCalled {
				t.Errorf("%s request should call handler", method)
			}
			if rr.Code != http.StatusOK {
				t.Errorf("%s request: expected status 200, got %d", method, rr.Code)
			}
		})
	}
}

func TestCSRFMiddleware_UnsafeMethodsRequireToken(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	unsafeMethods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

	for _, method := range unsafeMethods {
		t.Run(method+"_no_token", func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called without CSRF token")
			})

			req := httptest.NewRequest(method, "/report", nil)
			rr := httptest.NewRecorder()

			csrf.Protect(handler).ServeHTTP(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Errorf("%s request without token: expected status 403, got %d", method, rr.Code)
			}
		})
	}
}

func TestCSRFMiddleware_ValidTokenAllowsRequest(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	// First, get a token via a GET request
	getReq := httptest.NewRequest(http.MethodGet, "/report", nil)
	getRr := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	csrf.Protect(handler).ServeHTTP(getRr, getReq)

	// Extract the CSRF token from the response
	var csrfToken string
	for _, cookie := range getRr.Result().Cookies() {
		if cookie.Name == csrfCookieName {
			csrfToken = cookie.Value
			break
		}
	}

	if csrfToken == "" {
		t.Fatal("CSRF token not set in cookie")
	}

	// Now make a POST request with the token
	postReq := httptest.NewRequest(http.MethodPost, "/report", nil)
	postReq.AddCookie(&http.Cookie{Name: csrfCookieName, Value: csrfToken})
	postReq.Header.Set(csrfHeaderName, csrfToken)

	postRr := httptest.NewRecorder()
	handlerCalled := false

	postHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	csrf.Protect(postHandler).ServeHTTP(postRr, postReq)

	if !handlerCalled {
		t.Error("handler should be called with valid CSRF token")
	}
	if postRr.Code != http.StatusOK {
		t.Errorf("POST with valid token: expected status 200, got %d", postRr.Code)
	}
}

func TestCSRFMiddleware_MismatchedTokenFails(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called with mismatched token")
	})

	req := httptest.NewRequest(http.MethodPost, "/report", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-in-cookie"})
	req.Header.Set(csrfHeaderName, "different-token-in-header")

	rr := httptest.NewRecorder()
	csrf.Protect(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("mismatched token: expected status 403, got %d", rr.Code)
	}
}

func TestCSRFMiddleware_MissingSubmittedTokenFails(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called without a submitted token")
	})

	req := httptest.NewRequest(http.MethodPost, "/report", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "valid-token"})

	rr := httptest.NewRecorder()
	csrf.Protect(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("missing token: expected status 403, got %d", rr.Code)
	}
}

func TestCSRFMiddleware_FormFieldAllowsRequest(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	form := url.Values{
		"csrf_token":      {"form-token"},
		"daily_travel_km": {"15"},
	}
	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "form-token"})

	var seenToken, seenTravel string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenToken = CSRFTokenFromContext(r.Context())
		seenTravel = r.PostFormValue("daily_travel_km")
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	csrf.Protect(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if seenToken != "form-token" {
		t.Errorf("expected token in context, got %q", seenToken)
	}
	if seenTravel != "15" {
		t.Errorf("expected form to stay readable, got %q", seenTravel)
	}
}

func cookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == csrfCookieName {
			return cookie
		}
	}
	return nil
}

func TestCSRFMiddleware_TokenInContext(t *testing.T) {
	csrf := NewCSRFMiddleware(false)

	t.Run("new token matches cookie", func(t *testing.T) {
		var seen string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = CSRFTokenFromContext(r.Context())
		})

		rr := httptest.NewRecorder()
		csrf.Protect(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		cookie := cookieFrom(rr)
		if cookie == nil {
			t.Fatal("CSRF cookie not set")
		}
		if seen == "" || seen != cookie.Value {
			t.Errorf("expected context token %q to match cookie %q", seen, cookie.Value)
		}
	})

	t.Run("existing cookie is reused", func(t *testing.T) {
		var seen string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = CSRFTokenFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-csrf-token"})
		rr := httptest.NewRecorder()
		csrf.Protect(handler).ServeHTTP(rr, req)

		if cookieFrom(rr) != nil {
			t.Error("expected no new cookie")
		}
		if seen != "existing-csrf-token" {
			t.Errorf("expected existing token, got %q", seen)
		}
	})

	t.Run("empty without middleware", func(t *testing.T) {
		if got := CSRFTokenFromContext(context.Background()); got != "" {
			t.Errorf("expected empty token, got %q", got)
		}
	})
}

func TestCSRFMiddleware_CookieAttributes(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
	}{
		{name: "insecure", secure: false},
		{name: "secure", secure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			NewCSRFMiddleware(tt.secure).Protect(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			cookie := cookieFrom(rr)
			if cookie == nil {
				t.Fatal("CSRF cookie not set")
			}
			if cookie.Secure != tt.secure {
				t.Errorf("expected Secure=%v, got %v", tt.secure, cookie.Secure)
			}
			if !cookie.HttpOnly {
				t.Error("expected HttpOnly cookie")
			}
			if cookie.SameSite != http.SameSiteStrictMode {
				t.Errorf("expected SameSite=Strict, got %v", cookie.SameSite)
			}
		})
	}
}

func TestCSRFMiddleware_OnFailure(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		formToken  string
		status     int
		wantToken  string
		wantCookie bool
	}{
		{name: "missing cookie", formToken: "tok", status: http.StatusForbidden, wantCookie: true},
		{name: "mismatch", cookie: "cookie-token", formToken: "other", status: http.StatusForbidden, wantToken: "cookie-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus int
			var gotToken string
			csrf := NewCSRFMiddleware(false).OnFailure(func(w http.ResponseWriter, r *http.Request, status int, message string) {
				gotStatus = status
				gotToken = CSRFTokenFromContext(r.Context())
				w.WriteHeader(status)
			})
			handler := csrf.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(url.Values{"csrf_token": {tt.formToken}}.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "csrf_token", Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if gotStatus != tt.status || rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d (recorded %d)", tt.status, gotStatus, rr.Code)
			}
			if gotToken == "" {
				t.Fatal("expected a token for re-rendering the form")
			}
			if tt.wantToken != "" && gotToken != tt.wantToken {
				t.Errorf("expected existing cookie token %q, got %q", tt.wantToken, gotToken)
			}
			if cookie := cookieFrom(rr); (cookie != nil) != tt.wantCookie {
				t.Errorf("expected new cookie=%v, got %+v", tt.wantCookie, cookie)
			} else if cookie != nil && cookie.Value != gotToken {
				t.Errorf("expected cookie to carry the context token")
			}
		})
	}
}

func TestCSRFMiddleware_BodyTooLarge(t *testing.T) {
	handler := NewBodyLimit(64).Apply(NewCSRFMiddleware(false).Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})))

	body := url.Values{"csrf_token": {"tok"}, "padding": {strings.Repeat("x", 128)}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Request body too large") {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}

func TestGenerateCSRFToken(t *testing.T) {
	token1, err := generateCSRFToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token1 == "" {
		t.Error("token should not be empty")
	}

	token2, err := generateCSRFToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if token1 == token2 {
		t.Error("tokens should be unique")
	}

	// Token should be base64 encoded
	if len(token1) < 40 {
		t.Errorf("token seems too short: %d chars", len(token1))
	}
}
