package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/placehub/placehub/internal/auth"
	"github.com/placehub/placehub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifyToken(token string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name           string
		header         string
		verifier       *fakeVerifier
		wantStatusCode int
		wantUserID     string
	}{
		{
			name:           "missing_header",
			header:         "",
			verifier:       &fakeVerifier{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "wrong_scheme",
			header:         "Basic dXNlcjpwYXNz",
			verifier:       &fakeVerifier{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "empty_token",
			header:         "Bearer ",
			verifier:       &fakeVerifier{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid_token",
			header:         "Bearer bad-token",
			verifier:       &fakeVerifier{err: errors.New("bad signature")},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "valid_token",
			header: "Bearer good-token",
			verifier: &fakeVerifier{
				claims: &auth.Claims{UserID: "user-1", Email: "ada@example.com"},
			},
			wantStatusCode: http.StatusOK,
			wantUserID:     "user-1",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string

			r := gin.New()

			m := middlewares.NewAuthMiddleware(tt.verifier)

			r.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
				gotUserID, _ = middlewares.UserIDFromContext(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if gotUserID != tt.wantUserID {
				t.Errorf("got user id %q, want %q", gotUserID, tt.wantUserID)
			}
		})
	}
}
