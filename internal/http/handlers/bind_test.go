package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/placehub/placehub/internal/http/handlers"
)

type loginShape struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func bindJSONRouter() *gin.Engine {
	r := gin.New()

	r.POST("/bind", func(ctx *gin.Context) {
		var req loginShape

		if !handlers.BindJSON(ctx, &req) {
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"email": req.Email})
	})

	return r
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantInBody     []string
	}{
		{
			name:           "valid",
			body:           `{"email":"ada@example.com","password":"s3cret-pass"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "validation_errors_list_fields",
			body:           `{"email":"not-an-email","password":"abc"}`,
			wantStatusCode: http.StatusBadRequest,
			wantInBody:     []string{"email", "must be a valid email address", "password", "must be at least 6"},
		},
		{
			name:           "syntax_error",
			body:           `{"email":`,
			wantStatusCode: http.StatusBadRequest,
			wantInBody:     []string{"invalid_json_syntax"},
		},
		{
			name:           "type_mismatch",
			body:           `{"email":"ada@example.com","password":42}`,
			wantStatusCode: http.StatusBadRequest,
			wantInBody:     []string{"invalid_json_type", "password"},
		},
	}

	r := bindJSONRouter()

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			for _, want := range tt.wantInBody {
				if !strings.Contains(w.Body.String(), want) {
					t.Errorf("body %s missing %q", w.Body.String(), want)
				}
			}
		})
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	r := gin.New()

	r.POST("/bind", func(ctx *gin.Context) {
		ctx.Set("request_id", "req-123")

		var req loginShape

		if !handlers.BindJSON(ctx, &req) {
			return
		}

		ctx.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response json: %v", err)
	}

	if resp.Error.RequestID != "req-123" {
		t.Errorf("got request id %q, want req-123", resp.Error.RequestID)
	}
}
