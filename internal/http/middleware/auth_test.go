// README: Auth middleware tests.
package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"mealbridge/internal/http/middleware"
	"mealbridge/internal/infra"
)

type stubVerifier struct {
	token *infra.AuthToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.AuthToken, error) {
	return s.token, s.err
}

func newTestRouter(verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"actor_id":   c.GetString("actor_id"),
			"actor_name": c.GetString("actor_name"),
		})
	})
	return r
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	r := newTestRouter(&stubVerifier{token: &infra.AuthToken{UID: "u1"}})
	if w := do(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_WrongScheme(t *testing.T) {
	r := newTestRouter(&stubVerifier{token: &infra.AuthToken{UID: "u1"}})
	if w := do(r, "Token abc"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	r := newTestRouter(&stubVerifier{err: errors.New("expired")})
	if w := do(r, "Bearer abc"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_SetsActor(t *testing.T) {
	r := newTestRouter(&stubVerifier{token: &infra.AuthToken{UID: "u1", Name: "Pat"}})
	w := do(r, "Bearer abc")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if body != `{"actor_id":"u1","actor_name":"Pat"}` {
		t.Errorf("unexpected body: %s", body)
	}
}
