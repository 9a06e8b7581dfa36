package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tutti/adapters/metrics"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/stretchr/testify/assert"
)

type guardFunc func(ctx context.Context, rawToken string) core.AuthResult

func (f guardFunc) VerifyCredential(ctx context.Context, rawToken string) core.AuthResult {
	return f(ctx, rawToken)
}

type countingRecorder struct {
	metrics.NopRecorder
	decisions []core.AuthResult
}

func (r *countingRecorder) RecordDecision(result core.AuthResult) {
	r.decisions = append(r.decisions, result)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ada := core.Identity{Subject: "u1", Email: "a@b.com"}
	guard := guardFunc(func(_ context.Context, raw string) core.AuthResult {
		switch raw {
		case "":
			return core.Rejected(core.RejectMissingCredential)
		case "good":
			return core.Authenticated(ada)
		default:
			return core.Rejected(core.RejectInvalidCredential)
		}
	})
	recorder := &countingRecorder{}

	router := gin.New()
	router.Use(AuthMiddleware(guard, "token", recorder, logger.NewNop()))
	router.GET("/who", func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		assert.True(t, ok)
		c.JSON(http.StatusOK, id)
	})

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"no credential", "", "", http.StatusUnauthorized},
		{"bad bearer", "Bearer bad", "", http.StatusUnauthorized},
		{"good bearer", "Bearer good", "", http.StatusOK},
		{"good cookie", "", "good", http.StatusOK},
		{"bad bearer beats good cookie", "Bearer bad", "good", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"sub":"u1","email":"a@b.com"}`, w.Body.String())
			} else {
				assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
			}
		})
	}

	assert.Len(t, recorder.decisions, len(tests))
}

func TestIdentityFrom_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := IdentityFrom(c)
	assert.False(t, ok)

	SetIdentity(c, core.Identity{Subject: "u1"})
	id, ok := IdentityFrom(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", id.Subject)
}
