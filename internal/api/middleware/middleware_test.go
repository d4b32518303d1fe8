package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/huangchenwei1/Puzle-Read/internal/config"
	"github.com/huangchenwei1/Puzle-Read/pkg/utils"

	"github.com/gin-gonic/gin"
)

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Set(&config.Config{
		App: config.AppConfig{Name: "puzle-read-test"},
		JWT: config.JWTConfig{Secret: "mw-secret", ExpireHours: 1},
	})

	r := gin.New()
	r.Use(Recovery())
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		id, _ := GetCurrentUserID(c)
		name, _ := GetCurrentUsername(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "name": name})
	})
	roles := map[int64]string{1: "admin", 2: "user"}
	r.GET("/admin", AuthRequired(), AdminRequired(func(id int64) (string, error) {
		role, ok := roles[id]
		if !ok {
			return "", errors.New("missing")
		}
		return role, nil
	}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func bearer(t *testing.T, id int64, name string) string {
	t.Helper()
	token, err := utils.GenerateToken(id, name)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func TestAuthRequired(t *testing.T) {
	r := setupAuthRouter(t)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", "", http.StatusUnauthorized},
		{"valid header", bearer(t, 2, "reader"), "", http.StatusOK},
		{"valid query", "", bearer(t, 2, "reader")[len("Bearer "):], http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?access_token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && rec.Body.String() != `{"id":2,"name":"reader"}` {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	r := setupAuthRouter(t)

	tests := []struct {
		name string
		id   int64
		want int
	}{
		{"admin", 1, http.StatusNoContent},
		{"user", 2, http.StatusForbidden},
		{"unknown", 3, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", bearer(t, tt.id, "someone"))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	r := setupAuthRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	want := `{"error":{"code":500,"message":"服务器内部错误","type":"InternalServerError"}}`
	if rec.Body.String() != want {
		t.Errorf("body = %s", rec.Body.String())
	}
}
