package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/blogcms/utils"
)

type stubAuthenticator map[string]*utils.Claims

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*utils.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func claimsFor(sub, email string) *utils.Claims {
	return &utils.Claims{Email: email, RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(ctx *gin.Context) {
		id, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{"user_id": id, "email": ctx.GetString(ContextEmailKey)})
	})
	r.GET("/", handlers...)
	return r
}

func get(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	auth := stubAuthenticator{
		"good":   claimsFor("7", "a@example.com"),
		"nosubj": claimsFor("", "b@example.com"),
	}
	r := newEngine(AuthRequired(auth))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "40101"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "40102"},
		{"empty token", "Bearer   ", http.StatusUnauthorized, "40103"},
		{"bad subject", "Bearer nosubj", http.StatusUnauthorized, "40104"},
		{"rejected", "Bearer bad", http.StatusUnauthorized, "40105"},
		{"ok", "Bearer good", http.StatusOK, `"user_id":7`},
		{"case-insensitive scheme", "bearer good", http.StatusOK, `"email":"a@example.com"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(r, tc.header)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	r := newEngine(OptionalAuth(stubAuthenticator{"good": claimsFor("3", "c@example.com")}))

	rec := get(r, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":null`)

	rec = get(r, "Bearer bad")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":null`)

	rec = get(r, "Bearer good")
	assert.Contains(t, rec.Body.String(), `"user_id":3`)
}

func TestRateLimit(t *testing.T) {
	// 2 per minute gives a burst of 1
	r := newEngine(RateLimit(2))

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	rec := get(r, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "42901")
}
