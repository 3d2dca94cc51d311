package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogcms/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextEmailKey stores the account email inside Gin context.
	ContextEmailKey = "email"
	// ContextTokenKey stores the raw bearer token so logout can revoke it.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
)

// Authenticator validates a bearer token; *services.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*utils.Claims, error)
}

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		tokenString, code, msg := bearerToken(authHeader)
		if code != 0 {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		claims, err := auth.Authenticate(ctx.Request.Context(), tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, err.Error())
			ctx.Abort()
			return
		}

		if !setIdentity(ctx, tokenString, claims) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "invalid token subject")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth decodes a bearer token when one is present and valid. Requests without
// one, or with a bad one, continue anonymously.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Next()
			return
		}
		tokenString, code, _ := bearerToken(authHeader)
		if code == 0 {
			if claims, err := auth.Authenticate(ctx.Request.Context(), tokenString); err == nil {
				setIdentity(ctx, tokenString, claims)
			}
		}
		ctx.Next()
	}
}

func bearerToken(header string) (string, int, string) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}

func setIdentity(ctx *gin.Context, token string, claims *utils.Claims) bool {
	userID, err := claims.UserID()
	if err != nil || userID == 0 {
		return false
	}
	ctx.Set(ContextUserIDKey, userID)
	ctx.Set(ContextEmailKey, claims.Email)
	ctx.Set(ContextTokenKey, token)
	ctx.Set(ContextClaimsKey, claims)
	return true
}
