package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"scrap/internal/domain"
)

const actorContextKey = "actor"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// AuthMiddleware verifies identity tokens issued by the identity service.
// Tokens are HMAC signed and carry user_id and role claims.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Handler rejects requests without a valid token and stores the caller's
// actor on the context.
func (am *AuthMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := am.authenticate(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": "UNAUTHORIZED"})
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(header string) (domain.Actor, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return domain.Actor{}, errMissingToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, errInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return domain.Actor{}, errors.New("user_id not found in token")
	}

	roleClaim, _ := claims["role"].(string)
	role, err := domain.ParseRole(roleClaim)
	if err != nil {
		return domain.Actor{}, errors.New("role not found in token")
	}

	return domain.Actor{UserID: userID, Role: role}, nil
}

// SetActor stores the verified caller on the context.
func SetActor(c *gin.Context, actor domain.Actor) {
	c.Set(actorContextKey, actor)
}

// ActorFrom returns the actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

// RequireRole aborts with 403 unless the caller has one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingToken.Error(), "kind": "UNAUTHORIZED"})
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not permitted", "kind": string(domain.KindForbidden)})
	}
}
