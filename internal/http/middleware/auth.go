package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/soulkun/soulkun-backend/internal/platform/logger"
)

// Context keys set by RequireServiceToken.
const (
	ContextOrgIDKey   = "auth_organization_id"
	ContextSubjectKey = "auth_subject"
)

var errInvalidToken = errors.New("missing or invalid token")

// ServiceClaims is the token contract with the conversational front-end. The
// caller is trusted to have authenticated its own users already; the claims
// only identify which tenant the call acts on.
type ServiceClaims struct {
	OrganizationID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the HMAC-signed service token on the ops surface.
type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(baseLog *logger.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		log:    baseLog.With("middleware", "AuthMiddleware"),
		secret: []byte(secret),
	}
}

func (am *AuthMiddleware) RequireServiceToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			abortUnauthorized(c, "missing or invalid token")
			return
		}

		claims, err := am.parse(tokenString)
		if err != nil {
			am.log.Warn("Service token rejected", "error", err)
			abortUnauthorized(c, "missing or invalid token")
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)
		if claims.OrganizationID != "" {
			if orgID, err := uuid.Parse(claims.OrganizationID); err == nil {
				c.Set(ContextOrgIDKey, orgID)
			}
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return am.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// OrgIDFromContext returns the tenant the validated token is scoped to, when
// the claims carried one.
func OrgIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextOrgIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": msg, "code": "unauthorized"},
	})
}
