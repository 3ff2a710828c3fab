package handler

import (
	"errors"
	"net/http"
	"os"
	"time"

	"paidreply/backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-secret-change-me")
}

// generateToken signs a token with the given identity claim.
func generateToken(claim, id string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		claim: id,
		"exp": time.Now().Add(ttl).Unix(),
		"iss": "paidreply-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// parseClaim validates the token and extracts the given identity claim.
func parseClaim(tokenString, claim string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	id, ok := claims[claim].(string)
	if !ok || id == "" {
		return "", errors.New("missing " + claim + " claim")
	}
	return id, nil
}

// bearerToken pulls the raw token out of the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		return "", false
	}
	return authHeader[7:], true
}

// GetAnonID creates a fresh anonymous visitor identity and returns its JWT.
func (h *Handler) GetAnonID(c *gin.Context) {
	anonID := uuid.New().String()

	token, err := generateToken("anon_id", anonID, config.VisitorTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}

// GetCreatorToken issues a dashboard JWT for a creator. Operator-only; a
// real deployment would hang this off its own login flow.
func (h *Handler) GetCreatorToken(c *gin.Context) {
	creatorID := c.Param("creator_id")
	if _, err := h.Storage.GetCreatorByID(creatorID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		return
	}

	token, err := generateToken("creator_id", creatorID, config.CreatorTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "creator_id": creatorID})
}

// visitorID authenticates the request as an anonymous visitor.
func visitorID(c *gin.Context) (string, bool) {
	tokenString, ok := bearerToken(c)
	if !ok {
		return "", false
	}
	id, err := parseClaim(tokenString, "anon_id")
	return id, err == nil
}

// creatorID authenticates the request as a creator.
func creatorID(c *gin.Context) (string, bool) {
	tokenString, ok := bearerToken(c)
	if !ok {
		return "", false
	}
	id, err := parseClaim(tokenString, "creator_id")
	return id, err == nil
}

// RequireOperator guards operator endpoints with the shared token from env.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := os.Getenv("OPERATOR_TOKEN")
		token, ok := bearerToken(c)
		if expected == "" || !ok || token != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Operator token required"})
			return
		}
		c.Next()
	}
}
