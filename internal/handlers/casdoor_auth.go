package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/config"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

// tokenParser is the part of the Casdoor client the middleware needs
type tokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	parser   tokenParser
	userRepo repositories.UserRepository
	logger   utils.Logger
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)

	return newCasdoorAuthMiddleware(client, userRepo, logger)
}

func newCasdoorAuthMiddleware(parser tokenParser, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser:   parser,
		userRepo: userRepo,
		logger:   logger,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "authorization header missing")
			return
		}

		// Extract token from "Bearer <token>" format
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := cam.parser.ParseJwtToken(tokenParts[1])
		if err != nil {
			unauthorized(c, fmt.Sprintf("invalid token: %v", err))
			return
		}

		user, err := cam.extractUserFromClaims(c.Request.Context(), claims)
		if err != nil {
			unauthorized(c, fmt.Sprintf("failed to extract user info: %v", err))
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Set("user_role", user.Role)
		c.Set("user_email", user.Email)

		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}

// extractUserFromClaims prefers the stored user and falls back to the claims
func (cam *CasdoorAuthMiddleware) extractUserFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	userID := claims.Id
	if userID == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user, err := cam.userRepo.GetByID(ctx, userID)
	if err != nil {
		cam.logger.Debug("User lookup failed, using token claims", "user_id", userID, "error", err)
		user = createUserFromClaims(claims)
	}

	return user, nil
}

// createUserFromClaims creates a user model from JWT claims
func createUserFromClaims(claims *casdoorsdk.Claims) *models.User {
	avatarURL := claims.User.Avatar
	highContrast, _ := strconv.ParseBool(strings.TrimSpace(claims.User.Properties[casdoor.HighContrastProperty]))
	now := time.Now()

	return &models.User{
		ID:                  claims.Id,
		Name:                claims.User.Name,
		FullName:            claims.User.DisplayName,
		Email:               claims.User.Email,
		Role:                mapCasdoorTypeToUserRole(claims.User.Type, claims.User.IsAdmin),
		AvatarURL:           &avatarURL,
		PrefersHighContrast: highContrast,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// mapCasdoorTypeToUserRole maps Casdoor user type to internal role
func mapCasdoorTypeToUserRole(casdoorType string, isAdmin bool) models.UserRole {
	if isAdmin {
		return models.RoleAdmin
	}
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor", "designer":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// GetUserFromContext extracts user from Gin context
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// GetUserIDFromContext extracts user ID from Gin context
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}
