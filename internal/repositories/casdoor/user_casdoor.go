package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/question-bank-service/internal/cache"
	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// HighContrastProperty is the Casdoor user property holding the UI preference
const HighContrastProperty = "high_contrast"

// userClient is the part of the Casdoor SDK this repository calls
type userClient interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
}

type UserCasdoor struct {
	client userClient
	cache  *cache.CacheHelper
}

func NewUserCasdoor(config CasdoorConfig, cacheManager *cache.CacheManager) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return newUserCasdoor(client, cacheManager)
}

func newUserCasdoor(client userClient, cacheManager *cache.CacheManager) *UserCasdoor {
	return &UserCasdoor{
		client: client,
		cache:  cacheManager.User,
	}
}

// ===== CONVERSION METHODS =====

// convertCasdoorUserToModel converts Casdoor user to internal model
func (u *UserCasdoor) convertCasdoorUserToModel(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	user := &models.User{
		ID:                  casdoorUser.Id,
		Name:                casdoorUser.Name,
		FullName:            casdoorUser.DisplayName,
		Email:               casdoorUser.Email,
		Role:                u.convertCasdoorRolesToModel(casdoorUser),
		PrefersHighContrast: u.boolProperty(casdoorUser.Properties, HighContrastProperty),
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}
	if casdoorUser.Avatar != "" {
		avatar := casdoorUser.Avatar
		user.AvatarURL = &avatar
	}

	return user
}

func (u *UserCasdoor) convertCasdoorRolesToModel(casdoorUser *casdoorsdk.User) models.UserRole {
	var roles []models.UserRole
	for _, casdoorRole := range casdoorUser.Roles {
		if casdoorRole == nil {
			continue
		}
		mapped := u.mapSingleCasdoorRoleToUserRole(casdoorRole.Name)
		if !slices.Contains(roles, mapped) {
			roles = append(roles, mapped)
		}
	}

	// admin wins over any other role
	if slices.Contains(roles, models.RoleAdmin) || casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	if len(roles) == 0 {
		return models.RoleStudent
	}
	return roles[0]
}

func (u *UserCasdoor) mapSingleCasdoorRoleToUserRole(casdoorType string) models.UserRole {
	switch strings.ToLower(casdoorType) {
	case "teacher", "instructor", "designer":
		return models.RoleTeacher
	case "admin", "administrator":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

// boolProperty reads a boolean Casdoor property, false when absent or malformed
func (u *UserCasdoor) boolProperty(properties map[string]string, key string) bool {
	value, ok := properties[key]
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}

// ===== READ OPERATIONS =====

// GetByID retrieves a user by ID through the user cache
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.cache.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return u.convertCasdoorUserToModel(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// ExistsByID checks if a user exists by ID
func (u *UserCasdoor) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := u.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if repositories.IsNotFoundError(err) {
		return false, nil
	}
	return false, err
}
