package repositories

import (
	"context"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// UserRepository reads users from the identity provider
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
}
