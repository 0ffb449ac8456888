package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// ContextKey is the key under which an account or course is cached
func ContextKey(ref models.ContextRef) string {
	return ref.Code()
}

// QuestionCountKey is the key of a bank's active question count
func QuestionCountKey(bankID uint) string {
	return fmt.Sprintf("bank:%d:question_count", bankID)
}

// InvalidateBankCache drops everything cached for one bank
func InvalidateBankCache(ctx context.Context, cm *CacheManager, bankID uint) {
	SafeDelete(ctx, cm.Bank, fmt.Sprintf("id:%d", bankID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("bank:%d:*", bankID))
}
