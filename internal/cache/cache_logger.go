package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeDelete deletes cache keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeInvalidatePattern invalidates a key pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

func ExamKey(examID uint) string {
	return fmt.Sprintf("%d", examID)
}

func TenantNameKey(name string) string {
	return "name:" + name
}

// InvalidateExam drops the cached definition of one exam
func InvalidateExam(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Exam, ExamKey(examID))
}

// InvalidateTenant drops every cached tenant lookup
func InvalidateTenant(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Tenant, "*")
}
