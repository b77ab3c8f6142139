package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/aggregate"
)

// AnalyticsRepository is the read side of the projection store.
type AnalyticsRepository interface {
	GetUser(ctx context.Context, userID string) (*aggregate.UserAnalytics, error)
	GetUserActions(ctx context.Context, userID string, limit int) ([]*aggregate.UserAction, error)
	GetProduct(ctx context.Context, productID string) (*aggregate.ProductAnalytics, error)
	GetShop(ctx context.Context, shopID string) (*aggregate.ShopAnalytics, error)
	GetTopProducts(ctx context.Context, limit int) ([]*aggregate.ProductAnalytics, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// UserReport is a user projection plus the tail of the externalized
// action log.
type UserReport struct {
	*aggregate.UserAnalytics
	RecentActions []*aggregate.UserAction `json:"recent_actions"`
}

type Service struct {
	repo           AnalyticsRepository
	health         HealthChecker
	actionLogLimit int
	logger         *zap.Logger
}

func NewService(repo AnalyticsRepository, health HealthChecker, actionLogLimit int, logger *zap.Logger) *Service {
	if actionLogLimit <= 0 {
		actionLogLimit = 50
	}

	return &Service{
		repo:           repo,
		health:         health,
		actionLogLimit: actionLogLimit,
		logger:         logger,
	}
}

func (s *Service) GetUserReport(ctx context.Context, userID string) (*UserReport, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	actions, err := s.repo.GetUserActions(ctx, userID, s.actionLogLimit)
	if err != nil {
		// The projection itself is the answer; a missing log tail only
		// degrades the report.
		s.logger.Warn("Failed to load recent user actions",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		actions = nil
	}

	return &UserReport{
		UserAnalytics: user,
		RecentActions: actions,
	}, nil
}

func (s *Service) GetProduct(ctx context.Context, productID string) (*aggregate.ProductAnalytics, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) GetShop(ctx context.Context, shopID string) (*aggregate.ShopAnalytics, error) {
	shop, err := s.repo.GetShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return shop, nil
}

func (s *Service) GetTopProducts(ctx context.Context, limit int) ([]*aggregate.ProductAnalytics, error) {
	if limit <= 0 {
		limit = 10
	}

	products, err := s.repo.GetTopProducts(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to get top products", zap.Error(err))
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}
	return products, nil
}

func (s *Service) HealthCheck(ctx context.Context) (bool, map[string]string) {
	status := map[string]string{"postgres": "ok"}

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			status["postgres"] = err.Error()
			return false, status
		}
	}

	return true, status
}
