package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// PortfolioStore persists the per-user ledger in the portfolio table, one
// record per user keyed by user ID. The whole ledger is written in a single
// UPSERT so a save either lands completely or not at all.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{
		db:     db,
		logger: logger,
	}
}

func (s *PortfolioStore) Get(ctx context.Context, userID string) (*models.Portfolio, error) {
	portfolio, err := surrealdb.Select[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", userID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, interfaces.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if portfolio == nil || portfolio.UserID == "" {
		return nil, interfaces.ErrPortfolioNotFound
	}
	return portfolio, nil
}

func (s *PortfolioStore) Save(ctx context.Context, portfolio *models.Portfolio) error {
	sql := "UPSERT $rid CONTENT $portfolio"
	vars := map[string]any{
		"rid":       surrealmodels.NewRecordID("portfolio", portfolio.UserID),
		"portfolio": portfolio,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Portfolio](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save portfolio after retries: %w", lastErr)
}

func (s *PortfolioStore) Delete(ctx context.Context, userID string) error {
	_, err := surrealdb.Delete[models.Portfolio](ctx, s.db, surrealmodels.NewRecordID("portfolio", userID))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioStore) ListUserIDs(ctx context.Context) ([]string, error) {
	list, err := surrealdb.Select[[]models.Portfolio](ctx, s.db, surrealmodels.Table("portfolio"))
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	var userIDs []string
	if list != nil {
		for _, p := range *list {
			if p.UserID != "" {
				userIDs = append(userIDs, p.UserID)
			}
		}
	}
	return userIDs, nil
}

// isNotFoundError matches the driver's record-not-found responses.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no record")
}

// Compile-time check
var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)
