package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
)

// systemKV is the stored row for a system-level setting.
type systemKV struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SystemKVStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSystemKVStore(db *surrealdb.DB, logger *common.Logger) *SystemKVStore {
	return &SystemKVStore{
		db:     db,
		logger: logger,
	}
}

func (s *SystemKVStore) Get(ctx context.Context, key string) (string, error) {
	kv, err := surrealdb.Select[systemKV](ctx, s.db, surrealmodels.NewRecordID("system_kv", key))
	if err != nil {
		if isNotFoundError(err) {
			return "", errors.New("system KV not found")
		}
		return "", fmt.Errorf("failed to select system KV: %w", err)
	}
	if kv == nil {
		return "", errors.New("system KV not found")
	}
	return kv.Value, nil
}

func (s *SystemKVStore) Set(ctx context.Context, key, value string) error {
	kv := systemKV{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	sql := "UPSERT type::record('system_kv', $id) CONTENT $kv"
	vars := map[string]any{"id": key, "kv": kv}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]systemKV](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to set system KV after retries: %w", err)
		}
	}
	return nil
}

// Compile-time check
var _ interfaces.SystemKVStore = (*SystemKVStore)(nil)
