package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
)

// MemoryTableStore keeps tables in a map. Replace stores a private copy and
// Load hands out a copy, so callers never share backing arrays.
type MemoryTableStore struct {
	mu     sync.RWMutex
	tables map[domrepo.TableKey][]models.Row
}

var _ domrepo.TableStore = (*MemoryTableStore)(nil)

func NewMemoryTableStore() *MemoryTableStore {
	return &MemoryTableStore{tables: make(map[domrepo.TableKey][]models.Row)}
}

func (s *MemoryTableStore) Replace(ctx context.Context, key domrepo.TableKey, rows []models.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := append([]models.Row(nil), rows...)
	s.mu.Lock()
	s.tables[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryTableStore) Load(ctx context.Context, key domrepo.TableKey) ([]models.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows, ok := s.tables[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, domrepo.ErrTableNotFound)
	}
	return append([]models.Row(nil), rows...), nil
}

func (s *MemoryTableStore) List(ctx context.Context, tf domrepo.Timeframe) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.tables {
		if k.Timeframe == tf {
			out = append(out, k.Ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryTableStore) Close() error { return nil }
