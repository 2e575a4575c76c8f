package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
// Trades are only accepted for mints known to the paired AssetStore.
type TradeStore struct {
	mu     sync.RWMutex
	data   map[uuid.UUID]domain.TradeRecord
	assets *AssetStore
}

// NewTradeStore creates a new in-memory trade store resolving mints against assets.
func NewTradeStore(assets *AssetStore) *TradeStore {
	return &TradeStore{
		data:   make(map[uuid.UUID]domain.TradeRecord),
		assets: assets,
	}
}

var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBatch stores trades whose mint has an asset and whose id is new.
func (s *TradeStore) InsertBatch(_ context.Context, trades []domain.TradeRecord) ([]uuid.UUID, error) {
	for i, t := range trades {
		if t.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: trade %d has no id", storage.ErrInvalidInput, i)
		}
	}

	s.assets.mu.RLock()
	defer s.assets.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted []uuid.UUID
	for _, t := range trades {
		if _, known := s.assets.data[t.ContractAddress]; !known {
			continue
		}
		if _, exists := s.data[t.ID]; exists {
			continue
		}
		s.data[t.ID] = t
		inserted = append(inserted, t.ID)
	}
	return inserted, nil
}

// GetAll retrieves every trade ordered by created_at, id.
func (s *TradeStore) GetAll(_ context.Context) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	result := make([]domain.TradeRecord, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, t)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}
