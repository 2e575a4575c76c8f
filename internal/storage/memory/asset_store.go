package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asset // keyed by contract_address
	now  func() time.Time
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		data: make(map[string]*domain.Asset),
		now:  time.Now,
	}
}

var _ storage.AssetStore = (*AssetStore)(nil)

// Insert adds a new asset. Returns ErrDuplicateKey if contract_address exists.
func (s *AssetStore) Insert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.ContractAddress == "" || !a.Status.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ContractAddress]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[a.ContractAddress] = copyAsset(a)
	return nil
}

// GetByContract retrieves an asset by mint. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByContract(_ context.Context, contractAddress string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[contractAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyAsset(a), nil
}

// GetAll retrieves every asset, newest first.
func (s *AssetStore) GetAll(_ context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	result := make([]*domain.Asset, 0, len(s.data))
	for _, a := range s.data {
		result = append(result, copyAsset(a))
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// SetStatus persists a lifecycle status. Returns ErrNotFound for an unknown mint.
func (s *AssetStore) SetStatus(_ context.Context, contractAddress string, status domain.LifecycleStatus) error {
	if !status.Valid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[contractAddress]
	if !exists {
		return storage.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = s.now().UTC()
	return nil
}

// GetCurveStates loads the bonding state of every asset, ordered by contract address.
func (s *AssetStore) GetCurveStates(_ context.Context) ([]domain.CurveState, error) {
	s.mu.RLock()
	states := make([]domain.CurveState, 0, len(s.data))
	for _, a := range s.data {
		states = append(states, a.CurveState())
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].ContractAddress < states[j].ContractAddress
	})
	return states, nil
}

// UpdateCurveStates applies every state under one lock. Unknown mints are skipped and
// unchanged rows are not counted, matching the PostgreSQL store.
func (s *AssetStore) UpdateCurveStates(_ context.Context, states []domain.CurveState) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	updated := 0
	for _, st := range states {
		a, exists := s.data[st.ContractAddress]
		if !exists {
			continue
		}
		pct := min(max(st.BondingCurvePercentage, 0), 100)
		repair := st.Graduated && a.Status != domain.StatusGraduated
		if a.BondingCurvePercentage == pct && equalCap(a.MarketCap, st.MarketCap) && !repair {
			continue
		}
		a.BondingCurvePercentage = pct
		a.MarketCap = copyCap(st.MarketCap)
		if st.Graduated {
			a.Status = domain.StatusGraduated
		}
		a.UpdatedAt = now
		updated++
	}
	return updated, nil
}

func copyAsset(a *domain.Asset) *domain.Asset {
	c := *a
	c.MarketCap = copyCap(a.MarketCap)
	return &c
}

func copyCap(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalCap(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
