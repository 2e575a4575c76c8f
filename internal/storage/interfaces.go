package storage

import (
	"context"

	"github.com/google/uuid"

	"solana-curve-indexer/internal/domain"
)

// AssetStore provides access to the asset table.
type AssetStore interface {
	// Insert adds a new asset. Returns ErrDuplicateKey if contract_address exists.
	Insert(ctx context.Context, a *domain.Asset) error

	// GetByContract retrieves an asset by mint. Returns ErrNotFound if not exists.
	GetByContract(ctx context.Context, contractAddress string) (*domain.Asset, error)

	// GetAll retrieves every asset, newest first.
	GetAll(ctx context.Context) ([]*domain.Asset, error)

	// SetStatus persists a lifecycle status. Returns ErrNotFound for an unknown mint.
	SetStatus(ctx context.Context, contractAddress string, status domain.LifecycleStatus) error

	// GetCurveStates loads the bonding state of every asset, ordered by contract address.
	GetCurveStates(ctx context.Context) ([]domain.CurveState, error)

	// UpdateCurveStates writes percentage and market cap for each state in one
	// transaction. Unknown mints are skipped. Returns the number of rows updated.
	UpdateCurveStates(ctx context.Context, states []domain.CurveState) (int, error)
}

// TradeStore provides access to the trade table.
type TradeStore interface {
	// InsertBatch writes trades in one statement. Trades whose mint has no asset row
	// and trades whose id already exists are skipped. Returns the ids inserted.
	InsertBatch(ctx context.Context, trades []domain.TradeRecord) ([]uuid.UUID, error)

	// GetAll retrieves every trade ordered by created_at, id.
	GetAll(ctx context.Context) ([]domain.TradeRecord, error)
}

// TradeArchive is an append-only secondary sink for persisted trades.
type TradeArchive interface {
	Append(ctx context.Context, trades []domain.TradeRecord) error
}
