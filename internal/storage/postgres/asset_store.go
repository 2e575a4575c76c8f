package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-curve-indexer/internal/domain"
	"solana-curve-indexer/internal/storage"
)

// curveStateChunk bounds the rows sent in one UPDATE of a curve-state flush.
const curveStateChunk = 5000

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

var _ storage.AssetStore = (*AssetStore)(nil)

const assetColumns = `
	id, created_at, updated_at, name, ticker, contract_address,
	bonding_curve_percentage, bond_status, market_cap, uri,
	bonding_curve_address, creator_address`

// Insert adds a new asset. Returns ErrDuplicateKey if contract_address exists.
func (s *AssetStore) Insert(ctx context.Context, a *domain.Asset) (err error) {
	defer observe("asset_insert", time.Now(), &err)

	if a == nil || a.ContractAddress == "" || !a.Status.Valid() {
		return storage.ErrInvalidInput
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO asset (`+assetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		a.ID, a.CreatedAt, a.UpdatedAt, a.Name, a.Ticker, a.ContractAddress,
		a.BondingCurvePercentage, string(a.Status), a.MarketCap, a.URI,
		a.BondingCurveAddress, a.CreatorAddress,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByContract retrieves an asset by mint. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByContract(ctx context.Context, contractAddress string) (*domain.Asset, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM asset WHERE contract_address = $1`, contractAddress)
	a, err := scanAsset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

// GetAll retrieves every asset, newest first.
func (s *AssetStore) GetAll(ctx context.Context) (assets []*domain.Asset, err error) {
	defer observe("asset_get_all", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `SELECT `+assetColumns+` FROM asset ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// SetStatus persists a lifecycle status. Returns ErrNotFound for an unknown mint.
func (s *AssetStore) SetStatus(ctx context.Context, contractAddress string, status domain.LifecycleStatus) (err error) {
	defer observe("asset_set_status", time.Now(), &err)

	if !status.Valid() {
		return storage.ErrInvalidInput
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE asset SET bond_status = $2, updated_at = now()
		WHERE contract_address = $1
	`, contractAddress, string(status))
	if err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetCurveStates loads the bonding state of every asset, ordered by contract address.
func (s *AssetStore) GetCurveStates(ctx context.Context) ([]domain.CurveState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT contract_address, bonding_curve_address, bonding_curve_percentage, market_cap, bond_status
		FROM asset
		ORDER BY contract_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query curve states: %w", err)
	}
	defer rows.Close()

	var states []domain.CurveState
	for rows.Next() {
		var (
			st     domain.CurveState
			status string
		)
		if err := rows.Scan(&st.ContractAddress, &st.BondingCurveAddress, &st.BondingCurvePercentage, &st.MarketCap, &status); err != nil {
			return nil, fmt.Errorf("scan curve state: %w", err)
		}
		st.Graduated = domain.LifecycleStatus(status) == domain.StatusGraduated
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curve states: %w", err)
	}
	return states, nil
}

// UpdateCurveStates writes percentage and market cap for each state in one
// transaction. A Graduated state also forces bond_status to graduated, so a status
// write lost on the event path is repaired by the next flush. Rows whose values are
// unchanged are not rewritten and not counted.
func (s *AssetStore) UpdateCurveStates(ctx context.Context, states []domain.CurveState) (updated int, err error) {
	defer observe("asset_update_curve_states", time.Now(), &err)

	if len(states) == 0 {
		return 0, nil
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(states); start += curveStateChunk {
			end := min(start+curveStateChunk, len(states))
			n, err := updateCurveChunk(ctx, tx, states[start:end])
			if err != nil {
				return err
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update curve states: %w", err)
	}
	return updated, nil
}

func updateCurveChunk(ctx context.Context, tx pgx.Tx, states []domain.CurveState) (int, error) {
	keys := make([]string, len(states))
	pcts := make([]int32, len(states))
	caps := make([]*int64, len(states))
	grads := make([]bool, len(states))
	for i, st := range states {
		keys[i] = st.ContractAddress
		pcts[i] = int32(min(max(st.BondingCurvePercentage, 0), 100))
		caps[i] = st.MarketCap
		grads[i] = st.Graduated
	}

	tag, err := tx.Exec(ctx, `
		UPDATE asset AS t SET
			bonding_curve_percentage = u.pct,
			market_cap = u.mc,
			bond_status = CASE WHEN u.graduated THEN 'graduated' ELSE t.bond_status END,
			updated_at = now()
		FROM UNNEST($1::text[], $2::int[], $3::bigint[], $4::boolean[]) AS u(contract_address, pct, mc, graduated)
		WHERE t.contract_address = u.contract_address
		  AND (
			t.bonding_curve_percentage IS DISTINCT FROM u.pct
			OR t.market_cap IS DISTINCT FROM u.mc
			OR (u.graduated AND t.bond_status <> 'graduated')
		  )
	`, keys, pcts, caps, grads)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// scanAsset scans a single asset from a row.
func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var (
		a      domain.Asset
		status string
	)
	err := row.Scan(
		&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.Name, &a.Ticker, &a.ContractAddress,
		&a.BondingCurvePercentage, &status, &a.MarketCap, &a.URI,
		&a.BondingCurveAddress, &a.CreatorAddress,
	)
	if err != nil {
		return nil, err
	}
	a.Status = domain.LifecycleStatus(status)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}
