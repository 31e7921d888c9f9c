package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tawandab/pawnshop-engine/internal/domain"
)

type assetRepository struct {
	db *sqlx.DB
}

func NewAssetRepository(db *sqlx.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (id, asset_no, owner_id, category, status, evaluated_value, active_loan_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.AssetNo,
		asset.OwnerID,
		asset.Category,
		asset.Status,
		asset.EvaluatedValue,
		asset.ActiveLoanID,
		now,
		now,
	)

	return translateError(err, "asset", asset.AssetNo)
}

func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `
		SELECT id, asset_no, owner_id, category, status, evaluated_value, active_loan_id, created_at, updated_at
		FROM assets
		WHERE id = $1
	`

	var asset domain.Asset
	if err := r.db.GetContext(ctx, &asset, query, id); err != nil {
		return nil, translateError(err, "asset", id.String())
	}

	return &asset, nil
}

func (r *assetRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE assets
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}
