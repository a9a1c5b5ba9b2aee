package repository

import (
	"context"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/pkg/errs"
)

// CatalogRepository reads the size variants the catalog service publishes.
type CatalogRepository struct {
	db db.DBTX
}

func NewCatalogRepository(db db.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ValidateSizeVariant(ctx context.Context, key offer.Key) error {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM product_size_variants
			WHERE product_id = $1 AND size_variant_id = $2 AND is_active
		)`,
		key.ProductID, key.SizeVariantID).Scan(&exists)
	if err != nil {
		return infra.WrapRepoErr("failed to validate size variant", err)
	}
	if !exists {
		return errs.Mark(errs.Newf("size variant %s not found", key), errs.ErrSizeVariantNotFound)
	}
	return nil
}
