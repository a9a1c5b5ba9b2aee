//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kicks-exchange/internal/domain/offer"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func CreateSizeVariant(t *testing.T, db DBLike, key offer.Key) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO product_size_variants (product_id, size_variant_id, is_active)
		VALUES ($1, $2, true)
		ON CONFLICT (product_id, size_variant_id) DO UPDATE SET is_active = true`,
		key.ProductID, key.SizeVariantID)
	require.NoError(t, err)
}

func CreatePaymentMethod(t *testing.T, db DBLike, userID uuid.UUID, ref string) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO payment_methods (ref, user_id, is_active)
		VALUES ($1, $2, true)
		ON CONFLICT (ref) DO NOTHING`,
		ref, userID)
	require.NoError(t, err)
}

func CreateFeeSchedule(t *testing.T, db DBLike, userID uuid.UUID, role offer.Role, commission, txFee, buyerFee string) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO fee_schedules (user_id, role, seller_commission_rate, transaction_fee_rate, buyer_fee_rate)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric)
		ON CONFLICT (user_id, role) DO UPDATE SET
			seller_commission_rate = EXCLUDED.seller_commission_rate,
			transaction_fee_rate = EXCLUDED.transaction_fee_rate,
			buyer_fee_rate = EXCLUDED.buyer_fee_rate`,
		userID, string(role), commission, txFee, buyerFee)
	require.NoError(t, err)
}

// SeedReferenceData inserts the catalog rows every test can rely on.
func SeedReferenceData(pool *pgxpool.Pool, keys ...offer.Key) error {
	ctx := context.Background()

	for _, key := range keys {
		_, err := pool.Exec(ctx, `
			INSERT INTO product_size_variants (product_id, size_variant_id, is_active)
			VALUES ($1, $2, true)
			ON CONFLICT (product_id, size_variant_id) DO NOTHING`,
			key.ProductID, key.SizeVariantID)
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool, keys ...offer.Key) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool, keys...)
}
