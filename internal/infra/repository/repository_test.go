//go:build unit

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/transaction"
	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/repository"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB answers every statement with the configured tag, error or row.
type fakeDB struct {
	tag     pgconn.CommandTag
	execErr error
	row     pgx.Row

	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.tag, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	return nil, errors.New("fakeDB.Query is not scripted")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	if f.row == nil {
		panic("fakeDB.QueryRow was called without a scripted row")
	}
	return f.row
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func errRow(err error) fakeRow {
	return fakeRow{scan: func(...any) error { return err }}
}

func assertKind(t *testing.T, err error, kind infra.RepositoryErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, infra.IsKind(err, kind), "expected kind [%v] but got [%T] (%v)", kind, err, err)
}

// =============================================================================
// OfferRepository Tests
// =============================================================================

func TestOfferRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	testCases := []struct {
		name        string
		tag         pgconn.CommandTag
		execErr     error
		expectError bool
		expectKind  infra.RepositoryErrorKind
	}{
		{
			name: "success: one row moved",
			tag:  pgconn.NewCommandTag("UPDATE 1"),
		},
		{
			name:        "error: row already left the expected status",
			tag:         pgconn.NewCommandTag("UPDATE 0"),
			expectError: true,
			expectKind:  infra.KindStale,
		},
		{
			name:        "error: database failure",
			execErr:     errors.New("connection reset"),
			expectError: true,
			expectKind:  infra.KindDBFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := &fakeDB{tag: tc.tag, execErr: tc.execErr}
			repo := repository.NewOfferRepository(db)

			err := repo.UpdateStatus(ctx, id, offer.StatusOpen, offer.StatusCancelled, builder.BaseTime)

			if tc.expectError {
				assertKind(t, err, tc.expectKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []any{id, "open", "cancelled", builder.BaseTime}, db.lastArgs)
		})
	}
}

func TestOfferRepository_Create(t *testing.T) {
	ctx := context.Background()
	o := builder.NewOfferBuilder().WithPrice(25_000).WithPaymentMethodRef("pm_1").MustBuild()

	t.Run("success: rates are sent as decimal strings", func(t *testing.T) {
		db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
		repo := repository.NewOfferRepository(db)

		require.NoError(t, repo.Create(ctx, o))
		require.Len(t, db.lastArgs, 15)
		assert.Equal(t, o.ID(), db.lastArgs[0])
		assert.Equal(t, "0.04", db.lastArgs[7])
		assert.Equal(t, "0.03", db.lastArgs[8])
	})

	t.Run("error: unique violation maps to duplicate key", func(t *testing.T) {
		db := &fakeDB{execErr: &pgconn.PgError{Code: "23505"}}
		repo := repository.NewOfferRepository(db)

		assertKind(t, repo.Create(ctx, o), infra.KindDuplicateKey)
	})
}

func TestOfferRepository_FindByID(t *testing.T) {
	db := &fakeDB{row: errRow(pgx.ErrNoRows)}
	repo := repository.NewOfferRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assertKind(t, err, infra.KindNotFound)
}

func TestOfferRepository_MaxSeq(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*int64) = 42
		return nil
	}}}
	repo := repository.NewOfferRepository(db)

	seq, err := repo.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)
}

// =============================================================================
// TransactionRepository Tests
// =============================================================================

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	bid := builder.NewOfferBuilder().AsBid().WithPrice(25_000).MustBuild()
	ask := builder.NewOfferBuilder().AsAsk().WithPrice(24_000).MustBuild()
	tx := mustMatch(t, bid, ask)

	testCases := []struct {
		name        string
		tag         pgconn.CommandTag
		execErr     error
		expectError bool
		expectKind  infra.RepositoryErrorKind
	}{
		{
			name: "success: row inserted",
			tag:  pgconn.NewCommandTag("INSERT 0 1"),
		},
		{
			name:        "error: idempotency key already recorded",
			tag:         pgconn.NewCommandTag("INSERT 0 0"),
			expectError: true,
			expectKind:  infra.KindDuplicateKey,
		},
		{
			name:        "error: referenced offer missing",
			execErr:     &pgconn.PgError{Code: "23503"},
			expectError: true,
			expectKind:  infra.KindForeignKeyViolated,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := &fakeDB{tag: tc.tag, execErr: tc.execErr}
			repo := repository.NewTransactionRepository(db)

			err := repo.Create(ctx, tx)

			if tc.expectError {
				assertKind(t, err, tc.expectKind)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, db.lastSQL, "ON CONFLICT (idempotency_key) DO NOTHING")
			assert.Equal(t, tx.IdempotencyKey(), db.lastArgs[1])
		})
	}
}

func TestTransactionRepository_FindByIdempotencyKey(t *testing.T) {
	db := &fakeDB{row: errRow(pgx.ErrNoRows)}
	repo := repository.NewTransactionRepository(db)

	_, err := repo.FindByIdempotencyKey(context.Background(), "missing")
	assertKind(t, err, infra.KindNotFound)
}

// =============================================================================
// AccountRepository Tests
// =============================================================================

func TestAccountRepository_GetFeeSchedule(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewTestConfig()

	testCases := []struct {
		name        string
		row         fakeRow
		expectError bool
		expectKind  infra.RepositoryErrorKind
		expectRate  string
	}{
		{
			name: "success: per-user override",
			row: fakeRow{scan: func(dest ...any) error {
				*dest[0].(*string) = "0.02"
				*dest[1].(*string) = "0.01"
				*dest[2].(*string) = "0"
				return nil
			}},
			expectRate: "0.02",
		},
		{
			name:       "success: no override falls back to defaults",
			row:        errRow(pgx.ErrNoRows),
			expectRate: "0.04",
		},
		{
			name:        "error: database failure",
			row:         errRow(errors.New("timeout")),
			expectError: true,
			expectKind:  infra.KindDBFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := repository.NewAccountRepository(&fakeDB{row: tc.row}, cfg)
			require.NoError(t, err)

			fees, err := repo.GetFeeSchedule(ctx, uuid.New(), offer.RoleSeller)

			if tc.expectError {
				assertKind(t, err, tc.expectKind)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.expectRate).Equal(fees.SellerCommissionRate()),
				"got %s", fees.SellerCommissionRate())
		})
	}
}

func TestNewAccountRepository_RejectsBadDefaults(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.Fees.SellerCommissionRate = "1.5"

	_, err := repository.NewAccountRepository(&fakeDB{}, cfg)
	assert.Error(t, err)
}

// =============================================================================
// PaymentMethodRepository / CatalogRepository Tests
// =============================================================================

func TestPaymentMethodRepository_Validate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	methodRow := func(owner uuid.UUID, active bool) fakeRow {
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*uuid.UUID) = owner
			*dest[1].(*bool) = active
			return nil
		}}
	}

	testCases := []struct {
		name          string
		row           fakeRow
		expectInvalid bool
		expectOther   bool
	}{
		{name: "success: active method owned by user", row: methodRow(userID, true)},
		{name: "error: unknown reference", row: errRow(pgx.ErrNoRows), expectInvalid: true},
		{name: "error: owned by someone else", row: methodRow(uuid.New(), true), expectInvalid: true},
		{name: "error: deactivated", row: methodRow(userID, false), expectInvalid: true},
		{name: "error: database failure", row: errRow(errors.New("boom")), expectOther: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := repository.NewPaymentMethodRepository(&fakeDB{row: tc.row})

			err := repo.Validate(ctx, userID, "pm_1")

			switch {
			case tc.expectInvalid:
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.ErrInvalidPaymentMethod))
			case tc.expectOther:
				require.Error(t, err)
				assert.False(t, errs.Is(err, errs.ErrInvalidPaymentMethod))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestCatalogRepository_ValidateSizeVariant(t *testing.T) {
	existsRow := func(v bool) fakeRow {
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*bool) = v
			return nil
		}}
	}

	t.Run("success: active variant", func(t *testing.T) {
		repo := repository.NewCatalogRepository(&fakeDB{row: existsRow(true)})
		assert.NoError(t, repo.ValidateSizeVariant(context.Background(), builder.DefaultKey()))
	})

	t.Run("error: unknown variant", func(t *testing.T) {
		repo := repository.NewCatalogRepository(&fakeDB{row: existsRow(false)})
		err := repo.ValidateSizeVariant(context.Background(), builder.DefaultKey())
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrSizeVariantNotFound))
	})
}

func mustMatch(t *testing.T, bid, ask *offer.Offer) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewMatch(bid, ask, offer.SideAsk, transaction.NewDefaultFeeCalculator(),
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return tx
}
