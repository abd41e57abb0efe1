package wallets

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
)

func setupWalletsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  owner_type TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  balance NUMERIC NOT NULL DEFAULT 0,
  pending_balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (owner_type, owner_id)
);`
	transactions := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  balance_before NUMERIC NOT NULL,
  balance_after NUMERIC NOT NULL,
  reference TEXT NOT NULL,
  description TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func insertTestWallet(t *testing.T, db *gorm.DB, ownerType enums.WalletOwnerType, balance string) *models.Wallet {
	t.Helper()
	wallet := &models.Wallet{
		ID:             uuid.New(),
		OwnerType:      ownerType,
		OwnerID:        uuid.New(),
		Balance:        decimal.RequireFromString(balance),
		PendingBalance: decimal.Zero,
	}
	require.NoError(t, db.Create(wallet).Error)
	return wallet
}

func TestRepository_GetOrCreate(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ownerID := uuid.New()
	first, err := repo.GetOrCreate(ctx, enums.WalletOwnerVendor, ownerID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)
	assert.True(t, first.Balance.IsZero())
	assert.True(t, first.PendingBalance.IsZero())

	second, err := repo.GetOrCreate(ctx, enums.WalletOwnerVendor, ownerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := repo.GetOrCreate(ctx, enums.WalletOwnerLogistics, ownerID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestRepository_FindForUpdateNotFound(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindForUpdate(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestRepository_LockManyForUpdateDeduplicates(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := insertTestWallet(t, db, enums.WalletOwnerVendor, "10.00")
	b := insertTestWallet(t, db, enums.WalletOwnerPlatform, "20.00")

	locked, err := repo.LockManyForUpdate(ctx, []uuid.UUID{b.ID, a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, locked, 2)
	assert.True(t, locked[a.ID].Balance.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, locked[b.ID].Balance.Equal(decimal.RequireFromString("20.00")))
}

func TestRepository_TransactionsRoundTrip(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	wallet := insertTestWallet(t, db, enums.WalletOwnerVendor, "0")

	for i, amount := range []string{"100.00", "50.00", "25.00"} {
		entry := &models.WalletTransaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			Type:          enums.WalletTransactionCredit,
			Amount:        decimal.RequireFromString(amount),
			BalanceBefore: decimal.Zero,
			BalanceAfter:  decimal.RequireFromString(amount),
			Reference:     "ref-shared",
			Description:   "seed",
		}
		require.NoError(t, repo.CreateTransaction(ctx, entry), "entry %d", i)
	}

	listed, err := repo.ListTransactions(ctx, wallet.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	byRef, err := repo.ListTransactionsByReference(ctx, "ref-shared")
	require.NoError(t, err)
	assert.Len(t, byRef, 3)
}

func TestRepository_UpdateBalances(t *testing.T) {
	db := setupWalletsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	wallet := insertTestWallet(t, db, enums.WalletOwnerVendor, "100.00")
	wallet.Balance = decimal.RequireFromString("75.00")
	wallet.PendingBalance = decimal.RequireFromString("12.50")
	require.NoError(t, repo.UpdateBalances(ctx, wallet))

	reloaded, err := repo.FindByOwner(ctx, wallet.OwnerType, wallet.OwnerID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("75.00")))
	assert.True(t, reloaded.PendingBalance.Equal(decimal.RequireFromString("12.50")))
}

// sqlRecorder captures the SQL gorm executes so tests can assert statement
// ordering.
type sqlRecorder struct {
	statements []string
}

func (r *sqlRecorder) LogMode(gormlogger.LogLevel) gormlogger.Interface { return r }

func (r *sqlRecorder) Info(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Warn(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.statements = append(r.statements, sql)
}

func TestRepository_LockManyForUpdateLocksInAscendingIDOrder(t *testing.T) {
	db := setupWalletsTestDB(t)
	recorder := &sqlRecorder{}
	repo := NewRepository(db.Session(&gorm.Session{Logger: recorder}))
	ctx := context.Background()

	a := insertTestWallet(t, db, enums.WalletOwnerVendor, "10.00")
	b := insertTestWallet(t, db, enums.WalletOwnerPlatform, "20.00")
	c := insertTestWallet(t, db, enums.WalletOwnerLogistics, "30.00")

	ids := []uuid.UUID{c.ID, a.ID, b.ID}
	locked, err := repo.LockManyForUpdate(ctx, ids)
	require.NoError(t, err)
	require.Len(t, locked, 3)

	var lockedOrder []string
	for _, stmt := range recorder.statements {
		for _, id := range ids {
			if strings.Contains(stmt, id.String()) {
				lockedOrder = append(lockedOrder, id.String())
			}
		}
	}

	want := []string{a.ID.String(), b.ID.String(), c.ID.String()}
	sort.Strings(want)
	assert.Equal(t, want, lockedOrder,
		"wallet rows must be locked in ascending id order regardless of input order")
}
