package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendora-labs/vendora-backend/internal/payments"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	defaultStalePaymentAge    = 30 * time.Minute
	defaultStaleWithdrawalAge = 30 * time.Minute
	defaultReconcileBatch     = 25
)

type stalePaymentReader interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error)
}

type paymentVerifier interface {
	Verify(ctx context.Context, reference string) (*payments.VerifyResult, error)
}

type openWithdrawalReader interface {
	ListProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.WalletWithdrawal, error)
}

type withdrawalReconciler interface {
	Reconcile(ctx context.Context, withdrawal *models.WalletWithdrawal) error
}

// SettlementReconcileJobParams configure the gateway reconciliation job.
type SettlementReconcileJobParams struct {
	Logger         *logger.Logger
	PaymentReader  stalePaymentReader
	Payments       paymentVerifier
	WithdrawalRead openWithdrawalReader
	Withdrawals    withdrawalReconciler

	StalePaymentAge    time.Duration
	StaleWithdrawalAge time.Duration
	BatchSize          int
}

// NewSettlementReconcileJob builds the cron job that re-checks stale gateway
// state: pending payments that never saw a verify call and withdrawals stuck
// in processing because a transfer webhook was missed.
func NewSettlementReconcileJob(params SettlementReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PaymentReader == nil {
		return nil, fmt.Errorf("payment reader required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if params.WithdrawalRead == nil {
		return nil, fmt.Errorf("withdrawal reader required")
	}
	if params.Withdrawals == nil {
		return nil, fmt.Errorf("withdrawal reconciler required")
	}
	paymentAge := params.StalePaymentAge
	if paymentAge <= 0 {
		paymentAge = defaultStalePaymentAge
	}
	withdrawalAge := params.StaleWithdrawalAge
	if withdrawalAge <= 0 {
		withdrawalAge = defaultStaleWithdrawalAge
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReconcileBatch
	}
	return &settlementReconcileJob{
		logg:           params.Logger,
		paymentReader:  params.PaymentReader,
		payments:       params.Payments,
		withdrawalRead: params.WithdrawalRead,
		withdrawals:    params.Withdrawals,
		paymentAge:     paymentAge,
		withdrawalAge:  withdrawalAge,
		batchSize:      batchSize,
		now:            time.Now,
	}, nil
}

type settlementReconcileJob struct {
	logg           *logger.Logger
	paymentReader  stalePaymentReader
	payments       paymentVerifier
	withdrawalRead openWithdrawalReader
	withdrawals    withdrawalReconciler
	paymentAge     time.Duration
	withdrawalAge  time.Duration
	batchSize      int
	now            func() time.Time
}

func (j *settlementReconcileJob) Name() string { return "settlement-reconcile" }

func (j *settlementReconcileJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.reconcilePayments(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.reconcileWithdrawals(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *settlementReconcileJob) reconcilePayments(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.paymentAge)
	stale, err := j.paymentReader.ListStalePending(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale pending payments: %w", err)
	}
	var errs []error
	count := 0
	for _, payment := range stale {
		if _, err := j.payments.Verify(ctx, payment.TransactionReference); err != nil {
			itemCtx := j.logg.WithField(ctx, "reference", payment.TransactionReference)
			j.logg.Error(itemCtx, "stale payment verification failed", err)
			errs = append(errs, fmt.Errorf("verify %s: %w", payment.TransactionReference, err))
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "stale": len(stale)})
	j.logg.Info(logCtx, "stale payment reconciliation loop complete")
	return multierr.Combine(errs...)
}

func (j *settlementReconcileJob) reconcileWithdrawals(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.withdrawalAge)
	open, err := j.withdrawalRead.ListProcessing(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query processing withdrawals: %w", err)
	}
	var errs []error
	count := 0
	for i := range open {
		withdrawal := open[i]
		if err := j.withdrawals.Reconcile(ctx, &withdrawal); err != nil {
			itemCtx := j.logg.WithField(ctx, "reference", withdrawal.Reference)
			j.logg.Error(itemCtx, "withdrawal reconciliation failed", err)
			errs = append(errs, fmt.Errorf("reconcile %s: %w", withdrawal.Reference, err))
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "open": len(open)})
	j.logg.Info(logCtx, "withdrawal reconciliation loop complete")
	return multierr.Combine(errs...)
}
