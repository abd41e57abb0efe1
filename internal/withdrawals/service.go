package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/internal/wallets"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/metrics"
	"github.com/vendora-labs/vendora-backend/pkg/outbox"
	"github.com/vendora-labs/vendora-backend/pkg/outbox/payloads"
	"github.com/vendora-labs/vendora-backend/pkg/paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type transferGateway interface {
	CreateTransferRecipient(ctx context.Context, params paystack.CreateTransferRecipientParams) (*paystack.TransferRecipient, error)
	InitiateTransfer(ctx context.Context, params paystack.InitiateTransferParams) (*paystack.TransferData, error)
	FetchTransfer(ctx context.Context, transferCode string) (*paystack.TransferData, error)
}

// RequestInput describes a payout from an owner's wallet to a bank account.
type RequestInput struct {
	OwnerType     enums.WalletOwnerType
	OwnerID       uuid.UUID
	Amount        decimal.Decimal
	RecipientName string
	BankCode      string
	AccountNumber string
}

// Service owns the withdrawal lifecycle: reserve, transfer, reconcile.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.WalletWithdrawal, error)
	HandleTransferEvent(ctx context.Context, eventName string, data paystack.TransferEventData) error
	Reconcile(ctx context.Context, withdrawal *models.WalletWithdrawal) error
}

type service struct {
	tx        txRunner
	repo      Repository
	walletSvc wallets.Service
	gateway   transferGateway
	publisher outboxPublisher
	ledger    *metrics.LedgerMetrics
	logg      *logger.Logger
}

// NewService wires the withdrawal service.
func NewService(
	tx txRunner,
	repo Repository,
	walletSvc wallets.Service,
	gateway transferGateway,
	publisher outboxPublisher,
	ledger *metrics.LedgerMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals: transaction runner is required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals: repository is required")
	}
	if walletSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals: wallet service is required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals: transfer gateway is required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals: outbox publisher is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals: logger is required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		walletSvc: walletSvc,
		gateway:   gateway,
		publisher: publisher,
		ledger:    ledger,
		logg:      logg,
	}, nil
}

// Request reserves the amount by debiting the wallet before any gateway
// call, then asks the gateway to move the money. A gateway failure flips
// the withdrawal to failed and credits the reservation straight back.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.WalletWithdrawal, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if input.RecipientName == "" || input.BankCode == "" || input.AccountNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient name, bank code and account number are required")
	}

	wallet, err := s.walletSvc.EnsureWallet(ctx, input.OwnerType, input.OwnerID)
	if err != nil {
		return nil, err
	}

	reference := "wd-" + uuid.NewString()
	withdrawal := &models.WalletWithdrawal{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Amount:        input.Amount,
		RecipientName: input.RecipientName,
		BankCode:      input.BankCode,
		AccountNumber: input.AccountNumber,
		Reference:     reference,
		Status:        enums.WithdrawalStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.walletSvc.Debit(ctx, tx, wallets.Entry{
			WalletID:    wallet.ID,
			Amount:      input.Amount,
			Reference:   reference,
			Description: "withdrawal to " + input.RecipientName,
		}); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, withdrawal); err != nil {
			return err
		}
		return s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalRequested,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   withdrawal.ID,
			Version:       1,
			Data: payloads.WithdrawalRequestedEvent{
				WithdrawalID: withdrawal.ID,
				WalletID:     wallet.ID,
				Amount:       input.Amount,
				Reference:    reference,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.startTransfer(ctx, withdrawal); err != nil {
		if refundErr := s.failAndRefund(ctx, reference, err.Error()); refundErr != nil {
			s.logg.Error(ctx, "withdrawal refund failed", refundErr)
		}
		return nil, err
	}
	return withdrawal, nil
}

func (s *service) startTransfer(ctx context.Context, withdrawal *models.WalletWithdrawal) error {
	started := time.Now()
	recipient, err := s.gateway.CreateTransferRecipient(ctx, paystack.CreateTransferRecipientParams{
		Name:          withdrawal.RecipientName,
		AccountNumber: withdrawal.AccountNumber,
		BankCode:      withdrawal.BankCode,
	})
	s.observeGateway("transfer_recipient", started, err)
	if err != nil {
		return err
	}

	started = time.Now()
	transfer, err := s.gateway.InitiateTransfer(ctx, paystack.InitiateTransferParams{
		Amount:    withdrawal.Amount,
		Recipient: recipient.RecipientCode,
		Reference: withdrawal.Reference,
		Reason:    "wallet withdrawal",
	})
	s.observeGateway("transfer_initiate", started, err)
	if err != nil {
		return err
	}

	withdrawal.Status = enums.WithdrawalStatusProcessing
	withdrawal.RecipientCode = &recipient.RecipientCode
	withdrawal.TransferCode = &transfer.TransferCode
	if err := s.repo.Save(ctx, withdrawal); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"withdrawal_id": withdrawal.ID.String(),
		"reference":     withdrawal.Reference,
		"transfer_code": transfer.TransferCode,
	}), "withdrawal transfer initiated")
	return nil
}

// HandleTransferEvent applies a gateway transfer webhook. Deliveries are
// at least once; the status guard makes the refund happen at most once.
func (s *service) HandleTransferEvent(ctx context.Context, eventName string, data paystack.TransferEventData) error {
	switch eventName {
	case "transfer.success":
		return s.complete(ctx, data.Reference)
	case "transfer.failed", "transfer.reversed":
		return s.failAndRefund(ctx, data.Reference, data.Reason)
	default:
		s.ledger.IncWebhookEvent(eventName, "ignored")
		return nil
	}
}

// Reconcile re-polls the gateway for a withdrawal stuck in processing and
// applies the outcome through the same guarded paths as the webhook.
func (s *service) Reconcile(ctx context.Context, withdrawal *models.WalletWithdrawal) error {
	if withdrawal.TransferCode == nil {
		return nil
	}
	started := time.Now()
	transfer, err := s.gateway.FetchTransfer(ctx, *withdrawal.TransferCode)
	s.observeGateway("transfer_fetch", started, err)
	if err != nil {
		return err
	}
	switch transfer.Status {
	case paystack.TransferSuccess:
		return s.complete(ctx, withdrawal.Reference)
	case paystack.TransferFailed, paystack.TransferReversed:
		return s.failAndRefund(ctx, withdrawal.Reference, transfer.Reason)
	default:
		return nil
	}
}

func (s *service) complete(ctx context.Context, reference string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := repo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if !isOpen(withdrawal.Status) {
			s.ledger.IncWebhookEvent("transfer.success", "duplicate")
			return nil
		}

		now := time.Now().UTC()
		withdrawal.Status = enums.WithdrawalStatusCompleted
		withdrawal.CompletedAt = &now
		if err := repo.Save(ctx, withdrawal); err != nil {
			return err
		}

		s.ledger.IncWebhookEvent("transfer.success", "applied")
		return s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalCompleted,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   withdrawal.ID,
			Version:       1,
			Data: payloads.WithdrawalCompletedEvent{
				WithdrawalID: withdrawal.ID,
				WalletID:     withdrawal.WalletID,
				Reference:    withdrawal.Reference,
				CompletedAt:  now,
			},
		})
	})
}

func (s *service) failAndRefund(ctx context.Context, reference, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		withdrawal, err := repo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if !isOpen(withdrawal.Status) || withdrawal.RefundedAt != nil {
			s.ledger.IncWebhookEvent("transfer.failed", "duplicate")
			return nil
		}

		if _, err := s.walletSvc.Credit(ctx, tx, wallets.Entry{
			WalletID:    withdrawal.WalletID,
			Amount:      withdrawal.Amount,
			Reference:   withdrawal.Reference,
			Description: "withdrawal refund",
		}); err != nil {
			return err
		}

		now := time.Now().UTC()
		withdrawal.Status = enums.WithdrawalStatusFailed
		withdrawal.RefundedAt = &now
		if reason != "" {
			withdrawal.FailureReason = &reason
		}
		if err := repo.Save(ctx, withdrawal); err != nil {
			return err
		}

		s.ledger.IncWebhookEvent("transfer.failed", "applied")
		return s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalReversed,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   withdrawal.ID,
			Version:       1,
			Data: payloads.WithdrawalReversedEvent{
				WithdrawalID: withdrawal.ID,
				WalletID:     withdrawal.WalletID,
				Amount:       withdrawal.Amount,
				Reference:    withdrawal.Reference,
				Reason:       reason,
				RefundedAt:   now,
			},
		})
	})
}

func isOpen(status enums.WithdrawalStatus) bool {
	return status == enums.WithdrawalStatusPending || status == enums.WithdrawalStatusProcessing
}

func (s *service) observeGateway(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.ledger.ObserveGatewayCall(operation, status, time.Since(started))
}
