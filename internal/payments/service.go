package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/internal/orders"
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

type gatewayClient interface {
	InitializeTransaction(ctx context.Context, params paystack.InitializeTransactionParams) (*paystack.InitializedTransaction, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error)
}

// InitializeResult hands the hosted checkout back to the caller.
type InitializeResult struct {
	PaymentID        uuid.UUID
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// VerifyResult reports the reconciled state of a payment reference.
type VerifyResult struct {
	PaymentID        uuid.UUID
	OrderID          uuid.UUID
	Status           enums.PaymentStatus
	AlreadyProcessed bool
}

// Service owns the payment lifecycle against the gateway.
type Service interface {
	Initialize(ctx context.Context, orderID uuid.UUID, email string) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
	HasSuccessfulPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	gateway   gatewayClient
	ordersSvc orders.Service
	publisher outboxPublisher
	ledger    *metrics.LedgerMetrics
	logg      *logger.Logger
}

// NewService wires the payment reconciliation service.
func NewService(
	tx txRunner,
	repo Repository,
	gateway gatewayClient,
	ordersSvc orders.Service,
	publisher outboxPublisher,
	ledger *metrics.LedgerMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: transaction runner is required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: repository is required")
	}
	if gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: gateway client is required")
	}
	if ordersSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: orders service is required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: outbox publisher is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments: logger is required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		gateway:   gateway,
		ordersSvc: ordersSvc,
		publisher: publisher,
		ledger:    ledger,
		logg:      logg,
	}, nil
}

// Initialize creates a pending payment row for the order and opens a hosted
// checkout at the gateway. Retried initializations create superseding
// payment rows with fresh references; only verification finalizes anything.
func (s *service) Initialize(ctx context.Context, orderID uuid.UUID, email string) (*InitializeResult, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	order, err := s.ordersSvc.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}
	if !order.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be greater than zero")
	}

	payment := &models.Payment{
		ID:                   uuid.New(),
		OrderID:              order.ID,
		Amount:               order.Total,
		Status:               enums.PaymentStatusPending,
		TransactionReference: "pay-" + uuid.NewString(),
		IdempotencyKey:       uuid.NewString(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	started := time.Now()
	initialized, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeTransactionParams{
		Email:     email,
		Amount:    order.Total,
		Reference: payment.TransactionReference,
	})
	s.observeGateway("initialize", started, err)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  order.ID.String(),
		"reference": payment.TransactionReference,
	}), "payment initialized")

	return &InitializeResult{
		PaymentID:        payment.ID,
		Reference:        payment.TransactionReference,
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
	}, nil
}

// Verify reconciles a payment reference against the gateway exactly once.
// The payment row is locked for the whole check, so concurrent verifies for
// the same reference serialize and the second one sees processed_at set.
func (s *service) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var result *VerifyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}

		if payment.ProcessedAt != nil {
			result = &VerifyResult{
				PaymentID:        payment.ID,
				OrderID:          payment.OrderID,
				Status:           payment.Status,
				AlreadyProcessed: true,
			}
			return nil
		}

		started := time.Now()
		data, err := s.gateway.VerifyTransaction(ctx, reference)
		s.observeGateway("verify", started, err)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway verification unavailable")
		}

		switch data.Status {
		case paystack.TransactionSuccess:
			return s.finalize(ctx, tx, payment, data, true, &result)
		case paystack.TransactionFailed, paystack.TransactionAbandoned:
			return s.finalize(ctx, tx, payment, data, false, &result)
		default:
			// Still pending at the gateway: leave processed_at null so a
			// later verify can finalize.
			result = &VerifyResult{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				Status:    enums.PaymentStatusPending,
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) finalize(ctx context.Context, tx *gorm.DB, payment *models.Payment, data *paystack.TransactionData, success bool, out **VerifyResult) error {
	now := time.Now().UTC()
	payment.ProcessedAt = &now
	payment.GatewayResponse = data.Raw
	if success {
		payment.Status = enums.PaymentStatusSuccess
	} else {
		payment.Status = enums.PaymentStatusFailed
	}

	if err := s.repo.WithTx(tx).SaveOutcome(ctx, payment); err != nil {
		return err
	}

	if success {
		order, err := s.ordersSvc.OrderTx(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := s.ordersSvc.ActivateAfterPayment(ctx, tx, order); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentVerified,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentVerifiedEvent{
				PaymentID:            payment.ID,
				OrderID:              payment.OrderID,
				Amount:               payment.Amount,
				TransactionReference: payment.TransactionReference,
				ProcessedAt:          now,
			},
		}
		if err := s.publisher.Emit(ctx, tx, event); err != nil {
			return err
		}
	} else {
		if err := s.ordersSvc.FailAfterPayment(ctx, tx, payment.OrderID); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				PaymentID:            payment.ID,
				OrderID:              payment.OrderID,
				TransactionReference: payment.TransactionReference,
				Reason:               data.GatewayResp,
			},
		}
		if err := s.publisher.Emit(ctx, tx, event); err != nil {
			return err
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"reference": payment.TransactionReference,
		"status":    payment.Status.String(),
	}), "payment finalized")

	*out = &VerifyResult{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Status:    payment.Status,
	}
	return nil
}

func (s *service) HasSuccessfulPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	return s.repo.WithTx(tx).HasSuccessful(ctx, orderID)
}

func (s *service) observeGateway(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.ledger.ObserveGatewayCall(operation, status, time.Since(started))
}
