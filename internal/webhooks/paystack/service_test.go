package paystackwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora-labs/vendora-backend/internal/payments"
	"github.com/vendora-labs/vendora-backend/internal/withdrawals"
	"github.com/vendora-labs/vendora-backend/pkg/db/models"
	"github.com/vendora-labs/vendora-backend/pkg/enums"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/paystack"
)

func TestEventIDDerivesFromReference(t *testing.T) {
	event := &paystack.WebhookEvent{
		Event: "charge.success",
		Data:  json.RawMessage(`{"reference":"pay_abc"}`),
	}
	id, err := EventID(event)
	if err != nil {
		t.Fatalf("event id: %v", err)
	}
	if id != "charge.success:pay_abc" {
		t.Fatalf("unexpected event id %s", id)
	}
}

func TestEventIDRejectsMissingReference(t *testing.T) {
	event := &paystack.WebhookEvent{
		Event: "charge.success",
		Data:  json.RawMessage(`{}`),
	}
	if _, err := EventID(event); err == nil {
		t.Fatal("expected error for missing reference")
	}
}

func TestService_HandleChargeEventVerifiesPayment(t *testing.T) {
	paymentsSvc := &stubPayments{
		result: &payments.VerifyResult{
			PaymentID: uuid.New(),
			OrderID:   uuid.New(),
			Status:    enums.PaymentStatusSuccess,
		},
	}
	withdrawalsSvc := &stubWithdrawals{}
	service := newWebhookService(t, paymentsSvc, withdrawalsSvc)

	event := &paystack.WebhookEvent{
		Event: "charge.success",
		Data:  json.RawMessage(`{"reference":"pay_abc","status":"success","amount":150000}`),
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(paymentsSvc.verified) != 1 || paymentsSvc.verified[0] != "pay_abc" {
		t.Fatalf("expected verify called with pay_abc, got %v", paymentsSvc.verified)
	}
	if len(withdrawalsSvc.events) != 0 {
		t.Fatalf("transfer handler should not run for charge events")
	}
}

func TestService_HandleChargeEventPropagatesVerifyError(t *testing.T) {
	paymentsSvc := &stubPayments{err: errors.New("gateway unreachable")}
	service := newWebhookService(t, paymentsSvc, &stubWithdrawals{})

	event := &paystack.WebhookEvent{
		Event: "charge.success",
		Data:  json.RawMessage(`{"reference":"pay_abc"}`),
	}
	if err := service.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected verify error to propagate")
	}
}

func TestService_HandleTransferEventRoutesToWithdrawals(t *testing.T) {
	withdrawalsSvc := &stubWithdrawals{}
	service := newWebhookService(t, &stubPayments{}, withdrawalsSvc)

	event := &paystack.WebhookEvent{
		Event: "transfer.success",
		Data:  json.RawMessage(`{"reference":"wd_1","transfer_code":"TRF_1","status":"success","amount":50000}`),
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(withdrawalsSvc.events) != 1 {
		t.Fatalf("expected one transfer event, got %d", len(withdrawalsSvc.events))
	}
	if withdrawalsSvc.events[0].name != "transfer.success" {
		t.Fatalf("unexpected event name %s", withdrawalsSvc.events[0].name)
	}
	if withdrawalsSvc.events[0].data.Reference != "wd_1" {
		t.Fatalf("unexpected reference %s", withdrawalsSvc.events[0].data.Reference)
	}
}

func TestService_HandleUnknownEventIsIgnored(t *testing.T) {
	paymentsSvc := &stubPayments{}
	withdrawalsSvc := &stubWithdrawals{}
	service := newWebhookService(t, paymentsSvc, withdrawalsSvc)

	event := &paystack.WebhookEvent{
		Event: "customeridentification.success",
		Data:  json.RawMessage(`{"reference":"x"}`),
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown events should be acknowledged: %v", err)
	}
	if len(paymentsSvc.verified) != 0 || len(withdrawalsSvc.events) != 0 {
		t.Fatal("no domain handler should run for unknown events")
	}
}

func newWebhookService(t *testing.T, p payments.Service, w withdrawals.Service) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Payments:    p,
		Withdrawals: w,
		Logger:      logger.New(logger.Options{ServiceName: "webhook-test"}),
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return service
}

type stubPayments struct {
	result   *payments.VerifyResult
	err      error
	verified []string
}

func (s *stubPayments) Initialize(ctx context.Context, orderID uuid.UUID, email string) (*payments.InitializeResult, error) {
	return nil, nil
}

func (s *stubPayments) Verify(ctx context.Context, reference string) (*payments.VerifyResult, error) {
	s.verified = append(s.verified, reference)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubPayments) HasSuccessfulPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	return false, nil
}

type transferCall struct {
	name string
	data paystack.TransferEventData
}

type stubWithdrawals struct {
	events []transferCall
	err    error
}

func (s *stubWithdrawals) Request(ctx context.Context, input withdrawals.RequestInput) (*models.WalletWithdrawal, error) {
	return nil, nil
}

func (s *stubWithdrawals) HandleTransferEvent(ctx context.Context, eventName string, data paystack.TransferEventData) error {
	s.events = append(s.events, transferCall{name: eventName, data: data})
	return s.err
}

func (s *stubWithdrawals) Reconcile(ctx context.Context, withdrawal *models.WalletWithdrawal) error {
	return nil
}
