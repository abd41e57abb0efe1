package paystackwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vendora-labs/vendora-backend/internal/payments"
	"github.com/vendora-labs/vendora-backend/internal/withdrawals"
	pkgerrors "github.com/vendora-labs/vendora-backend/pkg/errors"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/metrics"
	"github.com/vendora-labs/vendora-backend/pkg/paystack"
)

type ServiceParams struct {
	Payments    payments.Service
	Withdrawals withdrawals.Service
	Ledger      *metrics.LedgerMetrics
	Logger      *logger.Logger
}

// Service routes verified gateway webhook events to the owning domain service.
type Service struct {
	payments    payments.Service
	withdrawals withdrawals.Service
	ledger      *metrics.LedgerMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Withdrawals == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments:    params.Payments,
		withdrawals: params.Withdrawals,
		ledger:      params.Ledger,
		logg:        params.Logger,
	}, nil
}

// EventID derives a stable dedupe identifier for a webhook delivery. The
// gateway does not send a unique event id, so the event name plus the
// transaction reference stand in for one.
func EventID(event *paystack.WebhookEvent) (string, error) {
	if event == nil || len(event.Data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}
	var ref struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(event.Data, &ref); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event reference")
	}
	if ref.Reference == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "event reference missing")
	}
	return fmt.Sprintf("%s:%s", event.Event, ref.Reference), nil
}

func (s *Service) HandleEvent(ctx context.Context, event *paystack.WebhookEvent) error {
	if event == nil || len(event.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}

	switch {
	case strings.HasPrefix(event.Event, "charge."):
		return s.handleCharge(ctx, event)
	case strings.HasPrefix(event.Event, "transfer."):
		var data paystack.TransferEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode transfer event")
		}
		return s.withdrawals.HandleTransferEvent(ctx, event.Event, data)
	default:
		s.ledger.IncWebhookEvent(event.Event, "ignored")
		logCtx := s.logg.WithField(ctx, "event", event.Event)
		s.logg.Info(logCtx, "webhook event ignored")
		return nil
	}
}

func (s *Service) handleCharge(ctx context.Context, event *paystack.WebhookEvent) error {
	var data paystack.ChargeEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	if data.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge reference missing")
	}

	result, err := s.payments.Verify(ctx, data.Reference)
	if err != nil {
		s.ledger.IncWebhookEvent(event.Event, "failed")
		return err
	}

	outcome := "applied"
	if result.AlreadyProcessed {
		outcome = "duplicate"
	}
	s.ledger.IncWebhookEvent(event.Event, outcome)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event":     event.Event,
		"reference": data.Reference,
		"status":    string(result.Status),
	})
	s.logg.Info(logCtx, "charge event reconciled")
	return nil
}
