package ledgerfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vendora-labs/vendora-backend/pkg/enums"
	"github.com/vendora-labs/vendora-backend/pkg/logger"
	"github.com/vendora-labs/vendora-backend/pkg/metrics"
	"github.com/vendora-labs/vendora-backend/pkg/outbox/payloads"
)

// AuditHandler turns ledger events into structured audit records. Every
// money movement ends up in the log stream with its amounts attached, so
// the feed doubles as a flight recorder for the wallet ledger.
type AuditHandler struct {
	ledger *metrics.LedgerMetrics
	logg   *logger.Logger
}

// NewAuditHandler wires the audit handler. Metrics may be nil.
func NewAuditHandler(ledger *metrics.LedgerMetrics, logg *logger.Logger) (*AuditHandler, error) {
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &AuditHandler{ledger: ledger, logg: logg}, nil
}

// Handle decodes the event payload and emits one audit log line per event.
func (h *AuditHandler) Handle(ctx context.Context, envelope Envelope) error {
	fields, err := h.auditFields(envelope)
	if err != nil {
		if errors.Is(err, ErrUnsupportedEventType) {
			h.ledger.IncFeedEvent(string(envelope.EventType), "skipped")
		} else {
			h.ledger.IncFeedEvent(string(envelope.EventType), "invalid")
		}
		return err
	}

	h.ledger.IncFeedEvent(string(envelope.EventType), "recorded")
	h.logg.Info(h.logg.WithFields(ctx, fields), "ledger audit record")
	return nil
}

func (h *AuditHandler) auditFields(envelope Envelope) (map[string]any, error) {
	switch envelope.EventType {
	case enums.EventOrderItemDispatched:
		var p payloads.OrderItemDispatchedEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"order_item_id":        p.OrderItemID.String(),
			"order_id":             p.OrderID.String(),
			"vendor_id":            p.VendorID.String(),
			"logistics_company_id": p.LogisticsCompanyID.String(),
			"pending_amount":       p.PendingAmount.String(),
		}, nil

	case enums.EventOrderItemSettled:
		var p payloads.OrderItemSettledEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"order_item_id":  p.OrderItemID.String(),
			"order_id":       p.OrderID.String(),
			"vendor_id":      p.VendorID.String(),
			"vendor_net":     p.VendorNet.String(),
			"platform_share": p.PlatformShare.String(),
			"partner_share":  p.PartnerShare.String(),
			"logistics_fee":  p.LogisticsFee.String(),
		}, nil

	case enums.EventPaymentVerified:
		var p payloads.PaymentVerifiedEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"payment_id": p.PaymentID.String(),
			"order_id":   p.OrderID.String(),
			"amount":     p.Amount.String(),
			"reference":  p.TransactionReference,
		}, nil

	case enums.EventPaymentFailed:
		var p payloads.PaymentFailedEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"payment_id": p.PaymentID.String(),
			"order_id":   p.OrderID.String(),
			"reference":  p.TransactionReference,
			"reason":     p.Reason,
		}, nil

	case enums.EventWithdrawalRequested:
		var p payloads.WithdrawalRequestedEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"withdrawal_id": p.WithdrawalID.String(),
			"wallet_id":     p.WalletID.String(),
			"amount":        p.Amount.String(),
			"reference":     p.Reference,
		}, nil

	case enums.EventWithdrawalCompleted:
		var p payloads.WithdrawalCompletedEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"withdrawal_id": p.WithdrawalID.String(),
			"wallet_id":     p.WalletID.String(),
			"reference":     p.Reference,
		}, nil

	case enums.EventWithdrawalReversed:
		var p payloads.WithdrawalReversedEvent
		if err := decodePayload(envelope, &p); err != nil {
			return nil, err
		}
		return map[string]any{
			"withdrawal_id": p.WithdrawalID.String(),
			"wallet_id":     p.WalletID.String(),
			"amount":        p.Amount.String(),
			"reference":     p.Reference,
			"reason":        p.Reason,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
}

func decodePayload(envelope Envelope, target any) error {
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	if err := json.Unmarshal(envelope.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return nil
}
