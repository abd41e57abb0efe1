package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records settlement, gateway, and webhook activity.
type LedgerMetrics struct {
	settlements     *prometheus.CounterVec
	settlementValue *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	feedEvents      *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_settlements_total",
		Help: "Completed order item settlements by outcome.",
	}, []string{"outcome"})
	settlementValue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_settlement_value_total",
		Help: "Monetary value moved at settlement, by beneficiary.",
	}, []string{"beneficiary"})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_events_total",
		Help: "Gateway webhook deliveries by event and result.",
	}, []string{"event", "result"})
	feedEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_feed_events_total",
		Help: "Ledger feed messages consumed, by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(settlements, settlementValue, gatewayDuration, webhookEvents, feedEvents)
	return &LedgerMetrics{
		settlements:     settlements,
		settlementValue: settlementValue,
		gatewayDuration: gatewayDuration,
		webhookEvents:   webhookEvents,
		feedEvents:      feedEvents,
	}
}

// IncSettlement increments the settlement counter for the given outcome.
func (m *LedgerMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddSettlementValue adds a settled amount for the named beneficiary.
func (m *LedgerMetrics) AddSettlementValue(beneficiary string, amount float64) {
	if m == nil || m.settlementValue == nil {
		return
	}
	if amount < 0 {
		return
	}
	m.settlementValue.WithLabelValues(normalizeLabel(beneficiary)).Add(amount)
}

// ObserveGatewayCall records a gateway call duration for the operation/status pair.
func (m *LedgerMetrics) ObserveGatewayCall(operation, status string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(normalizeLabel(operation), normalizeLabel(status)).Observe(duration.Seconds())
}

// IncFeedEvent increments the ledger feed counter for the event type/result pair.
func (m *LedgerMetrics) IncFeedEvent(eventType, result string) {
	if m == nil || m.feedEvents == nil {
		return
	}
	m.feedEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// IncWebhookEvent increments the webhook counter for the event/result pair.
func (m *LedgerMetrics) IncWebhookEvent(event, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(result)).Inc()
}
