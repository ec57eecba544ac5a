// Package metrics содержит счётчики Prometheus сервиса биллинга.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "glift_billing"

// Источники записи профиля.
const (
	SourceSync       = "sync"
	SourceEvent      = "event"
	SourceOptimistic = "optimistic"
)

// Metrics хранит счётчики сервиса.
type Metrics struct {
	webhookEvents  *prometheus.CounterVec
	profileWrites  *prometheus.CounterVec
	externalErrors *prometheus.CounterVec
}

// New регистрирует счётчики в reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Billing webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		profileWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_writes_total",
			Help:      "Profile writes by source.",
		}, []string{"source"}),
		externalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_errors_total",
			Help:      "Failed calls to the billing provider by operation.",
		}, []string{"operation"}),
	}
}

// WebhookEvent учитывает обработанное событие вебхука.
func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ProfileWrite учитывает запись профиля.
func (m *Metrics) ProfileWrite(source string) {
	if m == nil {
		return
	}
	m.profileWrites.WithLabelValues(source).Inc()
}

// ExternalError учитывает ошибку вызова платёжного провайдера.
func (m *Metrics) ExternalError(operation string) {
	if m == nil {
		return
	}
	m.externalErrors.WithLabelValues(operation).Inc()
}
