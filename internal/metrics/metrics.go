// Package metrics defines the Prometheus collectors of the chat service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studyclub"

// Metrics groups the chat store collectors.
type Metrics struct {
	sessionsCreated   prometheus.Counter
	messagesAppended  *prometheus.CounterVec
	messagesPruned    prometheus.Counter
	replies           *prometheus.CounterVec
	fallbacks         *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
	replyLatency      prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "sessions_created_total",
			Help:      "Chat sessions created.",
		}),
		messagesAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "messages_appended_total",
			Help:      "Messages appended to sessions, by role.",
		}, []string{"role"}),
		messagesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "messages_pruned_total",
			Help:      "Messages dropped for exceeding the TTL.",
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "ai_replies_total",
			Help:      "AI reply requests, by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "ai_fallbacks_total",
			Help:      "AI replies replaced by the fallback text, by failure kind.",
		}, []string{"kind"}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "persistence_errors_total",
			Help:      "Storage read/write/decode failures, by operation.",
		}, []string{"op"}),
		replyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chatstore",
			Name:      "ai_reply_seconds",
			Help:      "Latency of text-completion calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	reg.MustRegister(
		m.sessionsCreated,
		m.messagesAppended,
		m.messagesPruned,
		m.replies,
		m.fallbacks,
		m.persistenceErrors,
		m.replyLatency,
	)
	return m
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) MessageAppended(role string) {
	if m == nil {
		return
	}
	m.messagesAppended.WithLabelValues(role).Inc()
}

func (m *Metrics) MessagesPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.messagesPruned.Add(float64(n))
}

// ReplyDone records one completed reply call. kind is empty on success.
func (m *Metrics) ReplyDone(elapsed time.Duration, kind string) {
	if m == nil {
		return
	}
	m.replyLatency.Observe(elapsed.Seconds())
	if kind == "" {
		m.replies.WithLabelValues("ok").Inc()
		return
	}
	m.replies.WithLabelValues("fallback").Inc()
	m.fallbacks.WithLabelValues(kind).Inc()
}

func (m *Metrics) PersistenceError(op string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(op).Inc()
}
