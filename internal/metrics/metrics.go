// Package metrics собирает prometheus-метрики геопоиска и модерации.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agromarket"

// Metrics набор коллекторов приложения. Методы безопасны для nil-получателя,
// поэтому сервисы работают и без метрик.
type Metrics struct {
	registry *prometheus.Registry

	nearbyQueries           *prometheus.CounterVec
	nearbyCandidates        prometheus.Histogram
	strikes                 prometheus.Counter
	suspensions             prometheus.Counter
	ordersPaused            prometheus.Counter
	ordersResumed           prometheus.Counter
	verificationTransitions *prometheus.CounterVec
}

// New создаёт реестр и регистрирует в нём все метрики.
func New() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.nearbyQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nearby_queries_total",
		Help:      "Количество запросов поиска поблизости",
	}, []string{"kind"})
	m.nearbyCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "nearby_candidates",
		Help:      "Число кандидатов, прочитанных из БД на один запрос",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
	m.strikes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strikes_total",
		Help:      "Начисленные страйки",
	})
	m.suspensions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suspensions_total",
		Help:      "Блокировки аккаунтов",
	})
	m.ordersPaused = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_paused_total",
		Help:      "Заказы, приостановленные каскадом",
	})
	m.ordersResumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_resumed_total",
		Help:      "Заказы, восстановленные после разблокировки",
	})
	m.verificationTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_transitions_total",
		Help:      "Переходы заявок на верификацию по целевому статусу",
	}, []string{"to"})

	for _, c := range []prometheus.Collector{
		m.nearbyQueries, m.nearbyCandidates, m.strikes, m.suspensions,
		m.ordersPaused, m.ordersResumed, m.verificationTransitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler отдаёт метрики в формате prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) NearbyQuery(kind string, candidates int) {
	if m == nil {
		return
	}
	m.nearbyQueries.WithLabelValues(kind).Inc()
	m.nearbyCandidates.Observe(float64(candidates))
}

func (m *Metrics) Strike() {
	if m == nil {
		return
	}
	m.strikes.Inc()
}

// Suspension фиксирует блокировку и число приостановленных заказов.
func (m *Metrics) Suspension(pausedOrders int) {
	if m == nil {
		return
	}
	m.suspensions.Inc()
	m.ordersPaused.Add(float64(pausedOrders))
}

func (m *Metrics) OrdersResumed(n int) {
	if m == nil {
		return
	}
	m.ordersResumed.Add(float64(n))
}

func (m *Metrics) VerificationTransition(to string) {
	if m == nil {
		return
	}
	m.verificationTransitions.WithLabelValues(to).Inc()
}
