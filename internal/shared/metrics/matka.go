package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Matka agrupa os coletores de admissão, book e liquidação.
// Métodos aceitam receptor nil para facilitar testes.
type Matka struct {
	betsAccepted   prometheus.Counter
	rejections     *prometheus.CounterVec
	bookDuration   prometheus.Histogram
	betsSettled    *prometheus.CounterVec
	consumerErrors *prometheus.CounterVec
}

// NewMatka cria e registra os coletores em reg
func NewMatka(reg prometheus.Registerer) *Matka {
	m := &Matka{
		betsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matka_bets_accepted_total",
			Help: "apostas aceitas (uma por resultado)",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matka_admission_rejections_total",
			Help: "submissões rejeitadas por tipo de erro",
		}, []string{"kind"}),
		bookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matka_book_compute_seconds",
			Help:    "latência do cálculo do book",
			Buckets: prometheus.DefBuckets,
		}),
		betsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matka_bets_settled_total",
			Help: "apostas liquidadas por status final",
		}, []string{"status"}),
		consumerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matka_consumer_errors_total",
			Help: "erros do worker por estágio",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.betsAccepted, m.rejections, m.bookDuration, m.betsSettled, m.consumerErrors)
	return m
}

func (m *Matka) BetsAccepted(n int) {
	if m == nil {
		return
	}
	m.betsAccepted.Add(float64(n))
}

func (m *Matka) Rejected(kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind).Inc()
}

func (m *Matka) BookComputed(seconds float64) {
	if m == nil {
		return
	}
	m.bookDuration.Observe(seconds)
}

func (m *Matka) Settled(status string, n int) {
	if m == nil {
		return
	}
	m.betsSettled.WithLabelValues(status).Add(float64(n))
}

func (m *Matka) ConsumerError(stage string) {
	if m == nil {
		return
	}
	m.consumerErrors.WithLabelValues(stage).Inc()
}

// AcceptedCounter expõe o contador para leitura em testes
func (m *Matka) AcceptedCounter() prometheus.Counter { return m.betsAccepted }
