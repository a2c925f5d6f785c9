package participant

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

var phases = []Phase{Waiting, Training, Done}

type metricsNotifier struct {
	phase      *prometheus.GaugeVec
	round      prometheus.Gauge
	roundsDone prometheus.Gauge
}

// NewMetricsNotifier exports the observed status as prometheus gauges.
func NewMetricsNotifier(namespace string, reg prometheus.Registerer) (StatusNotifier, error) {
	m := &metricsNotifier{
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "Current participant phase, 1 for the active one.",
		}, []string{"phase"}),
		round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round",
			Help:      "Round assigned by the coordinator.",
		}),
		roundsDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rounds_done",
			Help:      "Rounds trained and uploaded in this session.",
		}),
	}

	for _, c := range []prometheus.Collector{m.phase, m.round, m.roundsDone} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	m.set(Waiting)
	m.round.Set(NoRound)

	return m, nil
}

func (m *metricsNotifier) NotifyStatus(_ context.Context, status Status) error {
	m.set(status.Phase)
	m.round.Set(float64(status.Round))
	m.roundsDone.Set(float64(status.RoundsDone))

	return nil
}

func (m *metricsNotifier) set(current Phase) {
	for _, p := range phases {
		v := 0.0
		if p == current {
			v = 1
		}
		m.phase.WithLabelValues(p.String()).Set(v)
	}
}
