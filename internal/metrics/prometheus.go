package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "bg_scalp_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of order requests sent to the execution service.",
	})
	ordersRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_rejected_total",
		Help:      "Total number of order requests the execution service rejected.",
	})
	hedgesOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "hedges_opened_total",
		Help:      "Total number of futures hedges opened.",
	})
	hedgesClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "hedges_closed_total",
		Help:      "Total number of futures hedges closed.",
	})
	dataMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "market_data_misses_total",
		Help:      "Total number of ticks skipped for missing market data.",
	})
	ticksFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "ticks_failed_total",
		Help:      "Total number of tick failures caught at the loop boundary.",
	})
	riskAlerts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "risk_alerts_total",
		Help:      "Total number of composite risk alerts raised.",
	})

	registry.MustRegister(ordersPlaced, ordersRejected, hedgesOpened, hedgesClosed, dataMisses, ticksFailed, riskAlerts)

	return &Prometheus{
		Metrics: &Metrics{
			OrdersPlaced:   promCounter{ordersPlaced},
			OrdersRejected: promCounter{ordersRejected},
			HedgesOpened:   promCounter{hedgesOpened},
			HedgesClosed:   promCounter{hedgesClosed},
			DataMisses:     promCounter{dataMisses},
			TicksFailed:    promCounter{ticksFailed},
			RiskAlerts:     promCounter{riskAlerts},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
