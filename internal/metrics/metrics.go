package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	OrdersPlaced   Counter
	OrdersRejected Counter
	HedgesOpened   Counter
	HedgesClosed   Counter
	DataMisses     Counter
	TicksFailed    Counter
	RiskAlerts     Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OrdersPlaced:   n,
		OrdersRejected: n,
		HedgesOpened:   n,
		HedgesClosed:   n,
		DataMisses:     n,
		TicksFailed:    n,
		RiskAlerts:     n,
	}
}
