package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClientMetrics tracks the browser clients held in memory.
type ClientMetrics struct {
	active  prometheus.Gauge
	evicted prometheus.Counter
}

// NewClientMetrics registers the client registry metrics on reg.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_clients",
		Help: "Browser clients currently held by this instance.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_evicted_clients_total",
		Help: "Browser clients evicted after their idle timeout.",
	})
	reg.MustRegister(active, evicted)
	return &ClientMetrics{active: active, evicted: evicted}
}

func (c *ClientMetrics) SetActive(n int) {
	if c == nil || c.active == nil {
		return
	}
	c.active.Set(float64(n))
}

func (c *ClientMetrics) AddEvicted(n int) {
	if c == nil || c.evicted == nil || n <= 0 {
		return
	}
	c.evicted.Add(float64(n))
}
