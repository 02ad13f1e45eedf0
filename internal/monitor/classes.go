package monitor

import (
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/hypersmac/internal/registry"
)

var validate = validator.New()

// RegisterClasses registers the callbacks under "monitor.<Name>". The
// metrics callback registers with metrics, or the default Prometheus
// registerer if nil.
func RegisterClasses(reg *registry.Registry, metrics prometheus.Registerer) {
	reg.Register("monitor.MetricsCallback", func(kw registry.Kwargs) (any, error) {
		if err := registry.Decode(kw, &struct{}{}); err != nil {
			return nil, err
		}
		return NewMetricsCallback(metrics)
	})
	reg.Register("monitor.LoggingCallback", func(kw registry.Kwargs) (any, error) {
		if err := registry.Decode(kw, &struct{}{}); err != nil {
			return nil, err
		}
		return NewLoggingCallback(nil), nil
	})
	reg.Register("monitor.ConvergenceCallback", func(kw registry.Kwargs) (any, error) {
		cfg := DefaultConvergenceConfig()
		if err := registry.Decode(kw, &cfg); err != nil {
			return nil, err
		}
		if err := validate.Struct(cfg); err != nil {
			return nil, err
		}
		return NewConvergenceCallback(cfg), nil
	})
}
