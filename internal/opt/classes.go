package opt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cwbudde/hypersmac/internal/monitor"
	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/cwbudde/hypersmac/internal/smbo"
	"github.com/cwbudde/hypersmac/internal/store"
)

// NewRegistry returns a registry holding every engine, callback and store
// class a configuration tree can reference. Metrics callbacks register with
// metrics, or the default Prometheus registerer if nil.
func NewRegistry(metrics prometheus.Registerer) *registry.Registry {
	reg := registry.New()
	smbo.RegisterClasses(reg)
	monitor.RegisterClasses(reg, metrics)
	registerStores(reg)
	return reg
}

func registerStores(reg *registry.Registry) {
	reg.Register("store.FSStore", func(kw registry.Kwargs) (any, error) {
		var args struct {
			BaseDir string `mapstructure:"base_dir"`
		}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		return store.NewFSStore(expandPath(args.BaseDir))
	})
	reg.Register("store.RedisStore", func(kw registry.Kwargs) (any, error) {
		args := struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
			Prefix   string `mapstructure:"prefix"`
		}{Addr: "localhost:6379"}
		if err := registry.Decode(kw, &args); err != nil {
			return nil, err
		}
		client := redis.NewClient(&redis.Options{
			Addr:     args.Addr,
			Password: args.Password,
			DB:       args.DB,
		})
		return store.NewRedisStore(client, args.Prefix), nil
	})
}
