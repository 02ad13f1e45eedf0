package opt

import (
	"fmt"

	"github.com/cwbudde/hypersmac/internal/config"
	"github.com/cwbudde/hypersmac/internal/registry"
	"github.com/cwbudde/hypersmac/internal/space"
)

// RegisterResolvers registers the "get_class" and "read_additional_configs"
// interpolations:
//
//	smac_facade: ${get_class:smbo.MultiFidelityFacade}
//	additional_configs: ${read_additional_configs:runs/previous.csv}
//
// read_additional_configs converts rows against cs.
func RegisterResolvers(r *config.Resolvers, reg *registry.Registry, cs *space.Space) {
	r.Register("get_class", func(args ...string) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("get_class takes one class path, got %d arguments", len(args))
		}
		return reg.Lookup(args[0])
	})
	r.Register("read_additional_configs", func(args ...string) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("read_additional_configs takes one file path, got %d arguments", len(args))
		}
		return ReadAdditionalConfigs(args[0], cs, nil)
	})
}
