package source

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/wolfizen/ddnswolf/conf"
)

func init() {
	register("static", func(name string, cfg conf.SourceConf) (lookuper, error) {
		addr, err := netip.ParseAddr(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("static source: parse address %q: %w", cfg.Address, err)
		}
		return staticSource{addr: addr}, nil
	})
}

// staticSource always reports one fixed address. Useful for split-horizon
// setups and as a deterministic source in tests.
type staticSource struct {
	addr netip.Addr
}

func (s staticSource) lookup(context.Context) ([]netip.Addr, error) {
	return []netip.Addr{s.addr}, nil
}
