package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/wolfizen/ddnswolf/conf"
)

func init() {
	register("iface", func(name string, cfg conf.SourceConf) (lookuper, error) {
		return &ifaceSource{iface: cfg.Iface}, nil
	})
}

// ifaceSource reports the addresses assigned to one named interface, or to
// every interface when none is named. Loopback addresses are skipped; IPv6
// zone identifiers are stripped by the wrapper.
type ifaceSource struct {
	iface string
}

func (s *ifaceSource) lookup(ctx context.Context) ([]netip.Addr, error) {
	var (
		raw []net.Addr
		err error
	)
	if s.iface == "" {
		raw, err = net.InterfaceAddrs()
		if err != nil {
			return nil, fmt.Errorf("list interface addresses: %w", err)
		}
	} else {
		iface, err := net.InterfaceByName(s.iface)
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", s.iface, err)
		}
		raw, err = iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("addresses of %s: %w", s.iface, err)
		}
	}

	var addrs []netip.Addr
	var parseErrs []error
	for _, a := range raw {
		prefix, err := netip.ParsePrefix(a.String())
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("parse %s: %w", a, err))
			continue
		}
		if prefix.Addr().IsLoopback() {
			continue
		}
		addrs = append(addrs, prefix.Addr())
	}
	if len(addrs) == 0 && len(parseErrs) > 0 {
		return nil, errors.Join(parseErrs...)
	}
	return addrs, nil
}
