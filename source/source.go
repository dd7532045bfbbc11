// Package source produces candidate addresses for DNS records. Each source is
// a named stanza in the configuration; records reference sources by name and
// try them in order until one answers.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/wolfizen/ddnswolf/conf"
)

// ErrNoAddress is returned when a source answered but had no address of the
// requested family left after filtering.
var ErrNoAddress = errors.New("no address")

type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f Family) String() string {
	if f == IPv4 {
		return "ipv4"
	}
	return "ipv6"
}

func (f Family) matches(a netip.Addr) bool {
	if f == IPv4 {
		return a.Is4() || a.Is4In6()
	}
	return a.Is6() && !a.Is4In6()
}

// Source yields the current candidate address for one address family. A
// failure is an error return, never a partial result.
type Source interface {
	Name() string
	Resolve(ctx context.Context, fam Family) (netip.Addr, error)
}

// lookuper is the per-type half of a source: it lists raw candidates and
// leaves family selection and filtering to the wrapper.
type lookuper interface {
	lookup(ctx context.Context) ([]netip.Addr, error)
}

type factory func(name string, cfg conf.SourceConf) (lookuper, error)

var registry = map[string]factory{}

func register(typ string, f factory) {
	registry[typ] = f
}

// New builds the source described by cfg. Unknown types and bad per-type
// options are configuration errors.
func New(name string, cfg conf.SourceConf, timeout time.Duration) (Source, error) {
	f, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
	impl, err := f(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	filters, err := parseFilters(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	return &source{name: name, impl: impl, filters: filters, timeout: timeout}, nil
}

type source struct {
	name    string
	impl    lookuper
	filters []Filter
	timeout time.Duration
}

func (s *source) Name() string { return s.name }

func (s *source) Resolve(ctx context.Context, fam Family) (netip.Addr, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	addrs, err := s.impl.lookup(ctx)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("source %s: %w", s.name, err)
	}
	var kept []netip.Addr
	for _, a := range addrs {
		if fam.matches(a) {
			kept = append(kept, a.WithZone("").Unmap())
		}
	}
	for _, f := range s.filters {
		kept = f(kept)
	}
	if len(kept) == 0 {
		return netip.Addr{}, fmt.Errorf("source %s (%s): %w", s.name, fam, ErrNoAddress)
	}
	return kept[0], nil
}
