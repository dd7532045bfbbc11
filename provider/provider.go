// Package provider talks to authoritative DNS services. A provider owns the
// records it manages; everything else in the program reads and writes them
// only through the Provider interface.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/miekg/dns"

	"github.com/wolfizen/ddnswolf/conf"
)

// ErrRecordNotFound reports that the record does not exist upstream. Not a
// failure: the reconcile loop treats it as "needs creating".
var ErrRecordNotFound = errors.New("record not found")

// Record identifies one managed DNS record. Type is a dns.Type* constant;
// only A and AAAA are accepted by ParseType. The zone is discovered by the
// provider, not configured.
type Record struct {
	Name string
	Type uint16
}

func (r Record) Key() string {
	return r.Name + "/" + dns.TypeToString[r.Type]
}

func (r Record) TypeString() string {
	return dns.TypeToString[r.Type]
}

func (r Record) String() string {
	return dns.TypeToString[r.Type] + " " + r.Name
}

// ParseType maps a config record type to its wire constant.
func ParseType(s string) (uint16, error) {
	switch s {
	case "A":
		return dns.TypeA, nil
	case "AAAA":
		return dns.TypeAAAA, nil
	default:
		return 0, fmt.Errorf("unsupported record type %q", s)
	}
}

// Provider reads and writes records at one DNS service. WriteRecord is
// idempotent: writing an address the record already holds converges to the
// same end state. Errors wrapping utils.ErrPermanent must not be retried.
type Provider interface {
	ReadRecord(ctx context.Context, rec Record) (netip.Addr, error)
	WriteRecord(ctx context.Context, rec Record, addr netip.Addr) error
}

type factory func(name string, cfg conf.ProviderConf) (Provider, error)

var registry = map[string]factory{}

func register(typ string, f factory) {
	registry[typ] = f
}

// New builds the provider described by cfg. Credentials are verified here so
// that a bad token fails at startup instead of on the first cycle.
func New(name string, cfg conf.ProviderConf) (Provider, error) {
	f, ok := registry[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	p, err := f(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", name, err)
	}
	return p, nil
}
