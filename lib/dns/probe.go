// Package dns reads live answers for managed records straight from DNS
// resolvers. It backs the "check: dns" compare path, where the authoritative
// answer is trusted over the provider API's view.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wolfizen/ddnswolf/provider"
	"github.com/wolfizen/ddnswolf/utils"
)

// One probe burst per record per cycle; keep resolvers from seeing us as a
// flood when many records reconcile at once.
var globalRateLimiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)

type Prober struct {
	client  *dns.Client
	servers []string
}

// NewProber builds a prober over the given resolvers. Bare addresses get the
// default port appended.
func NewProber(servers []string) (*Prober, error) {
	if len(servers) == 0 {
		return nil, errors.New("prober needs at least one resolver")
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, err := netip.ParseAddr(s); err == nil {
			s = net.JoinHostPort(s, "53")
		}
		if _, err := netip.ParseAddrPort(s); err != nil {
			return nil, fmt.Errorf("bad resolver %q: %w", s, err)
		}
		normalized = append(normalized, s)
	}
	return &Prober{client: new(dns.Client), servers: normalized}, nil
}

// ReadRecord returns the live answer for rec, trying each resolver in order.
// An authoritative "no such name" maps to provider.ErrRecordNotFound.
func (p *Prober) ReadRecord(ctx context.Context, rec provider.Record) (netip.Addr, error) {
	var errs []error
	for _, server := range p.servers {
		addr, err := p.lookup(ctx, rec, server)
		if err == nil {
			return addr, nil
		}
		if errors.Is(err, provider.ErrRecordNotFound) {
			return netip.Addr{}, err
		}
		log.Warn().Err(err).Str("record", rec.Key()).Str("server", server).Msg("dns probe failed")
		errs = append(errs, err)
	}
	return netip.Addr{}, fmt.Errorf("all resolvers failed for %s: %w", rec, errors.Join(errs...))
}

func (p *Prober) lookup(ctx context.Context, rec provider.Record, server string) (netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(rec.Name), rec.Type)
	var rsp *dns.Msg

	// Retry covers exchange errors and server failures; NXDOMAIN is an
	// answer, not a failure.
	err := <-utils.GoRetryCtx(ctx, 3, 50*time.Millisecond, func(ctx context.Context) error {
		if err := globalRateLimiter.Wait(ctx); err != nil {
			return errors.Join(utils.ErrPermanent, err)
		}
		var err error
		rsp, _, err = p.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return fmt.Errorf("exchange with %s: %w", server, err)
		}
		switch rsp.Rcode {
		case dns.RcodeSuccess, dns.RcodeNameError:
			return nil
		default:
			return fmt.Errorf("server %s answered rcode %d", server, rsp.Rcode)
		}
	})
	if err != nil {
		return netip.Addr{}, err
	}

	if rsp.Rcode == dns.RcodeNameError {
		return netip.Addr{}, fmt.Errorf("%s: %w", rec, provider.ErrRecordNotFound)
	}
	for _, ans := range rsp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			if rec.Type == dns.TypeA {
				if addr, ok := netip.AddrFromSlice(rr.A); ok {
					return addr.Unmap(), nil
				}
			}
		case *dns.AAAA:
			if rec.Type == dns.TypeAAAA {
				if addr, ok := netip.AddrFromSlice(rr.AAAA); ok {
					return addr, nil
				}
			}
		}
	}
	return netip.Addr{}, fmt.Errorf("%s: %w", rec, provider.ErrRecordNotFound)
}
