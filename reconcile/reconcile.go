// Package reconcile drives the resolve-compare-update pass for one record:
// ask the sources for the current address, compare it against what DNS
// already holds, and push an update only on divergence.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wolfizen/ddnswolf/cache"
	"github.com/wolfizen/ddnswolf/provider"
	"github.com/wolfizen/ddnswolf/source"
	"github.com/wolfizen/ddnswolf/utils"
)

type Outcome int

const (
	NoOp Outcome = iota
	Updated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NoOp:
		return "noop"
	case Updated:
		return "updated"
	default:
		return "failed"
	}
}

// Result is the outcome of one cycle. Computed fresh every cycle, never
// persisted.
type Result struct {
	Outcome  Outcome
	Old      netip.Addr
	New      netip.Addr
	Err      error
	Duration time.Duration
}

// Reader is the compare side of a cycle: either the provider itself or a
// live-DNS prober.
type Reader interface {
	ReadRecord(ctx context.Context, rec provider.Record) (netip.Addr, error)
}

// Reconciler owns the cycles of a single record. Cycles for one record never
// overlap (the scheduler guarantees it), so the struct needs no locking.
type Reconciler struct {
	Record   provider.Record
	Sources  []source.Source // priority order, first success wins
	Provider provider.Provider
	Reader   Reader // defaults to Provider
	Cache    *cache.File
	CacheTTL time.Duration
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
	Limiter  *rate.Limiter

	permFails int
}

func (r *Reconciler) Key() string { return r.Record.Key() }

// Run executes one cycle and logs its outcome.
func (r *Reconciler) Run(ctx context.Context) Result {
	start := time.Now()
	res := r.run(ctx)
	res.Duration = time.Since(start)

	if res.Outcome == Failed && errors.Is(res.Err, utils.ErrPermanent) {
		r.permFails++
	} else {
		r.permFails = 0
	}
	r.log(res)
	return res
}

func (r *Reconciler) run(ctx context.Context) Result {
	// The address captured here is authoritative for the whole cycle; a
	// source changing its mind mid-cycle is next cycle's problem.
	addr, err := r.resolve(ctx)
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}

	current, known, fresh, err := r.current(ctx)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("read current value: %w", err)}
	}
	if known && current == addr {
		if !fresh && r.Cache != nil {
			// Observed authoritatively; remember it so the next cycle can
			// skip the read.
			if cerr := r.Cache.Put(r.Record, addr); cerr != nil {
				log.Warn().Err(cerr).Str("record", r.Key()).Msg("state file update failed")
			}
		}
		return Result{Outcome: NoOp, Old: current, New: addr}
	}

	err = <-utils.GoRetryCtx(ctx, r.attempts(), r.backoff(), func(ctx context.Context) error {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return errors.Join(utils.ErrPermanent, err)
			}
		}
		wctx, cancel := r.callCtx(ctx)
		defer cancel()
		return r.Provider.WriteRecord(wctx, r.Record, addr)
	})
	if err != nil {
		return Result{Outcome: Failed, Old: current, New: addr, Err: fmt.Errorf("write: %w", err)}
	}

	if r.Cache != nil {
		if cerr := r.Cache.Put(r.Record, addr); cerr != nil {
			// The provider write is confirmed; a broken state file only
			// costs an extra read next cycle.
			log.Warn().Err(cerr).Str("record", r.Key()).Msg("state file update failed")
		}
	}
	return Result{Outcome: Updated, Old: current, New: addr}
}

// resolve queries sources in priority order and returns the first answer.
func (r *Reconciler) resolve(ctx context.Context) (netip.Addr, error) {
	fam := familyFor(r.Record.Type)
	var errs []error
	for _, src := range r.Sources {
		addr, err := src.Resolve(ctx, fam)
		if err != nil {
			log.Debug().Err(err).Str("record", r.Key()).Str("source", src.Name()).Msg("source failed")
			errs = append(errs, err)
			continue
		}
		return addr, nil
	}
	return netip.Addr{}, fmt.Errorf("all sources failed: %w", errors.Join(errs...))
}

// current returns the value the record is believed to hold. fresh reports
// whether it came from the state cache; a stale or absent cache entry falls
// back to an authoritative read, which self-heals after external changes.
func (r *Reconciler) current(ctx context.Context) (addr netip.Addr, known, fresh bool, err error) {
	if r.Cache != nil {
		if cached, at, ok := r.Cache.Get(r.Record); ok {
			if r.CacheTTL <= 0 || time.Since(at) <= r.CacheTTL {
				return cached, true, true, nil
			}
		}
	}

	reader := r.Reader
	if reader == nil {
		reader = r.Provider
	}
	rctx, cancel := r.callCtx(ctx)
	defer cancel()
	addr, err = reader.ReadRecord(rctx, r.Record)
	if errors.Is(err, provider.ErrRecordNotFound) {
		return netip.Addr{}, false, false, nil
	}
	if err != nil {
		return netip.Addr{}, false, false, err
	}
	return addr, true, false, nil
}

func (r *Reconciler) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

func (r *Reconciler) attempts() int {
	if r.Attempts <= 0 {
		return 5
	}
	return r.Attempts
}

func (r *Reconciler) backoff() time.Duration {
	if r.Backoff <= 0 {
		return 2 * time.Second
	}
	return r.Backoff
}

func (r *Reconciler) log(res Result) {
	var evt *zerolog.Event
	switch {
	case res.Outcome == Failed && r.permFails >= 3:
		evt = log.Error()
	case res.Outcome == Failed:
		evt = log.Warn()
	default:
		evt = log.Info()
	}
	evt = evt.Str("record", r.Key()).Stringer("outcome", res.Outcome).Dur("latency", res.Duration)
	if res.Old.IsValid() {
		evt = evt.Str("old", res.Old.String())
	}
	if res.New.IsValid() {
		evt = evt.Str("new", res.New.String())
	}
	if res.Err != nil {
		evt = evt.Err(res.Err)
	}
	evt.Msg("reconcile cycle")
}

func familyFor(rtype uint16) source.Family {
	if rtype == dns.TypeAAAA {
		return source.IPv6
	}
	return source.IPv4
}
