package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wolfizen/ddnswolf/cache"
	"github.com/wolfizen/ddnswolf/conf"
	libdns "github.com/wolfizen/ddnswolf/lib/dns"
	"github.com/wolfizen/ddnswolf/provider"
	"github.com/wolfizen/ddnswolf/reconcile"
	"github.com/wolfizen/ddnswolf/source"
)

// buildJobs assembles one reconciler per configured record. Sources and
// providers are built once and shared by every record referencing them.
func buildJobs() ([]Job, error) {
	sources := make(map[string]source.Source, len(conf.Sources))
	for name, cfg := range conf.Sources {
		s, err := source.New(name, cfg, conf.App.Timeout)
		if err != nil {
			return nil, err
		}
		sources[name] = s
	}

	providers := make(map[string]provider.Provider, len(conf.Providers))
	limiters := make(map[string]*rate.Limiter, len(conf.Providers))
	for name, cfg := range conf.Providers {
		p, err := provider.New(name, cfg)
		if err != nil {
			return nil, err
		}
		providers[name] = p
		// One limiter per provider account; records sharing it queue behind
		// each other instead of hammering the API together.
		limiters[name] = rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
	}

	var prober *libdns.Prober
	for _, rc := range conf.Records {
		if rc.Check == "dns" {
			p, err := libdns.NewProber(conf.Resolvers)
			if err != nil {
				return nil, err
			}
			prober = p
			break
		}
	}

	state := cache.Open(conf.App.StateFile)

	jobs := make([]Job, 0, len(conf.Records))
	for _, rc := range conf.Records {
		rtype, err := provider.ParseType(rc.Type)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", rc.Name, err)
		}
		var srcs []source.Source
		for _, sn := range rc.Sources {
			srcs = append(srcs, sources[sn])
		}
		r := &reconcile.Reconciler{
			Record:   provider.Record{Name: rc.Name, Type: rtype},
			Sources:  srcs,
			Provider: providers[rc.Provider],
			Cache:    state,
			CacheTTL: conf.App.CacheTTL,
			Timeout:  conf.App.Timeout,
			Attempts: conf.Retry.Attempts,
			Backoff:  conf.Retry.Backoff,
			Limiter:  limiters[rc.Provider],
		}
		if rc.Check == "dns" {
			r.Reader = prober
		}
		jobs = append(jobs, r)
	}
	return jobs, nil
}

// SyncOnce runs a single pass over every record and reports whether all of
// them converged. Used by the one-shot command.
func SyncOnce() error {
	jobs, err := buildJobs()
	if err != nil {
		return err
	}
	failed := 0
	for _, j := range jobs {
		res := j.Run(context.Background())
		if res.Outcome == reconcile.Failed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, len(jobs))
	}
	log.Info().Msgf("all %d records reconciled", len(jobs))
	return nil
}
