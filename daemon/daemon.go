package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfizen/ddnswolf/conf"
	"github.com/wolfizen/ddnswolf/reconcile"
)

// Job is one record's reconcile loop entry. *reconcile.Reconciler implements
// it; tests substitute doubles.
type Job interface {
	Key() string
	Run(ctx context.Context) reconcile.Result
}

type daemon struct {
	interval time.Duration
	jobs     []Job
	trigger  chan string

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

func newDaemon(interval time.Duration, jobs []Job) *daemon {
	return &daemon{
		interval: interval,
		jobs:     jobs,
		trigger:  make(chan string, 1),
		inflight: make(map[string]bool),
	}
}

// Serve wires everything from the loaded config and runs until SIGINT or
// SIGTERM. In-flight cycles finish their current call before exit; nothing
// new starts once the signal arrives.
func Serve() {
	jobs, err := buildJobs()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	d := newDaemon(conf.App.Interval, jobs)
	watchConfig(d)
	watchAddrs(d)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	d.Run(ctx)
	log.Info().Msg("shutdown complete")
}

func (d *daemon) Run(ctx context.Context) {
	// First pass right away; a host that just booted usually has a record to
	// fix.
	d.runAll()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping, waiting for in-flight cycles")
			d.wg.Wait()
			return
		case <-ticker.C:
			d.runAll()
		case reason := <-d.trigger:
			log.Info().Str("reason", reason).Msg("immediate reconcile requested")
			d.runAll()
		}
	}
}

// runAll starts one cycle per record. A record whose previous cycle is still
// running is skipped, not queued: backlog under a slow provider helps nobody.
func (d *daemon) runAll() {
	for _, j := range d.jobs {
		d.mu.Lock()
		if d.inflight[j.Key()] {
			d.mu.Unlock()
			log.Warn().Str("record", j.Key()).Msg("previous cycle still running, skipping tick")
			continue
		}
		d.inflight[j.Key()] = true
		d.mu.Unlock()

		d.wg.Add(1)
		go func(j Job) {
			defer d.wg.Done()
			defer func() {
				d.mu.Lock()
				delete(d.inflight, j.Key())
				d.mu.Unlock()
			}()
			// Cycles are never canceled mid-write; per-call timeouts bound
			// them instead.
			j.Run(context.Background())
		}(j)
	}
}

// Trigger requests an immediate pass. Non-blocking; bursts collapse into one
// pending pass.
func (d *daemon) Trigger(reason string) {
	select {
	case d.trigger <- reason:
	default:
	}
}
