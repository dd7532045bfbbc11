package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfizen/ddnswolf/reconcile"
)

// slowJob blocks in Run until released, counting concurrent entries.
type slowJob struct {
	key     string
	release chan struct{}
	runs    atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (j *slowJob) Key() string { return j.key }

func (j *slowJob) Run(ctx context.Context) reconcile.Result {
	j.runs.Add(1)
	n := j.active.Add(1)
	defer j.active.Add(-1)
	for {
		prev := j.maxSeen.Load()
		if n <= prev || j.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	<-j.release
	return reconcile.Result{Outcome: reconcile.NoOp}
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	job := &slowJob{key: "home.example.com/A", release: make(chan struct{})}
	d := newDaemon(time.Hour, []Job{job})

	d.runAll()
	require.Eventually(t, func() bool { return job.active.Load() == 1 }, time.Second, time.Millisecond)

	// Second and third passes arrive while the first cycle still runs.
	d.runAll()
	d.runAll()

	close(job.release)
	d.wg.Wait()

	assert.Equal(t, int32(1), job.runs.Load(), "in-progress record must be skipped, not queued")
	assert.Equal(t, int32(1), job.maxSeen.Load())
}

func TestSkipIsPerRecord(t *testing.T) {
	slow := &slowJob{key: "slow.example.com/A", release: make(chan struct{})}
	fast := &slowJob{key: "fast.example.com/A", release: make(chan struct{})}
	close(fast.release)
	d := newDaemon(time.Hour, []Job{slow, fast})

	d.runAll()
	require.Eventually(t, func() bool { return slow.active.Load() == 1 }, time.Second, time.Millisecond)
	d.runAll()

	close(slow.release)
	d.wg.Wait()

	assert.Equal(t, int32(1), slow.runs.Load())
	assert.Equal(t, int32(2), fast.runs.Load(), "one slow record must not block the others")
}

func TestTriggerCollapsesBursts(t *testing.T) {
	d := newDaemon(time.Hour, nil)
	for i := 0; i < 10; i++ {
		d.Trigger("burst")
	}
	assert.Len(t, d.trigger, 1)
}

func TestRunDrainsInFlightOnShutdown(t *testing.T) {
	job := &slowJob{key: "home.example.com/A", release: make(chan struct{})}
	d := newDaemon(time.Hour, []Job{job})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Run(ctx)
	}()

	require.Eventually(t, func() bool { return job.active.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	// Run must not return while the cycle is still in flight.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Run returned before in-flight cycle finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(job.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cycles drained")
	}
	assert.Equal(t, int32(1), job.runs.Load())
}
