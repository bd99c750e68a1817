/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	faketime "k8s.io/utils/clock/testing"

	"github.com/corectlio/corectl/pkg/lease"
	"github.com/corectlio/corectl/pkg/store"
	"github.com/corectlio/corectl/pkg/watch"
)

// countingController satisfies Controller and counts Reconcile calls,
// optionally returning an error on every call without ever panicking the
// tick loop.
type countingController struct {
	name     string
	interval time.Duration
	count    atomic.Int64
	fail     bool
}

func (c *countingController) Name() string                  { return c.name }
func (c *countingController) TickInterval() time.Duration   { return c.interval }
func (c *countingController) Reconcile(_ context.Context) error {
	c.count.Add(1)
	if c.fail {
		return errors.New("boom")
	}
	return nil
}

func TestTickLoopReconcilesImmediatelyThenOnEachTick(t *testing.T) {
	ctrl := &countingController{name: "test", interval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tickLoop(ctx, ctrl)
		close(done)
	}()

	time.Sleep(40 * time.Millisecond)
	cancel()
	<-done

	if got := ctrl.count.Load(); got < 2 {
		t.Fatalf("expected tickLoop to reconcile more than once within 40ms at a 5ms interval, got %d", got)
	}
}

func TestTickLoopContinuesAfterReconcileError(t *testing.T) {
	ctrl := &countingController{name: "failing", interval: 5 * time.Millisecond, fail: true}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		tickLoop(ctx, ctrl)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	if got := ctrl.count.Load(); got < 2 {
		t.Fatalf("expected repeated reconciles despite errors, got %d", got)
	}
}

func TestRunAllStopsWhenContextCancelled(t *testing.T) {
	a := &countingController{name: "a", interval: 5 * time.Millisecond}
	b := &countingController{name: "b", interval: 5 * time.Millisecond}
	m := NewManager(nil, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.runAll(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(time.Second):
		t.Fatal("runAll did not return after context cancellation")
	}

	if a.count.Load() == 0 || b.count.Load() == 0 {
		t.Fatalf("expected both controllers to have reconciled at least once, got a=%d b=%d", a.count.Load(), b.count.Load())
	}
}

func TestManagerStartsControllersOnlyWhileLeader(t *testing.T) {
	s := store.NewMemoryStore(watch.NewBus(100))
	clk := faketime.NewFakeClock(time.Now())
	leaseMgr := lease.NewManager(s, clk, "replica-a", 15)

	ctrl := &countingController{name: "workload", interval: 5 * time.Millisecond}
	m := NewManager(leaseMgr, ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	// lease.Manager.Run ticks on the injected fake clock's ticker; advance
	// it far enough to acquire the lease on the first pass.
	deadline := time.Now().Add(time.Second)
	for !leaseMgr.IsLeader() && time.Now().Before(deadline) {
		clk.Step(6 * time.Second)
		time.Sleep(5 * time.Millisecond)
	}
	if !leaseMgr.IsLeader() {
		t.Fatal("lease manager never reported leadership")
	}

	deadline = time.Now().Add(time.Second)
	for ctrl.count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ctrl.count.Load() == 0 {
		t.Fatal("expected the controller to reconcile once this replica became leader")
	}
}
