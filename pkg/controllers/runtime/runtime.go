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

// Package runtime is the Controller Runtime: it starts the fixed
// controller set only while this replica holds the leader lease, and
// cancels them the instant leadership is lost.
package runtime

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corectlio/corectl/pkg/lease"
	"github.com/corectlio/corectl/pkg/metrics"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"
)

// Controller is one reconciler in the fixed set. Reconcile
// performs a single pass over the store and must be safe to call
// repeatedly; the Manager calls it every TickInterval while leader.
type Controller interface {
	Name() string
	TickInterval() time.Duration
	Reconcile(ctx context.Context) error
}

// Manager owns the Lease Manager and the fixed Controller set, starting
// and stopping them together as leadership transitions.
type Manager struct {
	lease       *lease.Manager
	controllers []Controller
}

// NewManager constructs a Manager over the given lease and controller set.
func NewManager(l *lease.Manager, controllers ...Controller) *Manager {
	return &Manager{lease: l, controllers: controllers}
}

// Start runs the Lease Manager's election loop and, on every leadership
// transition, starts or cancels a fresh errgroup running every controller's
// tick loop. Start blocks until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("controller-runtime")

	go m.lease.Run(ctx)

	var cancelRunning context.CancelFunc
	runningDone := make(chan struct{})
	stopRunning := func() {
		if cancelRunning != nil {
			cancelRunning()
			<-runningDone
			cancelRunning = nil
		}
	}
	defer stopRunning()

	changed := m.lease.Changed()
	for {
		if m.lease.IsLeader() {
			metrics.LeaderState.Set(1, map[string]string{})
			logger.Info("became leader, starting controllers")
			var runCtx context.Context
			runCtx, cancelRunning = context.WithCancel(ctx)
			done := make(chan struct{})
			runningDone = done
			go func() {
				defer close(done)
				if err := m.runAll(runCtx); err != nil && runCtx.Err() == nil {
					logger.Error(err, "controller set exited with error")
				}
			}()
		} else {
			metrics.LeaderState.Set(0, map[string]string{})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			changed = m.lease.Changed()
			if !m.lease.IsLeader() {
				logger.Info("lost leadership, stopping controllers")
				stopRunning()
			}
		}
	}
}

// runAll runs every controller's tick loop concurrently until ctx is
// cancelled or one of them returns a non-context error.
func (m *Manager) runAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range m.controllers {
		c := c
		g.Go(func() error { return tickLoop(ctx, c) })
	}
	return g.Wait()
}

func tickLoop(ctx context.Context, c Controller) error {
	logger := ctrllog.FromContext(ctx).WithName(c.Name())
	ticker := time.NewTicker(c.TickInterval())
	defer ticker.Stop()

	reconcileOnce := func() {
		start := time.Now()
		if err := c.Reconcile(ctx); err != nil {
			metrics.ReconcileErrorsTotal.Inc(map[string]string{metrics.KindLabel: c.Name()})
			logger.Error(err, "reconcile failed")
		}
		metrics.ReconcileDuration.Observe(time.Since(start).Seconds(), map[string]string{metrics.KindLabel: c.Name()})
	}

	reconcileOnce()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reconcileOnce()
		}
	}
}
