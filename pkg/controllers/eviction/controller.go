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

// Package eviction implements the Eviction Controller: it reschedules
// Pods off Nodes that have stayed Unknown past the grace period.
package eviction

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"k8s.io/utils/clock"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
)

// TickInterval is the fixed reconcile period.
const TickInterval = 30 * time.Second

// GracePeriod is how long a Node must stay Unknown before its Pods are
// evicted.
const GracePeriod = 300 * time.Second

// Controller clears NodeName and resets Status to Pending on every Pod
// assigned to a Node that has been Unknown past GracePeriod. It never
// touches the Node itself; the Node controller owns that state.
type Controller struct {
	store store.Store
	clock clock.Clock
}

// New constructs an eviction Controller over s.
func New(s store.Store, clk clock.Clock) *Controller {
	return &Controller{store: s, clock: clk}
}

func (c *Controller) Name() string                { return "eviction" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

// Reconcile collects the set of Nodes that have failed past the grace
// period, then clears every non-terminal Pod assigned to one of them.
func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("eviction")
	now := c.clock.Now()

	nodeEntries, err := c.store.ListPrefix(ctx, apis.KindPrefix(apis.KindNodes))
	if err != nil {
		return err
	}

	failed := make(map[string]bool)
	for _, e := range nodeEntries {
		var n apis.Node
		if !store.DecodeJSON(e.Value, &n) {
			continue
		}
		if n.IsMaster() || n.Status != apis.NodeUnknown {
			continue
		}
		if now.Sub(n.LastHeartbeat) >= GracePeriod {
			failed[n.Name] = true
		}
	}
	if len(failed) == 0 {
		return nil
	}

	podEntries, err := c.store.ListPrefix(ctx, apis.KindPrefix(apis.KindPods))
	if err != nil {
		return err
	}

	var errs error
	for _, e := range podEntries {
		var p apis.Pod
		if !store.DecodeJSON(e.Value, &p) {
			continue
		}
		if p.NodeName == "" || !failed[p.NodeName] || p.Status.IsTerminal() {
			continue
		}
		evictedFrom := p.NodeName
		p.NodeName = ""
		p.Status = apis.PodPending
		if err := store.PutJSON(ctx, c.store, e.Key, p); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		logger.Info("evicted pod from failed node", "pod", p.Name, "namespace", p.Namespace, "node", evictedFrom)
	}
	return errs
}
