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

// Package node implements the Node Controller: a heartbeat-driven
// health state machine with no child resources to reconcile.
package node

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
const TickInterval = 15 * time.Second

const (
	notReadyThreshold = 30 * time.Second
	unknownThreshold  = 60 * time.Second
)

// Controller drives every Node's status toward Ready/NotReady/Unknown based
// on staleness of its last heartbeat. It never creates or deletes a Node.
type Controller struct {
	store store.Store
	clock clock.Clock
}

// New constructs a node Controller over s, using clk for the current time so
// tests can control staleness deterministically.
func New(s store.Store, clk clock.Clock) *Controller {
	return &Controller{store: s, clock: clk}
}

func (c *Controller) Name() string                { return "node" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

// Reconcile performs one pass over every Node, writing only those whose
// status changed.
func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("node")
	entries, err := c.store.ListPrefix(ctx, apis.KindPrefix(apis.KindNodes))
	if err != nil {
		return err
	}

	now := c.clock.Now()
	var errs error
	for _, e := range entries {
		var n apis.Node
		if !store.DecodeJSON(e.Value, &n) {
			continue
		}

		desired := desiredStatus(&n, now)
		if desired == n.Status {
			continue
		}
		prev := n.Status
		n.Status = desired
		if err := store.PutJSON(ctx, c.store, e.Key, n); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		logger.Info("node status transition", "node", n.Name, "from", prev, "to", desired)
	}
	return errs
}

func desiredStatus(n *apis.Node, now time.Time) apis.NodeStatus {
	if n.IsMaster() {
		return apis.NodeReady
	}
	age := now.Sub(n.LastHeartbeat)
	switch {
	case age >= unknownThreshold:
		return apis.NodeUnknown
	case age >= notReadyThreshold:
		return apis.NodeNotReady
	default:
		return apis.NodeReady
	}
}
