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

// Package hpa implements the HorizontalPodAutoscaler Controller: it
// adjusts a target Deployment's replica count by at most one step per pass,
// combining every metric's verdict rather than applying each independently.
package hpa

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

// placeholderUtilization simulates an agent-reported metric: real deployments
// report actual CPU/memory usage, which this module never collects.
// Consuming a constant here is explicitly sanctioned as a placeholder.
func placeholderUtilization(metric string) int64 {
	if metric == "memory" {
		return 60
	}
	return 70
}

// downStep is how far below target a metric must sit before it votes to
// scale down.
const downStep = 10

// Controller scales HorizontalPodAutoscaler targets.
type Controller struct {
	store store.Store
	clock clock.Clock
}

// New constructs an HPA Controller.
func New(s store.Store, clk clock.Clock) *Controller {
	return &Controller{store: s, clock: clk}
}

func (c *Controller) Name() string                { return "hpa" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("hpa")

	entries, err := c.store.ListPrefix(ctx, apis.KindPrefix(apis.KindHPAs))
	if err != nil {
		return err
	}

	var errs error
	for _, e := range entries {
		var h apis.HorizontalPodAutoscaler
		if !store.DecodeJSON(e.Value, &h) {
			continue
		}
		if err := c.reconcileOne(ctx, e.Key, h); err != nil {
			errs = multierr.Append(errs, err)
			logger.Error(err, "hpa reconcile failed", "hpa", h.Name, "namespace", h.Namespace)
		}
	}
	return errs
}

func (c *Controller) reconcileOne(ctx context.Context, hpaKey string, h apis.HorizontalPodAutoscaler) error {
	deployKey := apis.NamespacedKey(apis.KindDeployments, h.Namespace, h.Spec.TargetDeployment)
	var deploy apis.Deployment
	ok, err := store.GetJSON(ctx, c.store, deployKey, &deploy)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	current := deploy.Spec.Replicas
	step, utilization := c.vote(h, current)

	h.Status.CurrentReplicas = current
	h.Status.CurrentUtilization = utilization
	desired := current

	if step > 0 && current < h.Spec.MaxReplicas {
		desired = current + 1
	} else if step < 0 && current > h.Spec.MinReplicas {
		desired = current - 1
	}
	h.Status.DesiredReplicas = desired

	var errs error
	if desired != current {
		deploy.Spec.Replicas = desired
		deploy.Generation++
		if err := store.PutJSON(ctx, c.store, deployKey, deploy); err != nil {
			return err
		}
		now := c.clock.Now()
		h.Status.LastScaleTime = &now
	}
	if err := store.PutJSON(ctx, c.store, hpaKey, h); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// vote combines every metric's up/down verdict into a single step in
// {-1, 0, +1}: any metric over target votes the pass up, which outranks any
// metric voting down, so scaling never moves in both directions at once.
func (c *Controller) vote(h apis.HorizontalPodAutoscaler, current uint32) (int, map[string]int64) {
	utilization := make(map[string]int64, len(h.Spec.Metrics))
	wantUp, wantDown := false, false
	for _, m := range h.Spec.Metrics {
		u := placeholderUtilization(m.Name)
		utilization[m.Name] = u
		switch {
		case u > m.TargetUtilization:
			wantUp = true
		case u < m.TargetUtilization-downStep:
			wantDown = true
		}
	}
	switch {
	case wantUp:
		return 1, utilization
	case wantDown:
		return -1, utilization
	default:
		return 0, utilization
	}
}
