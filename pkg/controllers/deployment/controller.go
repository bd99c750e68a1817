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

// Package deployment implements the Deployment Controller: it
// reconciles a Deployment into the ReplicaSet matching its current pod
// template, rolling traffic over from any stale ReplicaSets per its
// strategy, and aggregates status back from them.
package deployment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/hash"
	"github.com/corectlio/corectl/pkg/store"
)

// TickInterval is the fixed reconcile period.
const TickInterval = 10 * time.Second

// Controller reconciles Deployments into ReplicaSets.
type Controller struct {
	store store.Store
}

// New constructs a Deployment Controller.
func New(s store.Store) *Controller {
	return &Controller{store: s}
}

func (c *Controller) Name() string                { return "deployment" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("deployment")

	var deployments []apis.Deployment
	if err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindDeployments), func(_ string, raw []byte) bool {
		var d apis.Deployment
		if !store.DecodeJSON(raw, &d) {
			return false
		}
		deployments = append(deployments, d)
		return true
	}); err != nil {
		return err
	}

	var errs error
	for _, d := range deployments {
		if err := c.reconcileOne(ctx, d); err != nil {
			errs = multierr.Append(errs, err)
			logger.Error(err, "deployment reconcile failed", "deployment", d.Name, "namespace", d.Namespace)
		}
	}
	return errs
}

type ownedRS struct {
	key string
	rs  apis.ReplicaSet
}

func (c *Controller) ownedReplicaSets(ctx context.Context, d apis.Deployment) ([]ownedRS, error) {
	var owned []ownedRS
	err := store.ListJSON(ctx, c.store, apis.NamespacedPrefix(apis.KindReplicaSets, d.Namespace), func(key string, raw []byte) bool {
		var rs apis.ReplicaSet
		if !store.DecodeJSON(raw, &rs) || rs.OwnerRef != d.ID {
			return false
		}
		owned = append(owned, ownedRS{key: key, rs: rs})
		return true
	})
	return owned, err
}

func (c *Controller) reconcileOne(ctx context.Context, d apis.Deployment) error {
	templateHash := hash.TemplateHash(d.Spec.Template)

	owned, err := c.ownedReplicaSets(ctx, d)
	if err != nil {
		return err
	}

	var current *ownedRS
	for i := range owned {
		if owned[i].rs.TemplateHash == templateHash {
			current = &owned[i]
			break
		}
	}

	var errs error
	switch d.Spec.Strategy.Type {
	case apis.StrategyRecreate:
		errs = c.reconcileRecreate(ctx, d, templateHash, current, owned)
	default:
		errs = c.reconcileRollingUpdate(ctx, d, templateHash, current, owned)
	}

	owned, err = c.ownedReplicaSets(ctx, d)
	if err != nil {
		return multierr.Append(errs, err)
	}
	var ready, available, updated uint32
	for _, o := range owned {
		ready += o.rs.Status.ReadyReplicas
		available += o.rs.Status.AvailableReplicas
		if o.rs.TemplateHash == templateHash {
			updated += o.rs.Status.ReadyReplicas
		}
	}
	d.Status.ReadyReplicas = ready
	d.Status.AvailableReplicas = available
	d.Status.UpdatedReplicas = updated
	d.Status.ObservedGeneration = d.Generation
	if err := store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindDeployments, d.Namespace, d.ID), d); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (c *Controller) reconcileRollingUpdate(ctx context.Context, d apis.Deployment, templateHash string, current *ownedRS, owned []ownedRS) error {
	maxSurge := d.Spec.Strategy.MaxSurge
	var errs error

	if current == nil {
		initial := d.Spec.Replicas
		if maxSurge > 0 && maxSurge < initial {
			initial = maxSurge
		}
		if err := c.createReplicaSet(ctx, d, templateHash, initial); err != nil {
			return err
		}
		step := maxSurge
		if step == 0 {
			step = 1
		}
		for _, o := range owned {
			if o.rs.TemplateHash == templateHash || o.rs.Spec.Replicas == 0 {
				continue
			}
			o.rs.Spec.Replicas = saturatingSub(o.rs.Spec.Replicas, step)
			if err := store.PutJSON(ctx, c.store, o.key, o.rs); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		return errs
	}

	if current.rs.Spec.Replicas != d.Spec.Replicas {
		current.rs.Spec.Replicas = d.Spec.Replicas
		if err := store.PutJSON(ctx, c.store, current.key, current.rs); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for _, o := range owned {
		if o.rs.TemplateHash == templateHash || o.rs.Spec.Replicas == 0 {
			continue
		}
		o.rs.Spec.Replicas = 0
		if err := store.PutJSON(ctx, c.store, o.key, o.rs); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Controller) reconcileRecreate(ctx context.Context, d apis.Deployment, templateHash string, current *ownedRS, owned []ownedRS) error {
	var errs error
	if current == nil {
		for _, o := range owned {
			if o.rs.Spec.Replicas == 0 {
				continue
			}
			o.rs.Spec.Replicas = 0
			if err := store.PutJSON(ctx, c.store, o.key, o.rs); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if err := c.createReplicaSet(ctx, d, templateHash, d.Spec.Replicas); err != nil {
			errs = multierr.Append(errs, err)
		}
		return errs
	}
	if current.rs.Spec.Replicas != d.Spec.Replicas {
		current.rs.Spec.Replicas = d.Spec.Replicas
		if err := store.PutJSON(ctx, c.store, current.key, current.rs); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Controller) createReplicaSet(ctx context.Context, d apis.Deployment, templateHash string, replicas uint32) error {
	rs := apis.ReplicaSet{
		ID:        uuid.NewString(),
		Name:      d.ReplicaSetName(templateHash),
		Namespace: d.Namespace,
		Spec: apis.ReplicaSetSpec{
			Replicas: replicas,
			Selector: d.Spec.Selector,
			Template: d.Spec.Template,
		},
		OwnerRef:     d.ID,
		TemplateHash: templateHash,
	}
	return store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindReplicaSets, d.Namespace, rs.ID), rs)
}

func saturatingSub(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}
