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

// Package replicaset implements the ReplicaSet Controller: it
// converges the number of owned Pods toward spec.Replicas and drives the
// Scheduled → ContainerCreating → Running|Failed transition by handing
// scheduled pods off to the node agent collaborator.
package replicaset

import (
	"context"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"k8s.io/utils/clock"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/corectlio/corectl/pkg/agent"
	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/scheduling"
	"github.com/corectlio/corectl/pkg/store"
)

// TickInterval is the fixed reconcile period.
const TickInterval = 10 * time.Second

// Controller reconciles every ReplicaSet's owned Pod count and drives the
// Scheduled→ContainerCreating→Running|Failed transition for them.
type Controller struct {
	store     store.Store
	scheduler *scheduling.Scheduler
	agent     agent.Client
	clock     clock.Clock
}

// New constructs a ReplicaSet Controller.
func New(s store.Store, sched *scheduling.Scheduler, ag agent.Client, clk clock.Clock) *Controller {
	return &Controller{store: s, scheduler: sched, agent: ag, clock: clk}
}

func (c *Controller) Name() string                { return "replicaset" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("replicaset")

	var replicaSets []apis.ReplicaSet
	if err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindReplicaSets), func(_ string, raw []byte) bool {
		var rs apis.ReplicaSet
		if !store.DecodeJSON(raw, &rs) {
			return false
		}
		replicaSets = append(replicaSets, rs)
		return true
	}); err != nil {
		return err
	}
	if len(replicaSets) == 0 {
		return nil
	}

	nodesByName, err := c.listNodesByName(ctx)
	if err != nil {
		return err
	}
	nodes := make([]apis.Node, 0, len(nodesByName))
	for _, n := range nodesByName {
		nodes = append(nodes, n)
	}

	var errs error
	for _, rs := range replicaSets {
		if err := c.reconcileOne(ctx, logger, rs, nodes, nodesByName); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Controller) listNodesByName(ctx context.Context) (map[string]apis.Node, error) {
	byName := map[string]apis.Node{}
	err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindNodes), func(_ string, raw []byte) bool {
		var n apis.Node
		if !store.DecodeJSON(raw, &n) {
			return false
		}
		byName[n.Name] = n
		return true
	})
	return byName, err
}

func (c *Controller) reconcileOne(ctx context.Context, logger logr.Logger, rs apis.ReplicaSet, nodes []apis.Node, nodesByName map[string]apis.Node) error {
	owned, err := c.ownedPods(ctx, rs)
	if err != nil {
		return err
	}

	var errs error
	switch n := uint32(len(owned)); {
	case n < rs.Spec.Replicas:
		for i := uint32(0); i < rs.Spec.Replicas-n; i++ {
			if _, err := c.createPod(ctx, rs, nodes); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	case n > rs.Spec.Replicas:
		sort.Slice(owned, func(i, j int) bool { return owned[i].pod.CreatedAt.After(owned[j].pod.CreatedAt) })
		for _, kv := range owned[:n-rs.Spec.Replicas] {
			if err := c.store.Delete(ctx, kv.key); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}

	// Drive Scheduled/ContainerCreating pods toward Running|Failed via the
	// agent collaborator.
	owned, err = c.ownedPods(ctx, rs)
	if err != nil {
		return multierr.Append(errs, err)
	}
	for _, kv := range owned {
		if kv.pod.Status == apis.PodScheduled || kv.pod.Status == apis.PodContainerCreating {
			if err := c.advance(ctx, logger, kv, nodesByName); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}

	// Recount and persist status.
	owned, err = c.ownedPods(ctx, rs)
	if err != nil {
		return multierr.Append(errs, err)
	}
	status := aggregateStatus(owned)
	if status != rs.Status {
		rs.Status = status
		if err := store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindReplicaSets, rs.Namespace, rs.ID), rs); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

type ownedPod struct {
	key string
	pod apis.Pod
}

func (c *Controller) ownedPods(ctx context.Context, rs apis.ReplicaSet) ([]ownedPod, error) {
	var owned []ownedPod
	err := store.ListJSON(ctx, c.store, apis.NamespacedPrefix(apis.KindPods, rs.Namespace), func(key string, raw []byte) bool {
		var p apis.Pod
		if !store.DecodeJSON(raw, &p) || !p.IsOwnedBy(rs.ID) {
			return false
		}
		owned = append(owned, ownedPod{key: key, pod: p})
		return true
	})
	return owned, err
}

func (c *Controller) createPod(ctx context.Context, rs apis.ReplicaSet, nodes []apis.Node) (*apis.Pod, error) {
	id := uuid.NewString()
	pod := apis.Pod{
		ID:        id,
		Name:      rs.Name + "-" + id[:8],
		Namespace: rs.Namespace,
		Spec:      rs.Spec.Template,
		Status:    apis.PodPending,
		Labels:    rs.Spec.Selector,
		OwnerRef:  rs.ID,
		CreatedAt: c.clock.Now(),
	}
	if nodeName, ok := c.scheduler.Schedule(&pod, nodes); ok {
		pod.NodeName = nodeName
		pod.Status = apis.PodScheduled
	}
	key := apis.NamespacedKey(apis.KindPods, rs.Namespace, id)
	if err := store.PutJSON(ctx, c.store, key, pod); err != nil {
		return nil, err
	}
	return &pod, nil
}

// advance drives one Scheduled/ContainerCreating pod one step closer to
// Running|Failed by invoking the agent collaborator once.
func (c *Controller) advance(ctx context.Context, logger logr.Logger, kv ownedPod, nodesByName map[string]apis.Node) error {
	pod := kv.pod
	if pod.Status == apis.PodScheduled {
		pod.Status = apis.PodContainerCreating
		if err := store.PutJSON(ctx, c.store, kv.key, pod); err != nil {
			return err
		}
	}

	var image string
	var command []string
	if len(pod.Spec.Containers) > 0 {
		image = pod.Spec.Containers[0].Image
		command = pod.Spec.Containers[0].Command
	}
	node := nodesByName[pod.NodeName]

	info, err := c.agent.CreateContainer(ctx, agent.CreateContainerRequest{
		NodeAddress: node.Address,
		NodeAPIPort: node.AgentAPIPort,
		PodID:       pod.ID,
		Image:       image,
		Command:     command,
	})
	if err != nil {
		pod.Status = apis.PodFailed
		pod.StatusMessage = err.Error()
		logger.Error(err, "agent failed to create container", "pod", pod.Name)
	} else {
		pod.Status = apis.PodRunning
		pod.RuntimeInfo = &info
	}
	return store.PutJSON(ctx, c.store, kv.key, pod)
}

func aggregateStatus(owned []ownedPod) apis.ReplicaSetStatus {
	var status apis.ReplicaSetStatus
	status.Replicas = uint32(len(owned))
	for _, kv := range owned {
		switch kv.pod.Status {
		case apis.PodRunning:
			status.ReadyReplicas++
			status.AvailableReplicas++
		case apis.PodScheduled, apis.PodContainerCreating:
			status.ReadyReplicas++
		}
	}
	return status
}
