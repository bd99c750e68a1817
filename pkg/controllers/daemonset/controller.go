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

// Package daemonset implements the DaemonSet Controller: it keeps
// exactly one owned Pod on every eligible Node, independent of the
// round-robin Scheduler (placement here is by node identity, not selection).
package daemonset

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"k8s.io/utils/clock"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/corectlio/corectl/pkg/agent"
	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
)

// TickInterval is the fixed reconcile period.
const TickInterval = 10 * time.Second

// Controller ensures every eligible Node runs exactly one Pod owned by each
// DaemonSet, creating Pods for newly-eligible nodes, deleting them for nodes
// that drop out, and driving the same Scheduled→ContainerCreating→Running
// transition the ReplicaSet controller drives.
type Controller struct {
	store store.Store
	agent agent.Client
	clock clock.Clock
}

// New constructs a DaemonSet Controller.
func New(s store.Store, ag agent.Client, clk clock.Clock) *Controller {
	return &Controller{store: s, agent: ag, clock: clk}
}

func (c *Controller) Name() string                { return "daemonset" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("daemonset")

	var daemonSets []apis.DaemonSet
	if err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindDaemonSets), func(_ string, raw []byte) bool {
		var ds apis.DaemonSet
		if !store.DecodeJSON(raw, &ds) {
			return false
		}
		daemonSets = append(daemonSets, ds)
		return true
	}); err != nil {
		return err
	}
	if len(daemonSets) == 0 {
		return nil
	}

	nodes, err := c.listNodes(ctx)
	if err != nil {
		return err
	}

	var errs error
	for _, ds := range daemonSets {
		if err := c.reconcileOne(ctx, logger, ds, nodes); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Controller) listNodes(ctx context.Context) ([]apis.Node, error) {
	var nodes []apis.Node
	err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindNodes), func(_ string, raw []byte) bool {
		var n apis.Node
		if !store.DecodeJSON(raw, &n) {
			return false
		}
		nodes = append(nodes, n)
		return true
	})
	return nodes, err
}

// eligible reports whether a DaemonSet's Pod belongs on node: ready,
// schedulable, and matching the DaemonSet's node selector. Resource fit and
// round-robin selection do not apply; placement is by node identity.
func eligible(n *apis.Node, ds *apis.DaemonSet) bool {
	return n.Status == apis.NodeReady && !n.Unschedulable && n.LabelsMatch(ds.Spec.NodeSelector)
}

func (c *Controller) reconcileOne(ctx context.Context, logger logr.Logger, ds apis.DaemonSet, nodes []apis.Node) error {
	ownedByNode, err := c.ownedPodsByNode(ctx, ds)
	if err != nil {
		return err
	}

	wantNodes := make(map[string]apis.Node)
	for _, n := range nodes {
		if eligible(&n, &ds) {
			wantNodes[n.Name] = n
		}
	}

	var errs error
	for nodeName, node := range wantNodes {
		if _, ok := ownedByNode[nodeName]; ok {
			continue
		}
		if err := c.createPod(ctx, ds, node); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for nodeName, kv := range ownedByNode {
		if _, ok := wantNodes[nodeName]; ok {
			continue
		}
		if err := c.store.Delete(ctx, kv.key); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	ownedByNode, err = c.ownedPodsByNode(ctx, ds)
	if err != nil {
		return multierr.Append(errs, err)
	}
	for nodeName, kv := range ownedByNode {
		if kv.pod.Status != apis.PodScheduled && kv.pod.Status != apis.PodContainerCreating {
			continue
		}
		node, ok := wantNodes[nodeName]
		if !ok {
			continue
		}
		if err := c.advance(ctx, logger, kv, node); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	ownedByNode, err = c.ownedPodsByNode(ctx, ds)
	if err != nil {
		return multierr.Append(errs, err)
	}
	status := aggregateStatus(uint32(len(wantNodes)), ownedByNode)
	if status != ds.Status {
		ds.Status = status
		if err := store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindDaemonSets, ds.Namespace, ds.ID), ds); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

type ownedPod struct {
	key string
	pod apis.Pod
}

// aggregateStatus counts ready owned pods, clamped to desired: a pod is
// ready once it is Scheduled or Running on an eligible node, matching the
// reference controller's `matches!(p.status, PodStatus::Running |
// PodStatus::Scheduled)`.
func aggregateStatus(desired uint32, ownedByNode map[string]ownedPod) apis.DaemonSetStatus {
	status := apis.DaemonSetStatus{Desired: desired, Current: uint32(len(ownedByNode))}
	for _, kv := range ownedByNode {
		if kv.pod.Status == apis.PodRunning || kv.pod.Status == apis.PodScheduled {
			status.Ready++
		}
	}
	if status.Ready > status.Desired {
		status.Ready = status.Desired
	}
	return status
}

func (c *Controller) ownedPodsByNode(ctx context.Context, ds apis.DaemonSet) (map[string]ownedPod, error) {
	byNode := map[string]ownedPod{}
	err := store.ListJSON(ctx, c.store, apis.NamespacedPrefix(apis.KindPods, ds.Namespace), func(key string, raw []byte) bool {
		var p apis.Pod
		if !store.DecodeJSON(raw, &p) || !p.IsOwnedBy(ds.ID) {
			return false
		}
		byNode[p.NodeName] = ownedPod{key: key, pod: p}
		return true
	})
	return byNode, err
}

func (c *Controller) createPod(ctx context.Context, ds apis.DaemonSet, node apis.Node) error {
	pod := apis.Pod{
		ID:        ds.PodName(node.Name),
		Name:      ds.PodName(node.Name),
		Namespace: ds.Namespace,
		Spec:      ds.Spec.Template,
		Status:    apis.PodScheduled,
		NodeName:  node.Name,
		OwnerRef:  ds.ID,
		CreatedAt: c.clock.Now(),
	}
	key := apis.NamespacedKey(apis.KindPods, ds.Namespace, pod.ID)
	return store.PutJSON(ctx, c.store, key, pod)
}

func (c *Controller) advance(ctx context.Context, logger logr.Logger, kv ownedPod, node apis.Node) error {
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
