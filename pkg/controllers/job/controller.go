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

// Package job implements the Job Controller: it runs Pods to
// completion up to Spec.Completions, bounded by Spec.Parallelism concurrent
// Pods, and fails the Job once Spec.BackoffLimit failed attempts accumulate.
package job

import (
	"context"
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

// Controller drives Job Pods from creation through completion or failure.
type Controller struct {
	store     store.Store
	scheduler *scheduling.Scheduler
	agent     agent.Client
	clock     clock.Clock
}

// New constructs a Job Controller.
func New(s store.Store, sched *scheduling.Scheduler, ag agent.Client, clk clock.Clock) *Controller {
	return &Controller{store: s, scheduler: sched, agent: ag, clock: clk}
}

func (c *Controller) Name() string                { return "job" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

func (c *Controller) Reconcile(ctx context.Context) error {
	logger := ctrllog.FromContext(ctx).WithName("job")

	var jobs []apis.Job
	if err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindJobs), func(_ string, raw []byte) bool {
		var j apis.Job
		if !store.DecodeJSON(raw, &j) {
			return false
		}
		jobs = append(jobs, j)
		return true
	}); err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	var nodes []apis.Node
	if err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindNodes), func(_ string, raw []byte) bool {
		var n apis.Node
		if !store.DecodeJSON(raw, &n) {
			return false
		}
		nodes = append(nodes, n)
		return true
	}); err != nil {
		return err
	}

	var errs error
	for _, j := range jobs {
		if j.Status.Condition == apis.JobComplete || j.Status.Condition == apis.JobFailed {
			continue
		}
		if err := c.reconcileOne(ctx, logger, j, nodes); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

type ownedPod struct {
	key string
	pod apis.Pod
}

func (c *Controller) ownedPods(ctx context.Context, j apis.Job) ([]ownedPod, error) {
	var owned []ownedPod
	err := store.ListJSON(ctx, c.store, apis.NamespacedPrefix(apis.KindPods, j.Namespace), func(key string, raw []byte) bool {
		var p apis.Pod
		if !store.DecodeJSON(raw, &p) || !p.IsOwnedBy(j.ID) {
			return false
		}
		owned = append(owned, ownedPod{key: key, pod: p})
		return true
	})
	return owned, err
}

func (c *Controller) reconcileOne(ctx context.Context, logger logr.Logger, j apis.Job, nodes []apis.Node) error {
	var errs error
	owned, err := c.ownedPods(ctx, j)
	if err != nil {
		return err
	}

	var active, succeeded, failed uint32
	for _, kv := range owned {
		switch kv.pod.Status {
		case apis.PodSucceeded:
			succeeded++
		case apis.PodFailed:
			failed++
		default:
			active++
		}
	}

	if j.Status.StartTime == nil {
		now := c.clock.Now()
		j.Status.StartTime = &now
	}

	if failed >= j.Spec.BackoffLimit {
		j.Status.Condition = apis.JobFailed
		now := c.clock.Now()
		j.Status.CompletionTime = &now
		j.Status.Active, j.Status.Succeeded, j.Status.Failed = active, succeeded, failed
		return c.save(ctx, j)
	}

	if succeeded >= j.Spec.Completions {
		j.Status.Condition = apis.JobComplete
		now := c.clock.Now()
		j.Status.CompletionTime = &now
		j.Status.Active, j.Status.Succeeded, j.Status.Failed = active, succeeded, failed
		return c.save(ctx, j)
	}

	var remaining uint32
	if active+succeeded < j.Spec.Completions {
		remaining = j.Spec.Completions - active - succeeded
	}
	room := remaining
	if j.Spec.Parallelism > 0 {
		room = 0
		if active < j.Spec.Parallelism {
			room = j.Spec.Parallelism - active
		}
	}
	toCreate := remaining
	if room < toCreate {
		toCreate = room
	}
	for i := uint32(0); i < toCreate; i++ {
		if _, err := c.createPod(ctx, j, nodes); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	owned, err = c.ownedPods(ctx, j)
	if err != nil {
		return multierr.Append(errs, err)
	}
	for _, kv := range owned {
		if kv.pod.Status == apis.PodScheduled || kv.pod.Status == apis.PodContainerCreating {
			if err := c.advance(ctx, logger, kv); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}

	owned, err = c.ownedPods(ctx, j)
	if err != nil {
		return multierr.Append(errs, err)
	}
	active, succeeded, failed = 0, 0, 0
	for _, kv := range owned {
		switch kv.pod.Status {
		case apis.PodSucceeded:
			succeeded++
		case apis.PodFailed:
			failed++
		default:
			active++
		}
	}
	j.Status.Condition = apis.JobRunning
	j.Status.Active, j.Status.Succeeded, j.Status.Failed = active, succeeded, failed
	return multierr.Append(errs, c.save(ctx, j))
}

func (c *Controller) save(ctx context.Context, j apis.Job) error {
	return store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindJobs, j.Namespace, j.ID), j)
}

func (c *Controller) createPod(ctx context.Context, j apis.Job, nodes []apis.Node) (*apis.Pod, error) {
	id := uuid.NewString()
	pod := apis.Pod{
		ID:        id,
		Name:      j.Name + "-" + id[:8],
		Namespace: j.Namespace,
		Spec:      j.Spec.Template,
		Status:    apis.PodPending,
		OwnerRef:  j.ID,
		CreatedAt: c.clock.Now(),
	}
	if nodeName, ok := c.scheduler.Schedule(&pod, nodes); ok {
		pod.NodeName = nodeName
		pod.Status = apis.PodScheduled
	}
	key := apis.NamespacedKey(apis.KindPods, j.Namespace, id)
	if err := store.PutJSON(ctx, c.store, key, pod); err != nil {
		return nil, err
	}
	return &pod, nil
}

func (c *Controller) advance(ctx context.Context, logger logr.Logger, kv ownedPod) error {
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

	info, err := c.agent.CreateContainer(ctx, agent.CreateContainerRequest{PodID: pod.ID, Image: image, Command: command})
	if err != nil {
		pod.Status = apis.PodFailed
		pod.StatusMessage = err.Error()
		logger.Error(err, "agent failed to create container", "pod", pod.Name)
	} else {
		// Job pods run to completion with no ongoing runtime to poll; a
		// successful agent call is treated as the run having finished.
		pod.Status = apis.PodSucceeded
		pod.RuntimeInfo = &info
	}
	return store.PutJSON(ctx, c.store, kv.key, pod)
}
