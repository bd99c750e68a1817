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

// Package cronjob implements the CronJob Controller: it fires a new
// Job whenever a CronJob's schedule comes due and prunes completed Jobs it
// previously spawned from the active list.
package cronjob

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/store"
)

// TickInterval is the fixed reconcile period. It is finer than a
// minute so a due schedule is never missed by more than this window.
const TickInterval = 10 * time.Second

// Controller spawns Jobs from CronJob schedules.
type Controller struct {
	store store.Store
	clock clock.Clock
}

// New constructs a CronJob Controller.
func New(s store.Store, clk clock.Clock) *Controller {
	return &Controller{store: s, clock: clk}
}

func (c *Controller) Name() string                { return "cronjob" }
func (c *Controller) TickInterval() time.Duration { return TickInterval }

func (c *Controller) Reconcile(ctx context.Context) error {
	var cronJobs []apis.CronJob
	if err := store.ListJSON(ctx, c.store, apis.KindPrefix(apis.KindCronJobs), func(_ string, raw []byte) bool {
		var cj apis.CronJob
		if !store.DecodeJSON(raw, &cj) {
			return false
		}
		cronJobs = append(cronJobs, cj)
		return true
	}); err != nil {
		return err
	}
	if len(cronJobs) == 0 {
		return nil
	}

	now := c.clock.Now()
	var errs error
	for _, cj := range cronJobs {
		if err := c.reconcileOne(ctx, cj, now); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Controller) reconcileOne(ctx context.Context, cj apis.CronJob, now time.Time) error {
	changed := c.pruneCompleted(ctx, &cj)

	if !cj.Spec.Suspend && isScheduleDue(cj.Spec.Schedule, cj.Status.LastScheduleTime, now) {
		job := c.newJob(cj, now)
		if err := store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindJobs, cj.Namespace, job.ID), job); err != nil {
			return err
		}
		cj.Status.ActiveJobs = append(cj.Status.ActiveJobs, job.ID)
		cj.Status.LastScheduleTime = &now
		changed = true
	}

	if !changed {
		return nil
	}
	return store.PutJSON(ctx, c.store, apis.NamespacedKey(apis.KindCronJobs, cj.Namespace, cj.ID), cj)
}

// pruneCompleted drops any Job id from ActiveJobs whose Job has reached a
// terminal condition or been deleted, and reports whether it changed cj.
func (c *Controller) pruneCompleted(ctx context.Context, cj *apis.CronJob) bool {
	if len(cj.Status.ActiveJobs) == 0 {
		return false
	}
	kept := cj.Status.ActiveJobs[:0]
	for _, id := range cj.Status.ActiveJobs {
		var job apis.Job
		ok, err := store.GetJSON(ctx, c.store, apis.NamespacedKey(apis.KindJobs, cj.Namespace, id), &job)
		if err != nil || !ok {
			continue
		}
		if job.Status.Condition == apis.JobComplete || job.Status.Condition == apis.JobFailed {
			continue
		}
		kept = append(kept, id)
	}
	changed := len(kept) != len(cj.Status.ActiveJobs)
	cj.Status.ActiveJobs = kept
	return changed
}

// isScheduleDue inspects only the minute field of schedule (the first
// whitespace-separated token), as spec requires: `*` fires every minute,
// `*/N` every N minutes, a bare integer at that wall-clock minute. Every
// other form, including the rest of the cron expression, never fires.
func isScheduleDue(schedule string, last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	elapsedMinutes := int64(now.Sub(*last) / time.Minute)

	switch field := minuteField(schedule); {
	case field == "*":
		return elapsedMinutes >= 1
	case strings.HasPrefix(field, "*/"):
		n, err := strconv.ParseInt(field[len("*/"):], 10, 64)
		return err == nil && n > 0 && elapsedMinutes >= n
	default:
		target, err := strconv.ParseUint(field, 10, 32)
		return err == nil && uint32(now.Minute()) == uint32(target) && elapsedMinutes >= 1
	}
}

func minuteField(schedule string) string {
	fields := strings.Fields(schedule)
	if len(fields) == 0 {
		return "*"
	}
	return fields[0]
}

func (c *Controller) newJob(cj apis.CronJob, now time.Time) apis.Job {
	id := uuid.NewString()
	return apis.Job{
		ID:        id,
		Name:      cj.Name + "-" + id[:8],
		Namespace: cj.Namespace,
		Spec:      cj.Spec.JobTemplate,
		Status:    apis.JobStatus{Condition: apis.JobRunning, StartTime: &now},
		OwnerRef:  cj.ID,
	}
}
