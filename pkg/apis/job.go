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

package apis

import "time"

// JobCondition is the terminal/non-terminal state of a Job.
type JobCondition string

const (
	JobRunning  JobCondition = "Running"
	JobComplete JobCondition = "Complete"
	JobFailed   JobCondition = "Failed"
)

// JobSpec is the desired state of a Job.
type JobSpec struct {
	Template     PodSpec `json:"template"`
	Completions  uint32  `json:"completions"`
	Parallelism  uint32  `json:"parallelism"`
	BackoffLimit uint32  `json:"backoff_limit"`
}

// JobStatus is the observed aggregate state of a Job's owned Pods.
type JobStatus struct {
	Active         uint32       `json:"active"`
	Succeeded      uint32       `json:"succeeded"`
	Failed         uint32       `json:"failed"`
	Condition      JobCondition `json:"condition"`
	StartTime      *time.Time   `json:"start_time,omitempty"`
	CompletionTime *time.Time   `json:"completion_time,omitempty"`
}

// Job is namespaced. Optionally owned by a CronJob.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Spec      JobSpec   `json:"spec"`
	Status    JobStatus `json:"status"`
	OwnerRef  string    `json:"owner_ref,omitempty"`
}

// CronJobSpec is the desired state of a CronJob.
type CronJobSpec struct {
	Schedule    string  `json:"schedule"`
	JobTemplate JobSpec `json:"job_template"`
	Suspend     bool    `json:"suspend"`
}

// CronJobStatus tracks the last scheduled firing and the Jobs it spawned
// that are still active.
type CronJobStatus struct {
	LastScheduleTime *time.Time `json:"last_schedule_time,omitempty"`
	ActiveJobs       []string   `json:"active_jobs,omitempty"`
}

// CronJob is namespaced. Owns the Jobs it schedules.
type CronJob struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Namespace string        `json:"namespace"`
	Spec      CronJobSpec   `json:"spec"`
	Status    CronJobStatus `json:"status"`
}
