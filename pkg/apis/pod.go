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

// PodStatus is the Pod lifecycle phase.
type PodStatus string

const (
	PodPending           PodStatus = "Pending"
	PodScheduled         PodStatus = "Scheduled"
	PodContainerCreating PodStatus = "ContainerCreating"
	PodRunning           PodStatus = "Running"
	PodSucceeded         PodStatus = "Succeeded"
	PodFailed            PodStatus = "Failed"
	PodUnknown           PodStatus = "Unknown"
)

// IsTerminal reports whether a pod in this status is left alone by the
// Eviction controller and by drain: Pending pods have no node to be evicted
// from, and Succeeded/Failed pods have finished running.
func (s PodStatus) IsTerminal() bool {
	return s == PodPending || s == PodSucceeded || s == PodFailed
}

// VolumeMount references a Volume declared on the Pod by name.
type VolumeMount struct {
	Name      string `json:"name"`
	MountPath string `json:"mount_path"`
}

// Volume is a storage source a Pod's containers can mount.
type Volume struct {
	Name string `json:"name"`
	// Source is left opaque (ConfigMap/Secret/PVC reference, emptyDir, etc.);
	// the core persists it byte-for-byte and never interprets it.
	Source map[string]any `json:"source,omitempty"`
}

// ContainerSpec describes one container in a Pod.
type ContainerSpec struct {
	Name         string            `json:"name"`
	Image        string            `json:"image"`
	Command      []string          `json:"command,omitempty"`
	Args         []string          `json:"args,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	Resources    ResourceList      `json:"resources"`
	VolumeMounts []VolumeMount     `json:"volume_mounts,omitempty"`
}

// PodSpec is the desired state of a Pod's containers and placement constraints.
type PodSpec struct {
	Containers   []ContainerSpec   `json:"containers"`
	NodeAffinity map[string]string `json:"node_affinity,omitempty"`
	Tolerations  []Toleration      `json:"tolerations,omitempty"`
	Volumes      []Volume          `json:"volumes,omitempty"`
}

// TotalRequests sums the resource requests across every container.
func (s PodSpec) TotalRequests() ResourceList {
	var total ResourceList
	for _, c := range s.Containers {
		total = total.Add(c.Resources)
	}
	return total
}

// RuntimeInfo is whatever the agent collaborator reports back about a
// running container; the core treats it opaquely.
type RuntimeInfo struct {
	ContainerID string         `json:"container_id,omitempty"`
	ExitCode    *int           `json:"exit_code,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Pod is namespaced. Exclusively owned by at most one parent via OwnerRef;
// standalone pods have an empty OwnerRef.
type Pod struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Namespace     string       `json:"namespace"`
	Spec          PodSpec      `json:"spec"`
	Status        PodStatus    `json:"status"`
	StatusMessage string       `json:"status_message,omitempty"`
	NodeName      string       `json:"node_name,omitempty"`
	Labels        map[string]string `json:"labels,omitempty"`
	OwnerRef      string       `json:"owner_ref,omitempty"`
	RestartCount  int          `json:"restart_count"`
	RuntimeInfo   *RuntimeInfo `json:"runtime_info,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// IsOwnedBy reports whether the pod is owned by the resource with the given id.
func (p *Pod) IsOwnedBy(id string) bool {
	return p.OwnerRef != "" && p.OwnerRef == id
}
