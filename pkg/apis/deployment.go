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

// DeploymentStrategyType selects how a Deployment rolls a template change
// out to its owned ReplicaSets.
type DeploymentStrategyType string

const (
	StrategyRollingUpdate DeploymentStrategyType = "RollingUpdate"
	StrategyRecreate      DeploymentStrategyType = "Recreate"
)

// DeploymentStrategy configures the rollout.
type DeploymentStrategy struct {
	Type          DeploymentStrategyType `json:"type"`
	MaxSurge      uint32                 `json:"max_surge,omitempty"`
	MaxUnavailable uint32                `json:"max_unavailable,omitempty"`
}

// DeploymentSpec is the desired state of a Deployment.
type DeploymentSpec struct {
	Replicas uint32              `json:"replicas"`
	Selector map[string]string   `json:"selector"`
	Template PodSpec             `json:"template"`
	Strategy DeploymentStrategy  `json:"strategy"`
}

// DeploymentStatus is the aggregated state across owned ReplicaSets.
type DeploymentStatus struct {
	ObservedGeneration uint64 `json:"observed_generation"`
	Replicas           uint32 `json:"replicas"`
	ReadyReplicas      uint32 `json:"ready_replicas"`
	AvailableReplicas  uint32 `json:"available_replicas"`
	UpdatedReplicas    uint32 `json:"updated_replicas"`
}

// Deployment is namespaced. Generation increments on every spec change;
// its controller writes ObservedGeneration once it has reconciled that
// generation.
type Deployment struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Namespace  string           `json:"namespace"`
	Generation uint64           `json:"generation"`
	Spec       DeploymentSpec   `json:"spec"`
	Status     DeploymentStatus `json:"status"`
}

// ReplicaSetName derives the owned ReplicaSet's name from the Deployment name
// and the first 8 characters of the template hash.
func (d *Deployment) ReplicaSetName(templateHash string) string {
	n := templateHash
	if len(n) > 8 {
		n = n[:8]
	}
	return d.Name + "-" + n
}
