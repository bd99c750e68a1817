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

// ReplicaSetSpec is the desired replica count and pod template.
type ReplicaSetSpec struct {
	Replicas uint32            `json:"replicas"`
	Selector map[string]string `json:"selector"`
	Template PodSpec           `json:"template"`
}

// ReplicaSetStatus is the observed aggregate state of owned Pods.
type ReplicaSetStatus struct {
	Replicas          uint32 `json:"replicas"`
	ReadyReplicas     uint32 `json:"ready_replicas"`
	AvailableReplicas uint32 `json:"available_replicas"`
}

// ReplicaSet is namespaced. Owns exactly the Pods whose OwnerRef equals its ID.
type ReplicaSet struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Namespace    string           `json:"namespace"`
	Spec         ReplicaSetSpec   `json:"spec"`
	Status       ReplicaSetStatus `json:"status"`
	OwnerRef     string           `json:"owner_ref,omitempty"`
	TemplateHash string           `json:"template_hash"`
}
