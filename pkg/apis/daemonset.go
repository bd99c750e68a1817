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

// DaemonSetSpec is the desired pod template and node eligibility filter.
type DaemonSetSpec struct {
	Template     PodSpec           `json:"template"`
	NodeSelector map[string]string `json:"node_selector,omitempty"`
}

// DaemonSetStatus is the observed placement state.
type DaemonSetStatus struct {
	Desired uint32 `json:"desired"`
	Current uint32 `json:"current"`
	Ready   uint32 `json:"ready"`
}

// DaemonSet is namespaced. Invariant: every eligible node has exactly
// one owned Pod.
type DaemonSet struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Namespace string           `json:"namespace"`
	Spec      DaemonSetSpec    `json:"spec"`
	Status    DaemonSetStatus  `json:"status"`
}

// PodName derives an owned Pod's name from the DaemonSet name and target node.
func (d *DaemonSet) PodName(nodeName string) string {
	return d.Name + "-" + nodeName
}
