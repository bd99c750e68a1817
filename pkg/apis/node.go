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

// NodeStatus is the Node health state maintained by the Node controller.
type NodeStatus string

const (
	NodeReady    NodeStatus = "Ready"
	NodeNotReady NodeStatus = "NotReady"
	NodeUnknown  NodeStatus = "Unknown"
)

// MasterRoleLabel marks a Node as running colocated with the control plane;
// such nodes never heartbeat and are forced Ready by the Node controller.
const MasterRoleLabel = "node-role.corectl.io/control-plane"

// Node is cluster-scoped. It is created on registration and never
// implicitly deleted; subsequent writes come only from heartbeat,
// cordon/uncordon/drain, and the Node controller.
type Node struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Address         string            `json:"address"`
	AgentAPIPort    int               `json:"agent_api_port"`
	Status          NodeStatus        `json:"status"`
	RegisteredAt    time.Time         `json:"registered_at"`
	LastHeartbeat   time.Time         `json:"last_heartbeat"`
	Labels          map[string]string `json:"labels"`
	Taints          []Taint           `json:"taints"`
	Capacity        ResourceList      `json:"capacity"`
	Allocated       ResourceList      `json:"allocated"`
	Unschedulable   bool              `json:"unschedulable"`
}

// IsMaster reports whether this node is labeled as running the control plane.
func (n *Node) IsMaster() bool {
	if n.Labels == nil {
		return false
	}
	_, ok := n.Labels[MasterRoleLabel]
	return ok
}

// LabelsMatch reports whether n's labels contain every key/value in sel.
func (n *Node) LabelsMatch(sel map[string]string) bool {
	for k, v := range sel {
		if n.Labels[k] != v {
			return false
		}
	}
	return true
}
