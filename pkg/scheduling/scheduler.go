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

// Package scheduling implements the pure-function round-robin scheduler:
// a pod/node pair in, a node name (or none) out, with no I/O.
package scheduling

import (
	"sync/atomic"

	"github.com/corectlio/corectl/pkg/apis"
	"github.com/corectlio/corectl/pkg/metrics"
)

// Scheduler selects a node for a pod. It holds no state beyond the
// round-robin cursor, so a single instance is safe to share across the
// process and call concurrently.
type Scheduler struct {
	next atomic.Uint64
}

// New constructs a Scheduler with its round-robin cursor at zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Schedule returns the Name of the node pod should bind to, or ok=false if
// no node in nodes is eligible. It returns the node's name,
// not its id: Pod.NodeName is defined in terms of Node.Name.
func (s *Scheduler) Schedule(pod *apis.Pod, nodes []apis.Node) (nodeName string, ok bool) {
	eligible := make([]*apis.Node, 0, len(nodes))
	for i := range nodes {
		if isEligible(&nodes[i], pod) {
			eligible = append(eligible, &nodes[i])
		}
	}
	if len(eligible) == 0 {
		metrics.SchedulingAttemptsTotal.Inc(map[string]string{metrics.ReasonLabel: "unschedulable"})
		return "", false
	}

	idx := s.next.Add(1) - 1
	selected := eligible[int(idx%uint64(len(eligible)))]
	metrics.SchedulingAttemptsTotal.Inc(map[string]string{metrics.ReasonLabel: "scheduled"})
	return selected.Name, true
}

// isEligible applies the filter pipeline: readiness, cordon status,
// node affinity, taints/tolerations, then resource fit.
func isEligible(node *apis.Node, pod *apis.Pod) bool {
	if node.Status != apis.NodeReady {
		return false
	}
	if node.Unschedulable {
		return false
	}
	if !nodeAffinityMatches(node, pod) {
		return false
	}
	if !taintsTolerated(node, pod) {
		return false
	}
	return resourcesFit(node, pod)
}

func nodeAffinityMatches(node *apis.Node, pod *apis.Pod) bool {
	for key, value := range pod.Spec.NodeAffinity {
		if v, ok := node.Labels[key]; !ok || v != value {
			return false
		}
	}
	return true
}

func taintsTolerated(node *apis.Node, pod *apis.Pod) bool {
	for _, taint := range node.Taints {
		tolerated := false
		for _, t := range pod.Spec.Tolerations {
			if t.Tolerates(taint) {
				tolerated = true
				break
			}
		}
		if tolerated {
			continue
		}
		switch taint.Effect {
		case apis.TaintEffectNoSchedule, apis.TaintEffectNoExecute:
			return false
		case apis.TaintEffectPreferNoSchedule:
			// Soft preference: does not reject the node.
		}
	}
	return true
}

func resourcesFit(node *apis.Node, pod *apis.Pod) bool {
	req := pod.Spec.TotalRequests()
	if node.Capacity.CPUMillis > 0 {
		available := node.Capacity.CPUMillis - node.Allocated.CPUMillis
		if available < 0 {
			available = 0
		}
		if req.CPUMillis > available {
			return false
		}
	}
	if node.Capacity.MemoryBytes > 0 {
		available := node.Capacity.MemoryBytes - node.Allocated.MemoryBytes
		if available < 0 {
			available = 0
		}
		if req.MemoryBytes > available {
			return false
		}
	}
	return true
}
