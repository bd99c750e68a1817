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

// ResourceList is a resource vector, in the two dimensions the scheduler
// understands.
type ResourceList struct {
	CPUMillis   int64 `json:"cpu_millis"`
	MemoryBytes int64 `json:"memory_bytes"`
}

// Sub returns r minus o, clamped at zero per dimension (saturating
// subtraction, so allocated never exceeds capacity).
func (r ResourceList) Sub(o ResourceList) ResourceList {
	return ResourceList{
		CPUMillis:   saturatingSub(r.CPUMillis, o.CPUMillis),
		MemoryBytes: saturatingSub(r.MemoryBytes, o.MemoryBytes),
	}
}

// Add returns the element-wise sum of r and o.
func (r ResourceList) Add(o ResourceList) ResourceList {
	return ResourceList{
		CPUMillis:   r.CPUMillis + o.CPUMillis,
		MemoryBytes: r.MemoryBytes + o.MemoryBytes,
	}
}

func saturatingSub(a, b int64) int64 {
	if b >= a {
		return 0
	}
	return a - b
}

// TaintEffect is the scheduling effect a Node taint has on pods that don't
// tolerate it.
type TaintEffect string

const (
	TaintEffectNoSchedule       TaintEffect = "NoSchedule"
	TaintEffectPreferNoSchedule TaintEffect = "PreferNoSchedule"
	TaintEffectNoExecute        TaintEffect = "NoExecute"
)

// Taint is attached to a Node; a Pod must carry a matching Toleration to
// schedule onto a node with a NoSchedule/NoExecute taint.
type Taint struct {
	Key    string      `json:"key"`
	Value  string      `json:"value"`
	Effect TaintEffect `json:"effect"`
}

// TolerationOperator determines how a Toleration's Value is compared to a Taint's.
type TolerationOperator string

const (
	TolerationOpExists TolerationOperator = "Exists"
	TolerationOpEqual  TolerationOperator = "Equal"
)

// Toleration lets a Pod schedule onto a Node carrying a matching Taint.
type Toleration struct {
	Key      string             `json:"key"`
	Operator TolerationOperator `json:"operator"`
	Value    string             `json:"value"`
}

// Tolerates reports whether t tolerates taint.
func (t Toleration) Tolerates(taint Taint) bool {
	if t.Key != taint.Key {
		return false
	}
	switch t.Operator {
	case TolerationOpExists:
		return true
	case TolerationOpEqual:
		return t.Value == taint.Value
	default:
		return false
	}
}
