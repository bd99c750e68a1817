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

import "testing"

func TestResourceListAdd(t *testing.T) {
	a := ResourceList{CPUMillis: 100, MemoryBytes: 1024}
	b := ResourceList{CPUMillis: 50, MemoryBytes: 2048}
	got := a.Add(b)
	want := ResourceList{CPUMillis: 150, MemoryBytes: 3072}
	if got != want {
		t.Fatalf("Add = %+v, want %+v", got, want)
	}
}

func TestResourceListSubSaturatesAtZero(t *testing.T) {
	a := ResourceList{CPUMillis: 100, MemoryBytes: 100}
	b := ResourceList{CPUMillis: 150, MemoryBytes: 40}
	got := a.Sub(b)
	want := ResourceList{CPUMillis: 0, MemoryBytes: 60}
	if got != want {
		t.Fatalf("Sub = %+v, want %+v (CPU should clamp at 0, not go negative)", got, want)
	}
}

func TestTolerationExistsToleratesAnyValue(t *testing.T) {
	taint := Taint{Key: "dedicated", Value: "gpu", Effect: TaintEffectNoSchedule}
	tol := Toleration{Key: "dedicated", Operator: TolerationOpExists}
	if !tol.Tolerates(taint) {
		t.Fatal("Exists operator should tolerate any value for a matching key")
	}
}

func TestTolerationEqualRequiresMatchingValue(t *testing.T) {
	taint := Taint{Key: "dedicated", Value: "gpu", Effect: TaintEffectNoSchedule}
	match := Toleration{Key: "dedicated", Operator: TolerationOpEqual, Value: "gpu"}
	mismatch := Toleration{Key: "dedicated", Operator: TolerationOpEqual, Value: "cpu"}

	if !match.Tolerates(taint) {
		t.Fatal("expected Equal toleration with matching value to tolerate the taint")
	}
	if mismatch.Tolerates(taint) {
		t.Fatal("expected Equal toleration with mismatched value to not tolerate the taint")
	}
}

func TestTolerationKeyMismatchNeverTolerates(t *testing.T) {
	taint := Taint{Key: "dedicated", Value: "gpu", Effect: TaintEffectNoSchedule}
	tol := Toleration{Key: "other", Operator: TolerationOpExists}
	if tol.Tolerates(taint) {
		t.Fatal("a toleration for a different key should never tolerate the taint")
	}
}

func TestNodeIsMaster(t *testing.T) {
	master := Node{Labels: map[string]string{MasterRoleLabel: ""}}
	worker := Node{Labels: map[string]string{"role": "worker"}}
	noLabels := Node{}

	if !master.IsMaster() {
		t.Fatal("expected node with control-plane label to report IsMaster")
	}
	if worker.IsMaster() {
		t.Fatal("expected worker node to not report IsMaster")
	}
	if noLabels.IsMaster() {
		t.Fatal("expected node with nil Labels to not report IsMaster")
	}
}

func TestNodeLabelsMatch(t *testing.T) {
	n := Node{Labels: map[string]string{"role": "edge", "zone": "us-east"}}

	if !n.LabelsMatch(map[string]string{"role": "edge"}) {
		t.Fatal("expected a subset selector to match")
	}
	if n.LabelsMatch(map[string]string{"role": "core"}) {
		t.Fatal("expected a mismatched value to fail LabelsMatch")
	}
	if n.LabelsMatch(map[string]string{"missing": "x"}) {
		t.Fatal("expected a missing label key to fail LabelsMatch")
	}
	if !n.LabelsMatch(nil) {
		t.Fatal("an empty selector should always match")
	}
}

func TestPodStatusIsTerminal(t *testing.T) {
	terminal := []PodStatus{PodPending, PodSucceeded, PodFailed}
	nonTerminal := []PodStatus{PodScheduled, PodContainerCreating, PodRunning, PodUnknown}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestPodIsOwnedBy(t *testing.T) {
	p := Pod{OwnerRef: "rs-1"}
	if !p.IsOwnedBy("rs-1") {
		t.Fatal("expected pod to be owned by rs-1")
	}
	if p.IsOwnedBy("rs-2") {
		t.Fatal("expected pod to not be owned by rs-2")
	}

	standalone := Pod{}
	if standalone.IsOwnedBy("") {
		t.Fatal("an empty owner ref should never match, even against an empty id")
	}
}

func TestPodSpecTotalRequests(t *testing.T) {
	spec := PodSpec{
		Containers: []ContainerSpec{
			{Resources: ResourceList{CPUMillis: 100, MemoryBytes: 128}},
			{Resources: ResourceList{CPUMillis: 200, MemoryBytes: 256}},
		},
	}
	want := ResourceList{CPUMillis: 300, MemoryBytes: 384}
	if got := spec.TotalRequests(); got != want {
		t.Fatalf("TotalRequests = %+v, want %+v", got, want)
	}
}
