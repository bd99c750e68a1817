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

// MetricTarget is one metric the HPA controller scales on.
type MetricTarget struct {
	Name              string `json:"name"`
	TargetUtilization int64  `json:"target_utilization"`
}

// HorizontalPodAutoscalerSpec is the desired scaling bounds and metrics.
type HorizontalPodAutoscalerSpec struct {
	TargetDeployment string         `json:"target_deployment"`
	MinReplicas      uint32         `json:"min_replicas"`
	MaxReplicas      uint32         `json:"max_replicas"`
	Metrics          []MetricTarget `json:"metrics"`
}

// HorizontalPodAutoscalerStatus is the observed scaling state.
type HorizontalPodAutoscalerStatus struct {
	CurrentReplicas      uint32           `json:"current_replicas"`
	DesiredReplicas       uint32           `json:"desired_replicas"`
	LastScaleTime         *time.Time       `json:"last_scale_time,omitempty"`
	CurrentUtilization    map[string]int64 `json:"current_utilization,omitempty"`
}

// HorizontalPodAutoscaler is namespaced.
type HorizontalPodAutoscaler struct {
	ID        string                          `json:"id"`
	Name      string                          `json:"name"`
	Namespace string                          `json:"namespace"`
	Spec      HorizontalPodAutoscalerSpec     `json:"spec"`
	Status    HorizontalPodAutoscalerStatus   `json:"status"`
}
