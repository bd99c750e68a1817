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

// Namespace is cluster-scoped and otherwise opaque to the core beyond
// providing the namespace name CRUD handlers validate against.
type Namespace struct {
	Name string `json:"name"`
}

// OpaqueKinds lists every kind the core stores and lists by prefix without
// reconciling: Service, Endpoint, Ingress, ConfigMap, Secret, PVC,
// NetworkPolicy, ResourceQuota, Role, RoleBinding. They have no typed Go
// structs — there is no reconciler that ever needs to interpret their
// fields, only the API CRUD surface. That surface decodes a client's JSON
// object into a generic map, sets its id and namespace, and stores the
// re-encoded object: every field is kept, but the stored bytes are not the
// client's bytes (key order, whitespace and number formatting can differ).
var OpaqueKinds = []string{
	KindServices,
	KindEndpoints,
	KindIngresses,
	KindConfigMaps,
	KindSecrets,
	KindPVCs,
	KindNetworkPolicies,
	KindResourceQuotas,
	KindRoles,
	KindRoleBindings,
}

// IsOpaqueKind reports whether kind is handled generically (no reconciler,
// no core-defined schema) rather than via one of the typed Kind* constants
// above.
func IsOpaqueKind(kind string) bool {
	for _, k := range OpaqueKinds {
		if k == kind {
			return true
		}
	}
	return false
}
