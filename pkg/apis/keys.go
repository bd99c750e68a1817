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

// Package apis defines the entities persisted by the control plane and the
// registry key layout under which they live.
package apis

import "fmt"

// Registry key prefixes. Namespaced kinds are keyed
// /registry/<kind>/<namespace>/<id>; cluster-scoped kinds are keyed
// /registry/<kind>/<id>.
const (
	KindNamespaces      = "namespaces"
	KindNodes           = "nodes"
	KindPods            = "pods"
	KindServices        = "services"
	KindEndpoints       = "endpoints"
	KindIngresses       = "ingresses"
	KindDeployments     = "deployments"
	KindReplicaSets     = "replicasets"
	KindDaemonSets      = "daemonsets"
	KindJobs            = "jobs"
	KindCronJobs        = "cronjobs"
	KindHPAs            = "hpa"
	KindConfigMaps      = "configmaps"
	KindSecrets         = "secrets"
	KindPVCs            = "pvcs"
	KindNetworkPolicies = "networkpolicies"
	KindResourceQuotas  = "resourcequotas"
	KindRoles           = "rbac/roles"
	KindRoleBindings    = "rbac/rolebindings"
	KindImages          = "images"
	KindLeases          = "leases"
)

// ControllerLeaderLeaseKey is the single cluster-wide leadership lease.
const ControllerLeaderLeaseKey = "/registry/leases/controller-leader"

// NamespacedKey builds the registry key for a namespaced resource.
func NamespacedKey(kind, namespace, id string) string {
	return fmt.Sprintf("/registry/%s/%s/%s", kind, namespace, id)
}

// NamespacedPrefix builds the prefix that lists every resource of kind in namespace.
func NamespacedPrefix(kind, namespace string) string {
	return fmt.Sprintf("/registry/%s/%s/", kind, namespace)
}

// KindPrefix builds the prefix that lists every resource of kind across all namespaces.
func KindPrefix(kind string) string {
	return fmt.Sprintf("/registry/%s/", kind)
}

// ClusterKey builds the registry key for a cluster-scoped resource.
func ClusterKey(kind, id string) string {
	return fmt.Sprintf("/registry/%s/%s", kind, id)
}

// NamespacePrefix returns the prefix listing every Namespace.
func NamespacePrefix() string {
	return KindPrefix(KindNamespaces)
}
