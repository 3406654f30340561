// Package scan classifies cluster resources as healthy or unhealthy and
// produces deduplicated findings for one scan cycle.
package scan

// Kind is the resource kind of a finding.
type Kind string

const (
	KindPod        Kind = "pod"
	KindDeployment Kind = "deployment"
	KindService    Kind = "service"
	KindNode       Kind = "node"
)

// Finding is one unhealthy resource observed during a scan cycle.
// Findings are immutable and live only for the cycle that produced them.
type Finding struct {
	Kind      Kind
	Name      string
	Namespace string // empty for cluster-scoped resources
	Status    string
	Reason    string
}

// Identity is the deduplication and diff key for a finding. Status and
// reason changes do not change identity.
type Identity struct {
	Kind      Kind
	Name      string
	Namespace string
}

// Identity returns the finding's identity triple.
func (f Finding) Identity() Identity {
	return Identity{Kind: f.Kind, Name: f.Name, Namespace: f.Namespace}
}
