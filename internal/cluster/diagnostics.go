package cluster

import (
	"context"
)

// Diagnostic records are fixed per resource kind. The describe output is
// the one field a diagnosis cannot do without, so a failure there
// propagates; logs, events, yaml and endpoints degrade to empty strings.

// PodDiagnostics holds everything gathered for a pod diagnosis.
type PodDiagnostics struct {
	Describe string
	Logs     string
	Events   string
	YAML     string
}

// NodeDiagnostics holds everything gathered for a node diagnosis.
type NodeDiagnostics struct {
	Describe string
	Events   string
}

// DeploymentDiagnostics holds everything gathered for a deployment diagnosis.
type DeploymentDiagnostics struct {
	Describe string
	Events   string
}

// ServiceDiagnostics holds everything gathered for a service diagnosis.
type ServiceDiagnostics struct {
	Describe  string
	Endpoints string
}

// GatherPodDiagnostics collects describe, logs (last 100 lines), events
// and yaml for one pod.
func GatherPodDiagnostics(ctx context.Context, r Runner, name, namespace string) (PodDiagnostics, error) {
	describe, err := runChecked(ctx, r, "describe", "pod", name, "-n", namespace)
	if err != nil {
		return PodDiagnostics{}, err
	}
	return PodDiagnostics{
		Describe: describe,
		Logs:     runOptional(ctx, r, "logs", name, "-n", namespace, "--tail", "100"),
		Events:   runOptional(ctx, r, eventArgs(name, namespace)...),
		YAML:     runOptional(ctx, r, "get", "pod", name, "-n", namespace, "-o", "yaml"),
	}, nil
}

// GatherNodeDiagnostics collects describe and events for one node.
// Node events are searched across all namespaces.
func GatherNodeDiagnostics(ctx context.Context, r Runner, name string) (NodeDiagnostics, error) {
	describe, err := runChecked(ctx, r, "describe", "node", name)
	if err != nil {
		return NodeDiagnostics{}, err
	}
	return NodeDiagnostics{
		Describe: describe,
		Events: runOptional(ctx, r,
			"get", "events", "--all-namespaces",
			"--field-selector", "involvedObject.name="+name,
			"--sort-by", ".lastTimestamp"),
	}, nil
}

// GatherDeploymentDiagnostics collects describe and events for one deployment.
func GatherDeploymentDiagnostics(ctx context.Context, r Runner, name, namespace string) (DeploymentDiagnostics, error) {
	describe, err := runChecked(ctx, r, "describe", "deployment", name, "-n", namespace)
	if err != nil {
		return DeploymentDiagnostics{}, err
	}
	return DeploymentDiagnostics{
		Describe: describe,
		Events:   runOptional(ctx, r, eventArgs(name, namespace)...),
	}, nil
}

// GatherServiceDiagnostics collects describe and endpoints for one service.
func GatherServiceDiagnostics(ctx context.Context, r Runner, name, namespace string) (ServiceDiagnostics, error) {
	describe, err := runChecked(ctx, r, "describe", "service", name, "-n", namespace)
	if err != nil {
		return ServiceDiagnostics{}, err
	}
	return ServiceDiagnostics{
		Describe:  describe,
		Endpoints: runOptional(ctx, r, "get", "endpoints", name, "-n", namespace, "-o", "wide"),
	}, nil
}

func eventArgs(name, namespace string) []string {
	return []string{
		"get", "events", "-n", namespace,
		"--field-selector", "involvedObject.name=" + name,
		"--sort-by", ".lastTimestamp",
	}
}

func runChecked(ctx context.Context, r Runner, args ...string) (string, error) {
	res, err := r.Run(ctx, args, true)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func runOptional(ctx context.Context, r Runner, args ...string) string {
	res, err := r.Run(ctx, args, false)
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	return res.Stdout
}
