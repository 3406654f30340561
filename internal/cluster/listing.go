package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// Listing helpers decode `kubectl get ... -o json` output into typed
// Kubernetes list objects. A failed query, a non-zero exit, blank output
// or undecodable JSON are all returned as errors; the scanner treats any
// of them as "this resource type contributed zero findings".

// ListPods lists pods in a namespace.
func ListPods(ctx context.Context, r Runner, namespace string) (*corev1.PodList, error) {
	var list corev1.PodList
	if err := getJSON(ctx, r, []string{"get", "pods", "-n", namespace, "-o", "json"}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListDeployments lists deployments in a namespace.
func ListDeployments(ctx context.Context, r Runner, namespace string) (*appsv1.DeploymentList, error) {
	var list appsv1.DeploymentList
	if err := getJSON(ctx, r, []string{"get", "deployments", "-n", namespace, "-o", "json"}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListServices lists services in a namespace.
func ListServices(ctx context.Context, r Runner, namespace string) (*corev1.ServiceList, error) {
	var list corev1.ServiceList
	if err := getJSON(ctx, r, []string{"get", "services", "-n", namespace, "-o", "json"}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListEndpoints lists endpoints objects in a namespace.
func ListEndpoints(ctx context.Context, r Runner, namespace string) (*corev1.EndpointsList, error) {
	var list corev1.EndpointsList
	if err := getJSON(ctx, r, []string{"get", "endpoints", "-n", namespace, "-o", "json"}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListNodes lists cluster nodes.
func ListNodes(ctx context.Context, r Runner) (*corev1.NodeList, error) {
	var list corev1.NodeList
	if err := getJSON(ctx, r, []string{"get", "nodes", "-o", "json"}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListNamespaces lists namespaces.
func ListNamespaces(ctx context.Context, r Runner) (*corev1.NamespaceList, error) {
	var list corev1.NamespaceList
	if err := getJSON(ctx, r, []string{"get", "namespaces", "-o", "json"}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func getJSON(ctx context.Context, r Runner, args []string, out any) error {
	res, err := r.Run(ctx, args, false)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("kubectl exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	body := strings.TrimSpace(res.Stdout)
	if body == "" {
		return fmt.Errorf("empty listing from kubectl %s", strings.Join(args, " "))
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}
	return nil
}
