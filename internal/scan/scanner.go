package scan

import (
	"context"
	"log/slog"

	corev1 "k8s.io/api/core/v1"

	"github.com/kfix-sh/kfix/internal/cluster"
	"github.com/kfix-sh/kfix/internal/logging"
)

// Scanner queries the cluster for unhealthy resources. Every individual
// query failure is recovered locally: one broken resource type must never
// suppress findings from the others.
type Scanner struct {
	runner cluster.Runner
	log    *slog.Logger
}

// New creates a scanner over the given cluster data source.
func New(r cluster.Runner) *Scanner {
	return &Scanner{
		runner: r,
		log:    logging.Component("scanner"),
	}
}

// Namespace scans one namespace for unhealthy pods, deployments and
// services, plus the cluster's nodes.
func (s *Scanner) Namespace(ctx context.Context, namespace string) []Finding {
	var findings []Finding
	findings = append(findings, s.scanPods(ctx, namespace)...)
	findings = append(findings, s.scanDeployments(ctx, namespace)...)
	findings = append(findings, s.scanServices(ctx, namespace)...)
	findings = append(findings, s.scanNodes(ctx)...)
	return dedupe(findings)
}

// AllNamespaces scans every namespace, falling back to just "default"
// when the namespace listing itself fails. Nodes are cluster-scoped and
// scanned exactly once.
func (s *Scanner) AllNamespaces(ctx context.Context) []Finding {
	namespaces := s.namespaceNames(ctx)

	var findings []Finding
	for _, ns := range namespaces {
		findings = append(findings, s.scanPods(ctx, ns)...)
		findings = append(findings, s.scanDeployments(ctx, ns)...)
		findings = append(findings, s.scanServices(ctx, ns)...)
	}
	findings = append(findings, s.scanNodes(ctx)...)
	return dedupe(findings)
}

func (s *Scanner) namespaceNames(ctx context.Context) []string {
	list, err := cluster.ListNamespaces(ctx, s.runner)
	if err != nil {
		s.log.Warn("namespace listing failed, scanning default only", "error", err)
		return []string{"default"}
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		if ns.Name != "" {
			names = append(names, ns.Name)
		}
	}
	if len(names) == 0 {
		return []string{"default"}
	}
	return names
}

func (s *Scanner) scanPods(ctx context.Context, namespace string) []Finding {
	list, err := cluster.ListPods(ctx, s.runner, namespace)
	if err != nil {
		s.log.Debug("pod scan skipped", "namespace", namespace, "error", err)
		return nil
	}
	var findings []Finding
	for _, pod := range list.Items {
		if f, ok := ClassifyPod(pod, namespace); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

func (s *Scanner) scanDeployments(ctx context.Context, namespace string) []Finding {
	list, err := cluster.ListDeployments(ctx, s.runner, namespace)
	if err != nil {
		s.log.Debug("deployment scan skipped", "namespace", namespace, "error", err)
		return nil
	}
	var findings []Finding
	for _, d := range list.Items {
		if f, ok := ClassifyDeployment(d, namespace); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

func (s *Scanner) scanServices(ctx context.Context, namespace string) []Finding {
	services, err := cluster.ListServices(ctx, s.runner, namespace)
	if err != nil {
		s.log.Debug("service scan skipped", "namespace", namespace, "error", err)
		return nil
	}

	// A service is judged against its endpoints; without the endpoints
	// listing the scan cannot tell "no ready addresses" from "no data",
	// so the whole service pass contributes zero findings.
	epList, err := cluster.ListEndpoints(ctx, s.runner, namespace)
	if err != nil {
		s.log.Debug("endpoints listing failed, service scan skipped", "namespace", namespace, "error", err)
		return nil
	}
	endpoints := make(map[string]corev1.Endpoints, len(epList.Items))
	for _, ep := range epList.Items {
		if ep.Name != "" {
			endpoints[ep.Name] = ep
		}
	}

	var findings []Finding
	for _, svc := range services.Items {
		if f, ok := ClassifyService(svc, endpoints, namespace); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

func (s *Scanner) scanNodes(ctx context.Context) []Finding {
	list, err := cluster.ListNodes(ctx, s.runner)
	if err != nil {
		s.log.Debug("node scan skipped", "error", err)
		return nil
	}
	var findings []Finding
	for _, node := range list.Items {
		if f, ok := ClassifyNode(node); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// dedupe keeps the first finding per identity, preserving order.
func dedupe(findings []Finding) []Finding {
	seen := make(map[Identity]bool, len(findings))
	out := findings[:0]
	for _, f := range findings {
		id := f.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, f)
	}
	return out
}
