package scan

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
)

// ClassifyPod reports a finding for pods not in a nominal phase.
func ClassifyPod(pod corev1.Pod, namespace string) (Finding, bool) {
	phase := string(pod.Status.Phase)
	if phase == string(corev1.PodRunning) || phase == string(corev1.PodSucceeded) {
		return Finding{}, false
	}
	if phase == "" {
		phase = "Unknown"
	}
	return Finding{
		Kind:      KindPod,
		Name:      pod.Name,
		Namespace: namespace,
		Status:    phase,
		Reason:    podFailureReason(pod),
	}, true
}

// podFailureReason walks container statuses in array order and returns
// the first waiting or terminated reason it finds, then falls back to the
// pod-level status reason.
func podFailureReason(pod corev1.Pod) string {
	for _, cs := range pod.Status.ContainerStatuses {
		if w := cs.State.Waiting; w != nil {
			if w.Reason != "" {
				return w.Reason
			}
			return "Unknown"
		}
		if t := cs.State.Terminated; t != nil {
			if t.Reason != "" {
				return t.Reason
			}
			return "Unknown"
		}
	}
	if pod.Status.Reason != "" {
		return pod.Status.Reason
	}
	return "Unknown"
}

// ClassifyDeployment reports a finding when fewer replicas are available
// than desired. A nil spec.replicas means desired is zero, which can
// never be unhealthy.
func ClassifyDeployment(d appsv1.Deployment, namespace string) (Finding, bool) {
	desired := int32(0)
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	available := d.Status.AvailableReplicas
	if available >= desired {
		return Finding{}, false
	}
	return Finding{
		Kind:      KindDeployment,
		Name:      d.Name,
		Namespace: namespace,
		Status:    fmt.Sprintf("%d/%d available", available, desired),
		Reason:    "Insufficient replicas",
	}, true
}

// ClassifyService reports a finding for selector-based services whose
// endpoints object has no ready addresses. Headless-style services
// without a selector and ExternalName services are skipped: they have no
// endpoints of their own to judge.
func ClassifyService(svc corev1.Service, endpoints map[string]corev1.Endpoints, namespace string) (Finding, bool) {
	if len(svc.Spec.Selector) == 0 {
		return Finding{}, false
	}
	if svc.Spec.Type == corev1.ServiceTypeExternalName {
		return Finding{}, false
	}

	ep := endpoints[svc.Name]
	for _, subset := range ep.Subsets {
		if len(subset.Addresses) > 0 {
			return Finding{}, false
		}
	}
	return Finding{
		Kind:      KindService,
		Name:      svc.Name,
		Namespace: namespace,
		Status:    "NoReadyEndpoints",
		Reason:    "No ready endpoints",
	}, true
}

// ClassifyNode reports a finding when no Ready condition is True.
func ClassifyNode(node corev1.Node) (Finding, bool) {
	ready := false
	reason := "Unknown"
	for _, cond := range node.Status.Conditions {
		if cond.Type != corev1.NodeReady {
			continue
		}
		ready = cond.Status == corev1.ConditionTrue
		if cond.Reason != "" {
			reason = cond.Reason
		} else {
			reason = "Unknown"
		}
	}
	if ready {
		return Finding{}, false
	}
	return Finding{
		Kind:   KindNode,
		Name:   node.Name,
		Status: "NotReady",
		Reason: reason,
	}, true
}
