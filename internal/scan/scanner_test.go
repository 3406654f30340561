package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kfix-sh/kfix/internal/cluster"
)

// fakeRunner serves canned kubectl output keyed by the joined argument
// list. Unknown queries exit 1 with an error on stderr.
type fakeRunner struct {
	responses map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, args []string, check bool) (cluster.Result, error) {
	key := strings.Join(args, " ")
	out, ok := f.responses[key]
	if !ok {
		res := cluster.Result{Stderr: "error: the server could not find the requested resource", ExitCode: 1}
		if check {
			return res, fmt.Errorf("kubectl failed: %s", res.Stderr)
		}
		return res, nil
	}
	return cluster.Result{Stdout: out}, nil
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(data)
}

func healthyCluster(t *testing.T, namespace string) map[string]string {
	t.Helper()
	return map[string]string{
		"get pods -n " + namespace + " -o json": mustJSON(t, corev1.PodList{Items: []corev1.Pod{
			{ObjectMeta: metav1.ObjectMeta{Name: "ok"}, Status: corev1.PodStatus{Phase: corev1.PodRunning}},
		}}),
		"get deployments -n " + namespace + " -o json": mustJSON(t, appsv1.DeploymentList{}),
		"get services -n " + namespace + " -o json":    mustJSON(t, corev1.ServiceList{}),
		"get endpoints -n " + namespace + " -o json":   mustJSON(t, corev1.EndpointsList{}),
		"get nodes -o json": mustJSON(t, corev1.NodeList{Items: []corev1.Node{
			{ObjectMeta: metav1.ObjectMeta{Name: "node-1"}, Status: corev1.NodeStatus{Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			}}},
		}}),
	}
}

func TestScannerNamespaceFindsBrokenPod(t *testing.T) {
	responses := healthyCluster(t, "default")
	responses["get pods -n default -o json"] = mustJSON(t, corev1.PodList{Items: []corev1.Pod{
		{ObjectMeta: metav1.ObjectMeta{Name: "ok"}, Status: corev1.PodStatus{Phase: corev1.PodRunning}},
		{
			ObjectMeta: metav1.ObjectMeta{Name: "broken"},
			Status: corev1.PodStatus{
				Phase: corev1.PodPending,
				ContainerStatuses: []corev1.ContainerStatus{{
					State: corev1.ContainerState{
						Waiting: &corev1.ContainerStateWaiting{Reason: "ImagePullBackOff"},
					},
				}},
			},
		},
	}})

	s := New(&fakeRunner{responses: responses})
	findings := s.Namespace(context.Background(), "default")

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(findings), findings)
	}
	f := findings[0]
	if f.Kind != KindPod || f.Name != "broken" || f.Reason != "ImagePullBackOff" {
		t.Errorf("unexpected finding: %+v", f)
	}
}

func TestScannerNamespaceHealthy(t *testing.T) {
	s := New(&fakeRunner{responses: healthyCluster(t, "default")})
	if findings := s.Namespace(context.Background(), "default"); len(findings) != 0 {
		t.Errorf("got %d findings for a healthy namespace: %+v", len(findings), findings)
	}
}

func TestScannerOrdering(t *testing.T) {
	responses := healthyCluster(t, "default")
	responses["get pods -n default -o json"] = mustJSON(t, corev1.PodList{Items: []corev1.Pod{
		{ObjectMeta: metav1.ObjectMeta{Name: "bad-pod"}, Status: corev1.PodStatus{Phase: corev1.PodFailed}},
	}})
	replicas := int32(2)
	responses["get deployments -n default -o json"] = mustJSON(t, appsv1.DeploymentList{Items: []appsv1.Deployment{
		{ObjectMeta: metav1.ObjectMeta{Name: "bad-deploy"}, Spec: appsv1.DeploymentSpec{Replicas: &replicas}},
	}})
	responses["get services -n default -o json"] = mustJSON(t, corev1.ServiceList{Items: []corev1.Service{
		{ObjectMeta: metav1.ObjectMeta{Name: "bad-svc"}, Spec: corev1.ServiceSpec{Selector: map[string]string{"app": "x"}}},
	}})
	responses["get nodes -o json"] = mustJSON(t, corev1.NodeList{Items: []corev1.Node{
		{ObjectMeta: metav1.ObjectMeta{Name: "bad-node"}},
	}})

	s := New(&fakeRunner{responses: responses})
	findings := s.Namespace(context.Background(), "default")

	wantKinds := []Kind{KindPod, KindDeployment, KindService, KindNode}
	if len(findings) != len(wantKinds) {
		t.Fatalf("got %d findings, want %d: %+v", len(findings), len(wantKinds), findings)
	}
	for i, k := range wantKinds {
		if findings[i].Kind != k {
			t.Errorf("findings[%d].Kind = %s, want %s", i, findings[i].Kind, k)
		}
	}
}

func TestScannerQueryFailureIsIsolated(t *testing.T) {
	// Pod listing fails; deployment findings must still surface.
	responses := healthyCluster(t, "default")
	delete(responses, "get pods -n default -o json")
	replicas := int32(1)
	responses["get deployments -n default -o json"] = mustJSON(t, appsv1.DeploymentList{Items: []appsv1.Deployment{
		{ObjectMeta: metav1.ObjectMeta{Name: "api"}, Spec: appsv1.DeploymentSpec{Replicas: &replicas}},
	}})

	s := New(&fakeRunner{responses: responses})
	findings := s.Namespace(context.Background(), "default")

	if len(findings) != 1 || findings[0].Kind != KindDeployment {
		t.Fatalf("got %+v, want the deployment finding only", findings)
	}
}

func TestScannerEndpointsFailureSkipsServicePass(t *testing.T) {
	// Without the endpoints listing the scanner cannot distinguish "no
	// ready addresses" from "no data", so no service may be reported.
	responses := healthyCluster(t, "default")
	responses["get services -n default -o json"] = mustJSON(t, corev1.ServiceList{Items: []corev1.Service{
		{ObjectMeta: metav1.ObjectMeta{Name: "web"}, Spec: corev1.ServiceSpec{Selector: map[string]string{"app": "web"}}},
	}})
	delete(responses, "get endpoints -n default -o json")

	s := New(&fakeRunner{responses: responses})
	for _, f := range s.Namespace(context.Background(), "default") {
		if f.Kind == KindService {
			t.Errorf("service finding reported without endpoints data: %+v", f)
		}
	}
}

func TestScannerAllNamespaces(t *testing.T) {
	responses := healthyCluster(t, "default")
	for k, v := range healthyCluster(t, "prod") {
		responses[k] = v
	}
	responses["get namespaces -o json"] = mustJSON(t, corev1.NamespaceList{Items: []corev1.Namespace{
		{ObjectMeta: metav1.ObjectMeta{Name: "default"}},
		{ObjectMeta: metav1.ObjectMeta{Name: "prod"}},
	}})
	responses["get pods -n prod -o json"] = mustJSON(t, corev1.PodList{Items: []corev1.Pod{
		{ObjectMeta: metav1.ObjectMeta{Name: "stuck"}, Status: corev1.PodStatus{Phase: corev1.PodPending}},
	}})

	s := New(&fakeRunner{responses: responses})
	findings := s.AllNamespaces(context.Background())

	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %+v", len(findings), findings)
	}
	if findings[0].Namespace != "prod" || findings[0].Name != "stuck" {
		t.Errorf("unexpected finding: %+v", findings[0])
	}
}

func TestScannerAllNamespacesFallsBackToDefault(t *testing.T) {
	// No namespace listing available: scan "default" only.
	responses := healthyCluster(t, "default")
	responses["get pods -n default -o json"] = mustJSON(t, corev1.PodList{Items: []corev1.Pod{
		{ObjectMeta: metav1.ObjectMeta{Name: "stuck"}, Status: corev1.PodStatus{Phase: corev1.PodPending}},
	}})

	s := New(&fakeRunner{responses: responses})
	findings := s.AllNamespaces(context.Background())

	if len(findings) != 1 || findings[0].Namespace != "default" {
		t.Fatalf("got %+v, want one finding in default", findings)
	}
}

func TestDedupe(t *testing.T) {
	findings := []Finding{
		{Kind: KindPod, Name: "a", Namespace: "default", Status: "Pending"},
		{Kind: KindPod, Name: "b", Namespace: "default"},
		{Kind: KindPod, Name: "a", Namespace: "default", Status: "Failed"},
	}
	out := dedupe(findings)
	if len(out) != 2 {
		t.Fatalf("got %d findings, want 2", len(out))
	}
	// First occurrence wins.
	if out[0].Status != "Pending" {
		t.Errorf("dedupe kept %q, want the first occurrence", out[0].Status)
	}
}
