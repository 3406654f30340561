package ai

import (
	"context"
	"fmt"

	"github.com/kfix-sh/kfix/internal/cluster"
)

// Diagnostician turns gathered diagnostics into prompts and asks the
// model for a diagnosis.
type Diagnostician struct {
	client *Client
}

// NewDiagnostician creates a diagnostician over an API client.
func NewDiagnostician(client *Client) *Diagnostician {
	return &Diagnostician{client: client}
}

// Client exposes the underlying API client (for token usage reporting).
func (d *Diagnostician) Client() *Client { return d.client }

// DiagnosePod diagnoses one pod.
func (d *Diagnostician) DiagnosePod(ctx context.Context, name string, diag cluster.PodDiagnostics) (string, error) {
	return d.client.Complete(ctx, podPrompt(name, diag))
}

// DiagnosePodStream is the streaming variant of DiagnosePod.
func (d *Diagnostician) DiagnosePodStream(ctx context.Context, name string, diag cluster.PodDiagnostics) (*Stream, error) {
	return d.client.CompleteStream(ctx, podPrompt(name, diag))
}

// DiagnoseNode diagnoses one node.
func (d *Diagnostician) DiagnoseNode(ctx context.Context, name string, diag cluster.NodeDiagnostics) (string, error) {
	return d.client.Complete(ctx, nodePrompt(name, diag))
}

// DiagnoseNodeStream is the streaming variant of DiagnoseNode.
func (d *Diagnostician) DiagnoseNodeStream(ctx context.Context, name string, diag cluster.NodeDiagnostics) (*Stream, error) {
	return d.client.CompleteStream(ctx, nodePrompt(name, diag))
}

// DiagnoseDeployment diagnoses one deployment.
func (d *Diagnostician) DiagnoseDeployment(ctx context.Context, name string, diag cluster.DeploymentDiagnostics) (string, error) {
	return d.client.Complete(ctx, deploymentPrompt(name, diag))
}

// DiagnoseDeploymentStream is the streaming variant of DiagnoseDeployment.
func (d *Diagnostician) DiagnoseDeploymentStream(ctx context.Context, name string, diag cluster.DeploymentDiagnostics) (*Stream, error) {
	return d.client.CompleteStream(ctx, deploymentPrompt(name, diag))
}

// DiagnoseService diagnoses one service.
func (d *Diagnostician) DiagnoseService(ctx context.Context, name string, diag cluster.ServiceDiagnostics) (string, error) {
	return d.client.Complete(ctx, servicePrompt(name, diag))
}

// DiagnoseServiceStream is the streaming variant of DiagnoseService.
func (d *Diagnostician) DiagnoseServiceStream(ctx context.Context, name string, diag cluster.ServiceDiagnostics) (*Stream, error) {
	return d.client.CompleteStream(ctx, servicePrompt(name, diag))
}

// ExplainError explains a Kubernetes error message in plain English.
func (d *Diagnostician) ExplainError(ctx context.Context, errorText string) (string, error) {
	return d.client.Complete(ctx, explainPrompt(errorText))
}

const answerFormat = `Provide:
1. A clear diagnosis of the issue (2-3 sentences)
2. The root cause
3. A specific fix with copy-paste ready kubectl commands
4. A link to relevant Kubernetes documentation

Keep your response under 300 words. Be specific and actionable.`

func podPrompt(name string, diag cluster.PodDiagnostics) string {
	return fmt.Sprintf(`You are a Kubernetes expert. Analyze the following diagnostics for pod '%s' and provide a concise diagnosis.

POD DESCRIPTION:
%s

POD LOGS (last 100 lines):
%s

EVENTS:
%s

%s`, name, orNA(diag.Describe), orNA(diag.Logs), orNA(diag.Events), answerFormat)
}

func nodePrompt(name string, diag cluster.NodeDiagnostics) string {
	return fmt.Sprintf(`You are a Kubernetes expert. Analyze the following diagnostics for node '%s' and provide a concise diagnosis.

NODE DESCRIPTION:
%s

EVENTS:
%s

%s`, name, orNA(diag.Describe), orNA(diag.Events), answerFormat)
}

func deploymentPrompt(name string, diag cluster.DeploymentDiagnostics) string {
	return fmt.Sprintf(`You are a Kubernetes expert. Analyze the following diagnostics for deployment '%s' and provide a concise diagnosis.

DEPLOYMENT DESCRIPTION:
%s

EVENTS:
%s

%s`, name, orNA(diag.Describe), orNA(diag.Events), answerFormat)
}

func servicePrompt(name string, diag cluster.ServiceDiagnostics) string {
	return fmt.Sprintf(`You are a Kubernetes expert. Analyze the following diagnostics for service '%s' and provide a concise diagnosis.

SERVICE DESCRIPTION:
%s

ENDPOINTS:
%s

%s`, name, orNA(diag.Describe), orNA(diag.Endpoints), answerFormat)
}

func explainPrompt(errorText string) string {
	return fmt.Sprintf(`You are a Kubernetes expert. Explain this Kubernetes error in plain English:

"%s"

Provide:
1. What this error means in simple terms
2. Common causes
3. How to fix it (with specific kubectl commands if applicable)
4. A link to relevant Kubernetes documentation

Keep your response under 300 words. Be clear and actionable.`, errorText)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
