// kfix — AI-powered Kubernetes troubleshooter
//
// Scans a cluster for unhealthy pods, deployments, services, and nodes,
// gathers diagnostics with kubectl, asks an AI model for a diagnosis,
// and can run suggested remediation commands under a tiered safety
// policy.
//
// Usage:
//
//	kfix scan -n default               # one-off health scan
//	kfix watch -A --interval 30        # continuous scan with diffing
//	kfix diagnose pod my-pod --stream  # AI diagnosis of one resource
//	kfix config set api-key sk-...     # store the API key
package main

import "github.com/kfix-sh/kfix/cmd"

var version = "dev"

func main() {
	cmd.Execute(version)
}
