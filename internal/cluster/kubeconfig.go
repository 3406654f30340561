package cluster

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
)

// ValidateContext checks a --context value against the kubeconfig before
// any kubectl call happens, so a typo fails fast with the valid names
// instead of surfacing as an opaque query error mid-scan. An empty name
// means the current context and is always accepted.
func ValidateContext(name string) error {
	if name == "" {
		return nil
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := rules.Load()
	if err != nil {
		return fmt.Errorf("load kubeconfig: %w", err)
	}

	if _, ok := cfg.Contexts[name]; ok {
		return nil
	}

	names := make([]string, 0, len(cfg.Contexts))
	for n := range cfg.Contexts {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Errorf("context %q not found in kubeconfig (available: %s)", name, strings.Join(names, ", "))
}

// CurrentContext returns the kubeconfig's current context name, or empty
// if the kubeconfig cannot be read.
func CurrentContext() string {
	cfg, err := clientcmd.NewDefaultClientConfigLoadingRules().Load()
	if err != nil {
		return ""
	}
	return cfg.CurrentContext
}
