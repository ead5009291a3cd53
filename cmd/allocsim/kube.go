package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8stypes "k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"duoalloc/pkg/simulation"
)

// parseConfigMapRef splits "namespace/name"; a bare name lands in "default".
func parseConfigMapRef(ref string) (k8stypes.NamespacedName, error) {
	parts := strings.Split(ref, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return k8stypes.NamespacedName{Namespace: "default", Name: parts[0]}, nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return k8stypes.NamespacedName{Namespace: parts[0], Name: parts[1]}, nil
	default:
		return k8stypes.NamespacedName{}, fmt.Errorf("configmap must be namespace/name, got %q", ref)
	}
}

// buildRestConfig prefers an explicit kubeconfig, then KUBECONFIG, then ~/.kube/config, then in-cluster config.
func buildRestConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath != "" {
		return clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	}
	if env := os.Getenv("KUBECONFIG"); env != "" {
		kubeconfigPath = env
	} else if home := homedir.HomeDir(); home != "" {
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}

	if kubeconfigPath != "" {
		if _, err := os.Stat(kubeconfigPath); err == nil {
			if cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath); err == nil {
				return cfg, nil
			}
		}
	}

	return rest.InClusterConfig()
}

// loadConfigMap overlays the policy ConfigMap onto cfg.
func loadConfigMap(ctx context.Context, cfg *simulation.Config, ref, kubeconfigPath string) error {
	key, err := parseConfigMapRef(ref)
	if err != nil {
		return err
	}

	restConfig, err := buildRestConfig(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("build kube config: %w", err)
	}

	scheme := runtime.NewScheme()
	_ = corev1.AddToScheme(scheme)

	c, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return fmt.Errorf("create controller-runtime client: %w", err)
	}
	return cfg.LoadFromConfigMap(ctx, c, key)
}
