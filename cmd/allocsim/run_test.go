package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"duoalloc/pkg/simulation"
)

// freshViper clears flag/env state and restores it after the test.
func freshViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	initConfig()
	t.Cleanup(viper.Reset)
}

// fakeConfigMapLoader serves the ConfigMap from a fake client for the duration of the test.
func fakeConfigMapLoader(t *testing.T, data map[string]string) {
	t.Helper()
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "policy", Namespace: "duoalloc-system"},
		Data:       data,
	}
	c := fake.NewClientBuilder().WithObjects(cm).Build()

	previous := configMapLoader
	configMapLoader = func(ctx context.Context, cfg *simulation.Config, ref, _ string) error {
		key, err := parseConfigMapRef(ref)
		if err != nil {
			return err
		}
		return cfg.LoadFromConfigMap(ctx, c, key)
	}
	t.Cleanup(func() { configMapLoader = previous })
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuildConfig_Defaults(t *testing.T) {
	freshViper(t)

	cfg, err := buildConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, simulation.DefaultConfig(), cfg)
}

func TestBuildConfig_LayerPrecedence(t *testing.T) {
	freshViper(t)

	policy := writePolicy(t, `
minutes: 30
seed: 5
capacity:
  cpu: "48"
  memory: "96"
floors:
  cpuA: "8"
csvPath: file.csv
priorityWindow:
  start: 5
`)
	fakeConfigMapLoader(t, map[string]string{
		"totalMemory": "80",
		"cpuFloorA":   "9",
		"seed":        "6",
		"csvPath":     "cm.csv",
	})
	t.Setenv("DUOALLOC_SEED", "7")
	t.Setenv("DUOALLOC_CSV", "env.csv")

	viper.Set(flagPolicy, policy)
	viper.Set(flagConfigMap, "duoalloc-system/policy")
	viper.Set(flagMinutes, 15)
	viper.Set(flagCSV, "flag.csv")

	cfg, err := buildConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Minutes, "flag beats policy file")
	assert.Equal(t, int64(7), cfg.Seed, "env beats ConfigMap and policy file")
	assert.Equal(t, int64(48), cfg.Capacity.CPU, "policy file beats defaults")
	assert.Equal(t, int64(80), cfg.Capacity.Memory, "ConfigMap beats policy file")
	assert.Equal(t, int64(9), cfg.Floors.CPUA, "ConfigMap beats policy file")
	assert.Equal(t, int64(5), cfg.Floors.CPUB, "untouched fields keep defaults")
	assert.Equal(t, 5, cfg.PriorityStart)
	assert.Equal(t, "flag.csv", cfg.CSVPath, "flag beats env")
}

func TestBuildConfig_EnvWithoutFlag(t *testing.T) {
	freshViper(t)
	t.Setenv("DUOALLOC_CSV", "env.csv")
	t.Setenv("DUOALLOC_TICK_INTERVAL", "1s")

	cfg, err := buildConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env.csv", cfg.CSVPath)
	assert.Equal(t, "1s", cfg.TickInterval.String())
}

func TestBuildConfig_Errors(t *testing.T) {
	t.Run("invalid after layering", func(t *testing.T) {
		freshViper(t)
		viper.Set(flagMinutes, 0)

		_, err := buildConfig(context.Background())
		assert.Error(t, err)
	})

	t.Run("ConfigMap failure", func(t *testing.T) {
		freshViper(t)
		boom := errors.New("unreachable apiserver")
		previous := configMapLoader
		configMapLoader = func(context.Context, *simulation.Config, string, string) error { return boom }
		t.Cleanup(func() { configMapLoader = previous })

		viper.Set(flagConfigMap, "duoalloc-system/policy")
		_, err := buildConfig(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing policy file", func(t *testing.T) {
		freshViper(t)
		viper.Set(flagPolicy, filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := buildConfig(context.Background())
		assert.Error(t, err)
	})
}
