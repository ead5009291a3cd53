package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

type param struct {
	name      string
	shorthand string
	value     interface{}
	usage     string
}

const (
	flagMinutes      = "minutes"
	flagSeed         = "seed"
	flagCSV          = "csv"
	flagPolicy       = "policy"
	flagConfigMap    = "configmap"
	flagKubeconfig   = "kubeconfig"
	flagTickInterval = "tick-interval"
	flagMetricsAddr  = "metrics-addr"
	flagSummary      = "summary"
)

var (
	Version string
	Build   string

	runParams = []param{
		{name: flagMinutes, shorthand: "m", value: 120, usage: "simulation length in minutes"},
		{name: flagSeed, shorthand: "", value: 42, usage: "seed for the demand generator"},
		{name: flagCSV, shorthand: "o", value: "sim_output.csv", usage: "output CSV path, empty to disable"},
		{name: flagPolicy, shorthand: "p", value: "", usage: "YAML policy file"},
		{name: flagConfigMap, shorthand: "", value: "", usage: "policy ConfigMap as namespace/name"},
		{name: flagKubeconfig, shorthand: "", value: "", usage: "kubeconfig used with --configmap (default in-cluster)"},
		{name: flagTickInterval, shorthand: "", value: "0s", usage: "wall-clock time per simulated minute"},
		{name: flagMetricsAddr, shorthand: "", value: "", usage: "serve Prometheus metrics on this address while running"},
		{name: flagSummary, shorthand: "", value: true, usage: "print a summary table when done"},
	}
)

var rootCmd = &cobra.Command{
	Use:   "allocsim",
	Short: "allocsim - two-tenant floor/weight allocation simulator",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print allocsim version and build sha",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("version: %s build: %s\n", Version, Build)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)

	setParams(runParams, runCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("DUOALLOC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func setParams(params []param, command *cobra.Command) {
	for _, param := range params {
		switch v := param.value.(type) {
		case int:
			command.PersistentFlags().IntP(param.name, param.shorthand, v, param.usage)
		case string:
			command.PersistentFlags().StringP(param.name, param.shorthand, v, param.usage)
		case bool:
			command.PersistentFlags().BoolP(param.name, param.shorthand, v, param.usage)
		}
		if err := viper.BindPFlag(param.name, command.PersistentFlags().Lookup(param.name)); err != nil {
			panic(err)
		}
	}
}

func main() {
	defer klog.Flush()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
