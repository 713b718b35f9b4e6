package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"kvflow/api"
	"kvflow/client"
	"kvflow/flow"
	"kvflow/kvwrapper"
	"kvflow/logging"
)

const (
	workloadTypeFlow       = "flow"
	exitCodeStartupFailure = 2
)

var (
	configFilePath     string
	workloadType       string
	storeType          string
	pdAddresses        string
	numThreads         int
	durationSeconds    int
	keyPrefix          string
	timeoutMs          int
	reportPath         string
	logFile            string
	useUniSocketClient bool
	exitCode           int
	lp                 *logging.LogProvider
)

// flagKeyPaths maps command line flags onto the config key paths they override.
var flagKeyPaths = map[string]string{
	"threads":              "flow.numWorkers",
	"duration":             "flow.durationSeconds",
	"prefix":               "flow.keyPrefix",
	"report":               "flow.reportPath",
	"store":                "store.type",
	"pd":                   "store.tikv.pdAddresses",
	"timeout":              "store.requestTimeoutMs",
	"use-unisocket-client": "store.hazelcast.useUniSocketClient",
}

func init() {
	lp = logging.GetLogProviderInstance(client.ID())
}

func main() {

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeStartupFailure)
	}

	os.Exit(exitCode)

}

func newRootCmd() *cobra.Command {

	rootCmd := &cobra.Command{
		Use:           "kvflow",
		Short:         "Randomized read/write load generator for distributed key-value stores",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if workloadType != workloadTypeFlow {
				return errors.Errorf("unsupported workload type '%s', only '%s' is available", workloadType, workloadTypeFlow)
			}
			if logFile != "" {
				logging.UseLogFile(logFile)
			}

			overrides, err := collectOverrides(cmd)
			if err != nil {
				return errors.Trace(err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := run(ctx, overrides)
			if err != nil {
				return errors.Trace(err)
			}
			exitCode = code
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&configFilePath, client.ArgConfigFilePath, "defaultConfig.yaml", "Path to a yaml file overriding the default configuration")
	flags.StringVar(&workloadType, "type", workloadTypeFlow, "Workload type")
	flags.StringVar(&storeType, "store", "tikv", "Store to run against, one of 'tikv' or 'hazelcast'")
	flags.StringVar(&pdAddresses, "pd", "127.0.0.1:2379", "Comma-separated list of pd addresses")
	flags.IntVar(&numThreads, "threads", 1, "Number of concurrent workers")
	flags.IntVar(&durationSeconds, "duration", 3600, "Duration of the run in seconds")
	flags.StringVar(&keyPrefix, "prefix", "flow_", "Prefix of every generated key")
	flags.IntVar(&timeoutMs, "timeout", 400, "Timeout of a single store request in milliseconds")
	flags.StringVar(&reportPath, "report", "report.json", "Path of the report written on fatal failure, '-' for stdout")
	flags.StringVar(&logFile, "log", "", "Write logs to this file instead of stdout")
	flags.BoolVar(&useUniSocketClient, "use-unisocket-client", false, "Make the hazelcast client talk to a single member only")

	return rootCmd

}

// collectOverrides returns the config values for all flags the user explicitly set.
func collectOverrides(cmd *cobra.Command) (map[string]any, error) {

	overrides := map[string]any{}

	for flag, keyPath := range flagKeyPaths {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		switch flag {
		case "threads":
			overrides[keyPath] = numThreads
		case "duration":
			overrides[keyPath] = durationSeconds
		case "prefix":
			overrides[keyPath] = keyPrefix
		case "report":
			overrides[keyPath] = reportPath
		case "store":
			overrides[keyPath] = storeType
		case "pd":
			overrides[keyPath] = splitAddresses(pdAddresses)
		case "timeout":
			overrides[keyPath] = timeoutMs
		case "use-unisocket-client":
			overrides[keyPath] = useUniSocketClient
		default:
			return nil, errors.Errorf("no override handling for flag '%s'", flag)
		}
	}

	return overrides, nil

}

func splitAddresses(s string) []string {

	var result []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			result = append(result, a)
		}
	}

	return result

}

func run(ctx context.Context, overrides map[string]any) (int, error) {

	if err := client.ParseConfigs(configFilePath, overrides); err != nil {
		return 0, errors.Annotate(err, "parse configuration")
	}

	a := client.DefaultConfigPropertyAssigner{}

	workloadConfig, err := flow.PopulateWorkloadConfig(a)
	if err != nil {
		return 0, errors.Annotate(err, "populate workload config")
	}

	storeConfig, err := kvwrapper.PopulateConfig(a)
	if err != nil {
		return 0, errors.Annotate(err, "populate store config")
	}

	apiConfig, err := api.PopulateConfig(a)
	if err != nil {
		return 0, errors.Annotate(err, "populate api config")
	}

	if apiConfig.Enabled {
		server := api.Serve(apiConfig.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				lp.LogApiEvent(fmt.Sprintf("unable to shut down api server: %v", err), log.WarnLevel)
			}
		}()
	}

	s, err := kvwrapper.NewStore(ctx, storeConfig)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			lp.LogStoreEvent(fmt.Sprintf("unable to close store client: %v", err), log.WarnLevel)
		}
	}()

	api.RegisterStatefulActor(api.StoreClients, string(storeConfig.Type), func() map[string]any {
		return map[string]any{
			"requestTimeoutMs": storeConfig.RequestTimeout.Milliseconds(),
		}
	})

	return flow.NewController(workloadConfig, s).Run(ctx), nil

}
