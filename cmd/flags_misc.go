package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"

	"github.com/pareto-space/pareto-bridge/logs"
	"github.com/pareto-space/pareto-bridge/nodebuilder"
)

var log = logging.Logger("cmd")

var (
	LogLevelFlag        = "log.level"
	LogLevelModuleFlag  = "log.level.module"
	pprofFlag           = "pprof"
	pprofAddrFlag       = "pprof.addr"
	tracingFlag         = "tracing"
	tracingEndpointFlag = "tracing.endpoint"
	tracingTLSFlag      = "tracing.tls"
	metricsFlag         = "metrics"
	metricsEndpointFlag = "metrics.endpoint"
	metricsTLSFlag      = "metrics.tls"
)

// MiscFlags gives a set of hardcoded miscellaneous flags.
func MiscFlags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		LogLevelFlag,
		"INFO",
		`DEBUG, INFO, WARN, ERROR, DPANIC, PANIC, FATAL
and their lower-case forms`,
	)

	flags.StringSlice(
		LogLevelModuleFlag,
		nil,
		"<module>:<level>, e.g. relay/dispatch:debug",
	)

	flags.Bool(
		pprofFlag,
		false,
		"Enables standard profiling handler (pprof)",
	)

	flags.String(
		pprofAddrFlag,
		"127.0.0.1:6000",
		"Address the profiling handler listens on. Depends on '--pprof'",
	)

	flags.Bool(
		tracingFlag,
		false,
		"Enables OTLP tracing with HTTP exporter",
	)

	flags.String(
		tracingEndpointFlag,
		"localhost:4318",
		"Sets HTTP endpoint for OTLP traces to be exported to. Depends on '--tracing'",
	)

	flags.Bool(
		tracingTLSFlag,
		true,
		"Enable TLS connection to OTLP tracing backend",
	)

	flags.Bool(
		metricsFlag,
		false,
		"Enables OTLP metrics with HTTP exporter",
	)

	flags.String(
		metricsEndpointFlag,
		"localhost:4318",
		"Sets HTTP endpoint for OTLP metrics to be exported to. Depends on '--metrics'",
	)

	flags.Bool(
		metricsTLSFlag,
		true,
		"Enable TLS connection to OTLP metric backend",
	)

	return flags
}

// ParseMiscFlags parses miscellaneous flags from the given cmd and applies values to Env.
func ParseMiscFlags(ctx context.Context, cmd *cobra.Command) (context.Context, error) {
	logLevel := cmd.Flag(LogLevelFlag).Value.String()
	if logLevel != "" {
		level, err := logging.LevelFromString(logLevel)
		if err != nil {
			return ctx, fmt.Errorf("cmd: while parsing '%s': %w", LogLevelFlag, err)
		}

		logs.SetAllLoggers(level)
	}

	logModules, err := cmd.Flags().GetStringSlice(LogLevelModuleFlag)
	if err != nil {
		return ctx, err
	}
	for _, ll := range logModules {
		params := strings.Split(ll, ":")
		if len(params) != 2 {
			return ctx, fmt.Errorf("cmd: %s arg must be in form <module>:<level>, e.g. relay/dispatch:debug",
				LogLevelModuleFlag)
		}

		err := logging.SetLogLevel(params[0], params[1])
		if err != nil {
			return ctx, err
		}
	}

	ok, err := cmd.Flags().GetBool(pprofFlag)
	if err != nil {
		return ctx, err
	}

	if ok {
		addr := cmd.Flag(pprofAddrFlag).Value.String()
		go func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/debug/pprof/", pprof.Index)
			mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
			mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
			mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
			mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
			srv := http.Server{
				Addr:         addr,
				Handler:      mux,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			log.Infow("starting pprof server", "addr", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Errorw("pprof server stopped", "err", err)
			}
		}()
	}

	ok, err = cmd.Flags().GetBool(tracingFlag)
	if err != nil {
		return ctx, err
	}

	if ok {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
			otlptracehttp.WithEndpoint(cmd.Flag(tracingEndpointFlag).Value.String()),
		}
		if tls, err := cmd.Flags().GetBool(tracingTLSFlag); err != nil {
			return ctx, err
		} else if !tls {
			opts = append(opts, otlptracehttp.WithInsecure())
		}

		ctx = WithNodeOptions(ctx, nodebuilder.WithTracing(opts))
	}

	ok, err = cmd.Flags().GetBool(metricsFlag)
	if err != nil {
		return ctx, err
	}

	if ok {
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression),
			otlpmetrichttp.WithEndpoint(cmd.Flag(metricsEndpointFlag).Value.String()),
		}
		if tls, err := cmd.Flags().GetBool(metricsTLSFlag); err != nil {
			return ctx, err
		} else if !tls {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		ctx = WithNodeOptions(ctx, nodebuilder.WithMetrics(opts))
	}

	return ctx, nil
}
