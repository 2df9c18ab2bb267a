// accountsd reads a stream of account transactions from a single input
// file and prints the resulting per-client balances.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/txstream/accounts/engine"
	"github.com/txstream/accounts/internal/config"
	"github.com/txstream/accounts/internal/xlog"
	"github.com/txstream/accounts/printer"
	"github.com/txstream/accounts/reader"
)

const clientIdentifier = "accountsd"

var app = &cli.App{
	Name:      clientIdentifier,
	Usage:     "process a transaction stream into per-client account balances",
	ArgsUsage: "<input-file>",
	Version:   "1.0.0",
}

var (
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "enable debug-level logging",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)",
	}
	shardsFlag = &cli.IntFlag{
		Name:  "shards",
		Usage: "number of account-manager shards (overrides -config)",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "optional config file providing shards/window/metrics-addr defaults",
	}
)

var log xlog.Logger

func init() {
	app.Flags = []cli.Flag{verboseFlag, metricsAddrFlag, shardsFlag, configFlag}
	app.Before = func(c *cli.Context) error {
		level := "info"
		if c.Bool(verboseFlag.Name) {
			level = "debug"
		}
		log = xlog.New(level)
		return nil
	}
	app.Action = run
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	defer log.Sync()

	if c.NArg() != 1 {
		return cli.Exit("expected exactly one input file argument", 1)
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("opening input file: %s", err), 1)
	}
	defer f.Close()

	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, c.String(configFlag.Name))
	if err != nil {
		return cli.Exit(fmt.Sprintf("loading config: %s", err), 1)
	}
	opts := config.Load(v)

	shards := opts.ShardCount
	if c.IsSet(shardsFlag.Name) {
		shards = c.Int(shardsFlag.Name)
	}
	metricsAddr := opts.MetricsAddr
	if c.IsSet(metricsAddrFlag.Name) {
		metricsAddr = c.String(metricsAddrFlag.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	e := engine.New(ctx, engine.Config{
		ShardCount: shards,
		Window:     opts.Window,
		Log:        log,
		Registerer: reg,
	})

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, reg)
	}

	if err := reader.New(log).Run(ctx, f, e); err != nil {
		return cli.Exit(fmt.Sprintf("processing input: %s", err), 1)
	}

	snapshots, err := e.Snapshot(context.Background())
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading final state: %s", err), 1)
	}

	if err := printer.Write(os.Stdout, snapshots); err != nil {
		return cli.Exit(fmt.Sprintf("writing output: %s", err), 1)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", "err", err)
	}
}
