// Command lwmqtt-broker runs a standalone broker endpoint, mirroring
// original_source's lw-mqtt-broker example program. It is a thin
// composition root: every real decision (admission policy, retained
// storage backend, metrics) lives in the broker/config/hook/store
// packages this just wires together.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/axmq/lwmqtt/broker"
	"github.com/axmq/lwmqtt/config"
	"github.com/axmq/lwmqtt/hook"
	"github.com/axmq/lwmqtt/pkg/logger"
	"github.com/axmq/lwmqtt/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "lwmqtt-broker",
		Usage:   "run a lightweight MQTT 3.1.1 broker",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Aliases: []string{"h"}, Value: "0.0.0.0", Usage: "bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 1883, Usage: "bind port"},
			&cli.StringFlag{Name: "config", Usage: "path to a broker YAML config file"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
			&cli.BoolFlag{Name: "allow-anonymous", Usage: "admit CONNECTs with no username/password"},
			&cli.StringFlag{Name: "retained-store", Value: "memory", Usage: "retained-message backend: memory, pebble, redis"},
			&cli.StringFlag{Name: "pebble-dir", Usage: "directory for the pebble retained-message store"},
			&cli.StringFlag{Name: "redis-addr", Usage: "address of the redis retained-message store"},
			&cli.BoolFlag{Name: "metrics", Usage: "serve Prometheus metrics"},
			&cli.StringFlag{Name: "metrics-addr", Value: ":9883", Usage: "address to serve /metrics on"},
			&cli.IntFlag{Name: "rate-limit", Value: 0, Usage: "max CONNECTs per remote address per minute (0 disables)"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lwmqtt-broker:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.DefaultBrokerConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.LoadBrokerConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ListenAddr = fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	if cmd.Bool("verbose") {
		cfg.LogLevel = logger.LevelAll
	}
	if v := cmd.String("retained-store"); v != "" {
		cfg.RetainedStore = config.StoreBackend(v)
	}
	if v := cmd.String("pebble-dir"); v != "" {
		cfg.PebbleDir = v
	}
	if v := cmd.String("redis-addr"); v != "" {
		cfg.RedisAddr = v
	}
	cfg.MetricsEnabled = cmd.Bool("metrics")

	log := logger.New(cfg.LogLevel, os.Stdout)

	retained, err := openRetainedStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open retained store: %w", err)
	}
	defer retained.Close()

	hooks := hook.NewChain(time.Duration(cfg.HookTimeoutMs) * time.Millisecond)
	hooks.Add(hook.NewAuthHook(hook.NewMemoryCredentialStore(), cmd.Bool("allow-anonymous")))
	if n := cmd.Int("rate-limit"); n > 0 {
		hooks.Add(hook.NewRateLimitHook(int(n), time.Minute))
	}

	var metrics *broker.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		metrics = broker.NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go http.ListenAndServe(cmd.String("metrics-addr"), mux)
	}

	b := broker.New(cfg, hooks, retained, log, metrics)

	var startErr error
	if cfg.TLS != nil {
		tlsCfg, terr := cfg.TLS.Build()
		if terr != nil {
			return terr
		}
		startErr = b.StartTLS(cfg.ListenAddr, tlsCfg)
	} else {
		startErr = b.Start(cfg.ListenAddr)
	}
	if startErr != nil {
		return startErr
	}
	log.Info("broker listening", "addr", b.Addr().String())

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return b.Stop()
		case <-ticker.C:
			if err := b.Task(); err != nil {
				return err
			}
		}
	}
}

func openRetainedStore(ctx context.Context, cfg *config.BrokerConfig) (store.Store, error) {
	switch cfg.RetainedStore {
	case config.StorePebble:
		return store.NewPebbleStore(store.PebbleStoreConfig{Path: cfg.PebbleDir})
	case config.StoreRedis:
		return store.NewRedisStore(ctx, store.RedisStoreConfig{Addr: cfg.RedisAddr})
	default:
		return store.NewMemoryStore(), nil
	}
}
