package cli

import (
	"context"
	"fmt"

	"github.com/jmball/go-m1k/config"
	"github.com/jmball/go-m1k/logger"
	"github.com/jmball/go-m1k/m1k"
)

// newClient loads the configuration, applies flag overrides and connects the
// client. The returned cleanup func stops the metrics listener, if any.
func newClient(ctx context.Context) (*m1k.Client, func(), error) {
	if flagVerbose {
		logger.SetLevel(logger.DebugLevel)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("build client config: %w", err)
	}

	client, err := m1k.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	cleanup := func() {}
	if cfg.MetricsAddr != "" {
		cleanup, err = exposeMetrics(cfg.MetricsAddr, client.Metrics())
		if err != nil {
			return nil, nil, fmt.Errorf("expose metrics on %s: %w", cfg.MetricsAddr, err)
		}
	}

	return client, cleanup, nil
}
