// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/txlink/pkg/ux"
	"github.com/AleutianAI/txlink/services/txlink"
	"github.com/AleutianAI/txlink/services/txlink/config"
	"github.com/AleutianAI/txlink/services/txlink/storage/badger"
	"github.com/AleutianAI/txlink/services/txlink/telemetry"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the candidate HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			return runServe(cmd.Context(), c.cfg, c.logger.Slog(), cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable gin debug mode")
	return cmd
}

// runServe wires telemetry, the result cache and the router, then serves
// until ctx is canceled.
func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger, cmd *cobra.Command) error {
	providers, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	store, closeStore, err := openResultStore(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	computer, err := cfg.ComputerConfig()
	if err != nil {
		return err
	}
	svc, err := txlink.NewService(txlink.ServiceConfig{
		MaxValues:      cfg.Server.MaxValues,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Computer:       computer,
	}, store)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	metrics, err := telemetry.NewMetrics(otel.Meter("txlink.http"))
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}
	router := txlink.NewRouter(txlink.NewHandlers(svc, metrics), metrics, providers.MetricsHandler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p := ux.NewPrinter(cmd.OutOrStdout(), ux.DetectMode(cmd.OutOrStdout()))
	p.Title("txlink " + txlink.Version)
	p.KeyValue("Listening", cfg.Server.Addr)
	p.KeyValue("Strategy", string(computer.Strategy))
	p.KeyValue("Boundary", computer.Boundary.String())
	p.KeyValue("Max values", fmt.Sprint(cfg.Server.MaxValues))
	p.KeyValue("Cache", cacheDescription(cfg.Cache))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting txlink server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down txlink server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openResultStore opens the configured cache. The returned close func is
// always safe to call.
func openResultStore(cfg config.CacheConfig, logger *slog.Logger) (*badger.ResultStore, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	bcfg := badger.DefaultConfig()
	bcfg.Logger = logger
	if cfg.InMemory {
		bcfg.InMemory = true
		bcfg.GCInterval = 0
	} else {
		bcfg.Path = cfg.Path
	}

	db, err := badger.Open(bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open result cache: %w", err)
	}
	store, err := badger.NewResultStore(db, cfg.TTL)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing result cache failed", slog.String("error", err.Error()))
		}
	}, nil
}

func cacheDescription(cfg config.CacheConfig) string {
	switch {
	case !cfg.Enabled:
		return "disabled"
	case cfg.InMemory:
		return fmt.Sprintf("in-memory, ttl %s", cfg.TTL)
	default:
		return fmt.Sprintf("%s, ttl %s", cfg.Path, cfg.TTL)
	}
}
