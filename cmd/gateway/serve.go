// cmd/gateway/serve.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-gateway/internal/bus"
	"github.com/tamzrod/modbus-gateway/internal/catalog"
	"github.com/tamzrod/modbus-gateway/internal/config"
	"github.com/tamzrod/modbus-gateway/internal/gateway"
	"github.com/tamzrod/modbus-gateway/internal/logging"
	"github.com/tamzrod/modbus-gateway/internal/metrics"
	"github.com/tamzrod/modbus-gateway/internal/status"
)

func newServeCmd() *cobra.Command {
	var interfaces []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(interfaces)
		},
	}
	cmd.Flags().StringArrayVar(&interfaces, "interface", nil, "extra interface file as name=path (repeatable)")
	return cmd
}

func runServe(extra []string) error {
	// --------------------
	// Load config
	// --------------------
	cfg, err := loadConfig(extra)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	// --------------------
	// Build catalog
	// --------------------
	cat, err := catalog.Build(cfg)
	if err != nil {
		return err
	}
	for _, name := range cat.Names() {
		iface, _ := cat.Interface(name)
		log.Info().Str("interface", name).Msg(iface.String())
	}
	for _, c := range cat.Collisions() {
		log.Warn().Msg(c.String())
	}

	tracker := status.NewTracker(cat.Names(), logging.Component(log, "status"))
	dispatcher := gateway.NewDispatcher(cat, nil, tracker, logging.Component(log, "dispatch"))
	handler := gateway.NewHandler(dispatcher, logging.Component(log, "handler"))

	var g run.Group

	// --------------------
	// Embedded NATS
	// --------------------
	url := cfg.Bus.URL
	if cfg.Bus.Embedded {
		e, err := bus.NewEmbedded(bus.EmbeddedOptions{Host: cfg.Bus.Host, Port: cfg.Bus.Port}, logging.Component(log, "nats"))
		if err != nil {
			return err
		}
		if err := e.Start(10 * time.Second); err != nil {
			return err
		}
		if url == "" {
			url = e.ClientURL()
		}

		g.Add(func() error {
			e.Wait()
			return errors.New("embedded nats server stopped")
		}, func(error) {
			e.Shutdown()
		})
	}

	// --------------------
	// Request bus
	// --------------------
	nc, err := bus.Connect(url, "modbus-gateway", logging.Component(log, "bus"))
	if err != nil {
		return err
	}
	defer nc.Close()

	srv := bus.NewServer(nc, cfg.Bus.Subject, cfg.Bus.Queue, handler, logging.Component(log, "bus"))
	ctx, cancel := context.WithCancel(context.Background())
	g.Add(func() error {
		return srv.Serve(ctx)
	}, func(error) {
		cancel()
	})

	// --------------------
	// Metrics
	// --------------------
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Listen, tracker, logging.Component(log, "metrics"))
		if err := ms.Listen(); err != nil {
			return fmt.Errorf("metrics: listen %s: %w", cfg.Metrics.Listen, err)
		}
		g.Add(ms.Serve, func(error) {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = ms.Shutdown(sctx)
		})
	}

	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	log.Info().Str("url", url).Str("subject", cfg.Bus.Subject).Int("interfaces", len(cat.Names())).Msg("gateway started")

	err = g.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Info().Str("signal", sig.Signal.String()).Msg("gateway stopped")
		return nil
	}
	return err
}

// ---- check ----

func newCheckCmd() *cobra.Command {
	var interfaces []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the point catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(interfaces)
			if err != nil {
				return err
			}
			cat, err := catalog.Build(cfg)
			if err != nil {
				return err
			}
			return printCatalog(cmd, cfg, cat)
		},
	}
	cmd.Flags().StringArrayVar(&interfaces, "interface", nil, "extra interface file as name=path (repeatable)")
	return cmd
}

type catalogSummary struct {
	Interfaces []string `json:"interfaces"`
	Warnings   []string `json:"warnings"`
	Subject    string   `json:"subject"`
}

func printCatalog(cmd *cobra.Command, cfg *config.Config, cat *catalog.Catalog) error {
	out := cmd.OutOrStdout()

	var sum catalogSummary
	sum.Subject = cfg.Bus.Subject
	for _, name := range cat.Names() {
		iface, _ := cat.Interface(name)
		sum.Interfaces = append(sum.Interfaces, iface.String())
	}
	for _, c := range cat.Collisions() {
		sum.Warnings = append(sum.Warnings, c.String())
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	for _, line := range sum.Interfaces {
		fmt.Fprintln(out, line)
	}
	for _, w := range sum.Warnings {
		fmt.Fprintln(out, "warning:", w)
	}
	fmt.Fprintln(out, "configuration OK")
	return nil
}
