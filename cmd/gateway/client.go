// cmd/gateway/client.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tamzrod/modbus-gateway/internal/bus"
	"github.com/tamzrod/modbus-gateway/internal/config"
)

// clientFlags are shared by every command that talks to a running gateway.
type clientFlags struct {
	url     string
	subject string
	timeout time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "NATS URL (default: from config)")
	cmd.Flags().StringVar(&f.subject, "subject", "", "request subject (default: from config)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Second, "request timeout")
}

// connect resolves the bus address from flags, falling back to the config file.
func (f *clientFlags) connect() (*bus.Client, *nats.Conn, error) {
	url, subject := f.url, f.subject

	if url == "" || subject == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, nil, err
		}
		config.Normalize(cfg)

		if url == "" {
			url = cfg.Bus.URL
		}
		if url == "" && cfg.Bus.Embedded {
			url = fmt.Sprintf("nats://%s:%d", clientHost(cfg.Bus.Host), cfg.Bus.Port)
		}
		if subject == "" {
			subject = cfg.Bus.Subject
		}
	}
	if url == "" {
		return nil, nil, errors.New("no bus url: set --url or bus.url")
	}

	nc, err := bus.Connect(url, "modbus-gateway-cli", zerolog.Nop())
	if err != nil {
		return nil, nil, err
	}
	return bus.NewClient(nc, subject, f.timeout), nc, nil
}

func clientHost(h string) string {
	if h == "" || h == "0.0.0.0" {
		return "127.0.0.1"
	}
	return h
}

// ---- test ----

func newTestCmd() *cobra.Command {
	var f clientFlags
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that a gateway answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, nc, err := f.connect()
			if err != nil {
				return err
			}
			defer nc.Close()

			ok, err := c.Test(context.Background())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("gateway answered with a different token")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "gateway OK")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// ---- get ----

func newGetCmd() *cobra.Command {
	var f clientFlags
	cmd := &cobra.Command{
		Use:   "get PATH...",
		Short: "Read points, e.g. /plc1/s1/flow",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, nc, err := f.connect()
			if err != nil {
				return err
			}
			defer nc.Close()

			values, err := c.Get(context.Background(), args)
			if err != nil {
				return err
			}
			return printValues(cmd.OutOrStdout(), values)
		},
	}
	f.register(cmd)
	return cmd
}

func printValues(w io.Writer, values map[string]any) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(values)
	}

	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "%s = %v\n", n, values[n])
	}
	return nil
}

// ---- set ----

func newSetCmd() *cobra.Command {
	var f clientFlags
	cmd := &cobra.Command{
		Use:   "set PATH=VALUE...",
		Short: "Write points, e.g. /plc1/s1/pump=true",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}

			c, nc, err := f.connect()
			if err != nil {
				return err
			}
			defer nc.Close()

			if err := c.Set(context.Background(), values); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SET sent")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// parseAssignments reads PATH=VALUE pairs. VALUE is JSON when it parses
// as JSON and a plain string otherwise.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		path, raw, ok := strings.Cut(a, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("%q: expected PATH=VALUE", a)
		}
		out[path] = parseValue(raw)
	}
	return out, nil
}

func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	return v
}

// ---- request ----

func newRequestCmd() *cobra.Command {
	var f clientFlags
	cmd := &cobra.Command{
		Use:   "request JSON",
		Short: `Send a raw request, e.g. '{"GET":["/plc1/s1/flow"]}'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, nc, err := f.connect()
			if err != nil {
				return err
			}
			defer nc.Close()

			reply, err := c.Raw(context.Background(), []byte(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !jsonOutput {
				var buf bytes.Buffer
				if json.Indent(&buf, reply, "", "  ") == nil {
					reply = buf.Bytes()
				}
			}
			_, err = fmt.Fprintln(out, string(reply))
			return err
		},
	}
	f.register(cmd)
	return cmd
}
