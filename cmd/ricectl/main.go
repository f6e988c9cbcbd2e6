// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command ricectl talks to a RiceDB server from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/ricedb"
)

type app struct {
	configPath string
	cfg        Config
	client     *ricedb.Client
	out        io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ricectl",
		Short:         "Command-line client for RiceDB",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "ricectl.yaml", "YAML config file")
	f.String("host", "", "server host")
	f.String("transport", "", "auto, grpc or http")
	f.Int("grpc-port", 0, "gRPC port")
	f.Int("http-port", 0, "JSON-RPC port")
	f.String("compressor", "", "gRPC compressor (gzip, zstd, lz4)")
	f.Int64("user", 0, "acting user id")
	f.BoolP("verbose", "v", false, "log every RPC")

	root.AddCommand(
		a.transportsCmd(),
		a.connected(a.healthCmd()),
		a.connected(a.insertCmd()),
		a.connected(a.deleteCmd()),
		a.connected(a.searchCmd()),
		a.connected(a.ingestCmd()),
		a.sessionCmd(),
		a.memoryCmd(),
		a.graphCmd(),
		a.connected(a.subscribeCmd()),
	)
	return root
}

// setup resolves the configuration from file, environment and flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("host") {
		cfg.Host, _ = f.GetString("host")
	}
	if f.Changed("transport") {
		cfg.Transport, _ = f.GetString("transport")
	}
	if f.Changed("grpc-port") {
		cfg.GRPCPort, _ = f.GetInt("grpc-port")
	}
	if f.Changed("http-port") {
		cfg.HTTPPort, _ = f.GetInt("http-port")
	}
	if f.Changed("compressor") {
		cfg.Compressor, _ = f.GetString("compressor")
	}
	if f.Changed("user") {
		cfg.UserID, _ = f.GetInt64("user")
	}
	if f.Changed("verbose") {
		cfg.Verbose, _ = f.GetBool("verbose")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// connected makes cmd dial before it runs and disconnect afterwards. When a
// username is configured the client logs in first.
func (a *app) connected(cmd *cobra.Command) *cobra.Command {
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := a.setup(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()
		client, err := ricedb.Dial(ctx, a.cfg.options()...)
		if err != nil {
			return err
		}
		a.client = client
		if a.cfg.Username != "" {
			if _, err := client.Login(ctx, a.cfg.Username, a.cfg.Password); err != nil {
				_ = client.Close()
				return err
			}
		}
		return nil
	}
	cmd.PostRunE = func(*cobra.Command, []string) error {
		return a.client.Close()
	}
	return cmd
}

func (a *app) user() ricedb.CallOption {
	return ricedb.AsUser(ricedb.ID(a.cfg.UserID))
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) transportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transports",
		Short: "List compiled-in transports",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.print(ricedb.AvailableTransports())
		},
	}
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(info)
		},
	}
}
