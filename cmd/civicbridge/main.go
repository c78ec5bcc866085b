// Package main provides the CLI entrypoint for civicbridge.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Quanta-Naut/CivicBridge-App/internal/api"
	"github.com/Quanta-Naut/CivicBridge-App/internal/cache"
	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
	"github.com/Quanta-Naut/CivicBridge-App/internal/sync"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds the persistent flags.
type options struct {
	logLevel string
	logFile  string
	envFile  string
	simulate bool
	token    string

	settings config.Settings
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "civicbridge",
		Short: "Bridge between the CivicBridge app and its issue service",
		Long: `civicbridge resolves the service endpoints for the current environment,
keeps a local issue cache and talks to the remote issue and auth service.

Run "civicbridge serve" to expose every operation to the app frontend over a
local HTTP API, or use the subcommands directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default from "+logger.EnvLevel+" or info)")
	flags.StringVar(&opts.logFile, "log-file", "", "append logs to this file instead of stderr")
	flags.StringVar(&opts.envFile, "env-file", ".env", "load environment variables from this file if it exists")
	flags.BoolVar(&opts.simulate, "simulate", false, "answer remote operations locally without networking")
	flags.StringVar(&opts.token, "token", "", "bearer token (default from "+api.EnvAuthToken+" or the saved auth file)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newEndpointsCmd(opts),
		newIssuesCmd(opts),
		newVouchCmd(opts),
		newOTPCmd(opts),
		newProfileCmd(opts),
		newSelfTestCmd(opts),
	)
	return rootCmd
}

// setup loads the .env file and settings, then configures logging.
func (o *options) setup(cmd *cobra.Command) error {
	config.LoadDotEnv(o.envFile)

	settings, err := config.LoadProcessSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if o.simulate {
		settings.Networked = false
	}
	o.settings = settings

	level := settings.LogLevel
	if o.logLevel != "" {
		if level, err = logger.ParseLevel(o.logLevel); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	logger.SetLevel(level)

	if o.logFile != "" {
		if err := logger.SetLogFile(o.logFile); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}
	return nil
}

// app is the wired runtime for one command invocation.
type app struct {
	settings config.Settings
	resolver *config.Resolver
	store    *cache.Store
	engine   *sync.Engine
}

// newApp builds the resolver, remote client, cache and engine.
func (o *options) newApp() (*app, error) {
	settings := o.settings
	endpoints := config.LoadOrFallback(settings.EndpointsFile, logger.Default())
	resolver := config.NewResolver(endpoints)
	selection := resolver.Selection()
	logger.Debug("config: environment %s selected by %s", selection.Environment, selection.Tier)

	client := api.NewService(settings, resolver, logger.Default())
	store := cache.New()

	engine, err := sync.NewEngine(store, client, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return &app{settings: settings, resolver: resolver, store: store, engine: engine}, nil
}

// requireToken resolves the bearer token or explains how to get one.
func (o *options) requireToken() (string, error) {
	token, source, err := api.GetToken(o.token)
	if err != nil {
		return "", err
	}
	logger.Debug("auth: using token from %s", source)
	return token, nil
}

// optionalToken resolves the bearer token; none means anonymous.
func (o *options) optionalToken() (string, error) {
	token, err := o.requireToken()
	if errors.Is(err, api.ErrNoToken) {
		return "", nil
	}
	return token, err
}
