// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the groundtruth CLI, which verifies
// proposed clinical document classifications, routes them to auto-accept or
// human review, and maintains the resulting ground-truth store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/groundtruth/internal/secrets"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the groundtruth CLI.
var rootCmd = &cobra.Command{
	Use:   "groundtruth",
	Short: "Verify clinical document classifications and build ground truth",
	Long: `groundtruth checks a proposed classification of a multi-page clinical
document against the document's extracted text. Structural, consistency,
trap and evidence validators raise issues; an arbiter decides whether to
accept, auto-fix and retry, or escalate to a human reviewer.

Accepted documents become ground-truth records. Escalated documents become
review packets that reviewers complete with the review command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		if err := secrets.LoadEnvFile(".env"); err != nil {
			return err
		}
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./groundtruth.yaml or ~/.config/groundtruth/config.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("store", "", "ground-truth database path (overrides store.path)")
	pf.String("model", "", "model identifier (overrides ai.model)")
	pf.Int("max-retries", 0, "auto-fix rounds before escalating (overrides verify.max_retries)")

	mustBind(rootCmd, "store.path", "store")
	mustBind(rootCmd, "ai.model", "model")
	mustBind(rootCmd, "verify.max_retries", "max-retries")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("groundtruth")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "groundtruth"))
		}
	}

	setDefaults(types.DefaultPipelineConfig())

	viper.SetEnvPrefix("GROUNDTRUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so environment variables resolve even when
// no config file sets them.
func setDefaults(d types.PipelineConfig) {
	viper.SetDefault("ai.model", d.AI.Model)
	viper.SetDefault("ai.api_key", d.AI.APIKey)
	viper.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	viper.SetDefault("ai.temperature", d.AI.Temperature)
	viper.SetDefault("ai.max_retries", d.AI.MaxRetries)
	viper.SetDefault("ai.timeout", d.AI.Timeout)

	viper.SetDefault("verify.max_retries", d.Verify.MaxRetries)
	viper.SetDefault("verify.trap_text_limit", d.Verify.TrapTextLimit)
	viper.SetDefault("verify.concurrency", d.Verify.Concurrency)

	viper.SetDefault("extraction.image", d.Extraction.Image)
	viper.SetDefault("extraction.timeout", d.Extraction.Timeout)
	viper.SetDefault("extraction.max_retries", d.Extraction.MaxRetries)
	viper.SetDefault("extraction.output_dir", d.Extraction.OutputDir)

	viper.SetDefault("store.path", d.Store.Path)
}

// loadConfig resolves flags, environment, config file and defaults into a
// validated PipelineConfig. The API key falls back to .secrets/ and .env.
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = secrets.Lookup(loadedSecrets, secrets.AnthropicAPIKey)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(cmd *cobra.Command) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported --log-format %q: use text or json", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// mustBind ties a persistent flag of cmd to a viper key. The flag only
// takes effect when set on the command line.
func mustBind(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
