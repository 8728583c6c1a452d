package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	loadWhere string
	loadHint  string
)

var rootCmd = &cobra.Command{
	Use:           "capferry",
	Short:         "Trigger-based change capture generator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validLogLevel(logLevel); err != nil {
			return err
		}
		SetLogger(newLogger(logLevel))
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <config.toml>",
	Short: "Write the capture trigger script for the configured tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], "generate", func(ctx context.Context, s *session) error {
			out, err := openOutput(s.cfg.Output)
			if err != nil {
				return err
			}
			return writeScript(out, func(w io.Writer) error { return s.generate(ctx, w) })
		})
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy <config.toml>",
	Short: "Install the capture triggers on the source database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], "deploy", func(ctx context.Context, s *session) error {
			return s.deploy(ctx)
		})
	},
}

var initialLoadCmd = &cobra.Command{
	Use:   "initial-load <config.toml>",
	Short: "Capture the current rows of each table as an insert script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(args[0], "initial-load", func(ctx context.Context, s *session) error {
			where, hint := s.cfg.Script.Where, s.cfg.Script.Hint
			if cmd.Flags().Changed("where") {
				where = loadWhere
			}
			if cmd.Flags().Changed("hint") {
				hint = loadHint
			}
			out, err := openOutput(s.cfg.Output)
			if err != nil {
				return err
			}
			return writeScript(out, func(w io.Writer) error { return s.initialLoad(ctx, w, where, hint) })
		})
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates [dialect [kind]]",
	Short: "List template dialects, or print one structural trigger template",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := NewCatalog()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			for _, d := range catalog.Dialects() {
				fmt.Fprintln(w, d)
			}
			return nil
		case 1:
			if _, err := catalog.TemplateSet(args[0]); err != nil {
				return err
			}
			for _, k := range allKinds {
				if _, err := catalog.Structural(args[0], k); err == nil {
					fmt.Fprintln(w, k)
				}
			}
			return nil
		}
		for _, k := range allKinds {
			if k.String() == args[1] {
				text, err := catalog.Structural(args[0], k)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, text)
				return nil
			}
		}
		return fmt.Errorf("unknown trigger kind %q", args[1])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the capferry version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	initialLoadCmd.Flags().StringVar(&loadWhere, "where", "", "row filter for the initial-load query (default 1=1)")
	initialLoadCmd.Flags().StringVar(&loadHint, "hint", "", "query hint inserted into the initial-load select")
	rootCmd.AddCommand(generateCmd, deployCmd, initialLoadCmd, templatesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withSession loads the config, opens a session and runs fn against it.
func withSession(cfgPath, command string, fn func(context.Context, *session) error) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()
	logger := GetLogger().Named(command)
	logger.Info("capferry "+versionString(), "config", cfgPath, "source", cfg.Source.Type, "workers", cfg.Workers)

	s, err := newSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(ctx, s); err != nil {
		return err
	}
	logger.Info("done", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
