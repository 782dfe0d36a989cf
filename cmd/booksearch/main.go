// Package main provides the booksearch CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/booksearch/cli"
	"github.com/richinex/booksearch/config"
	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/internal/logger"
	"github.com/richinex/booksearch/prowlarr"
	"github.com/richinex/booksearch/storage"
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(domainerrors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "booksearch [search terms]",
		Short: "Search Prowlarr for books and audiobooks",
		Long: `Search Prowlarr indexers tagged "audiobooks" or "ebooks", cache the results
locally and send a chosen release to the download client.

Run without arguments for the interactive menu.`,
		Example: `  booksearch -k audio -x dune
  booksearch -s 12 -g 3
  booksearch -L -g 1
  booksearch --list-cache`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), f, args)
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return domainerrors.Validationf("%v", err)
	})

	rootCmd.PersistentFlags().StringVar(&f.configPath, "config", "", "Path to config file (default $BOOKSEARCH_CONFIG or user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&f.debug, "debug", "d", false, "Enable debug output")

	flags := rootCmd.Flags()
	flags.StringVarP(&f.kind, "kind", "k", "", "Media type: audio, book or both")
	flags.StringVarP(&f.protocol, "protocol", "p", "", "Protocol: tor or nzb")
	flags.BoolVarP(&f.headless, "headless", "x", false, "Print a condensed listing without prompts")
	flags.IntVarP(&f.search, "search", "s", -1, "Cached search id")
	flags.IntVarP(&f.grab, "grab", "g", 0, "Result number to download")
	flags.StringVar(&f.listCache, "list-cache", "", "List cached searches, or show one by id")
	flags.Lookup("list-cache").NoOptDefVal = listAll
	flags.BoolVar(&f.clearCache, "clear-cache", false, "Remove every cached search")
	flags.BoolVarP(&f.searchLast, "search-last", "L", false, "Use the most recent search (with --grab)")

	rootCmd.AddCommand(configCmd(&f))
	return rootCmd
}

func configCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path(f.configPath)
			if err != nil {
				return err
			}
			settings, err := config.Load(path)
			if err != nil {
				return err
			}
			doc, err := settings.Masked().YAML()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", path)
			fmt.Fprintf(out, "# cache: %s\n", storage.Describe(settings.Cache.Backend, settings.Cache.Dir))
			fmt.Fprint(out, doc)
			return nil
		},
	}
}

func runSearch(ctx context.Context, f flags, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	path, err := config.Path(f.configPath)
	if err != nil {
		return err
	}
	settings, err := config.Load(path)
	if err != nil {
		return err
	}

	opts, err := buildOptions(f, args, settings)
	if err != nil {
		return err
	}

	level := logger.ParseLevel(settings.Log.Level)
	if f.debug {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Config{Format: os.Getenv("LOG_FORMAT"), Level: level})
	log.Debug("debug mode enabled",
		"config", path,
		"cache", storage.Describe(settings.Cache.Backend, settings.Cache.Dir),
		"prowlarr", settings.Prowlarr.URL,
		"max_age_hours", settings.Cache.MaxAge,
		"max_size_mb", settings.Cache.MaxSize,
		"max_entries", settings.Cache.MaxEntries,
	)

	store, err := storage.Open(settings.Cache.Backend, settings.Cache.Dir, storage.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()

	client := prowlarr.New(settings.Prowlarr.URL, settings.Prowlarr.APIKey,
		prowlarr.WithTimeout(settings.Prowlarr.Timeout),
		prowlarr.WithLogger(log),
	)

	app := cli.NewApp(store, client, settings.Limits(), log)
	if err := app.Run(ctx, opts); err != nil {
		log.Debug("command failed", "kind", domainerrors.KindOf(err), "error", err)
		return err
	}
	return nil
}
