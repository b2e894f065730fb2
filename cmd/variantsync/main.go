package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"vialerp/internal/catalog"
	"vialerp/internal/config"
	"vialerp/internal/db"
	"vialerp/internal/db/mock"
	applog "vialerp/internal/log"
	"vialerp/internal/syncer"
)

// validFormats lists the accepted --format values.
var validFormats = []string{"text", "json"}

type rootOptions struct {
	format string
	mock   bool
}

// env is what every subcommand runs against.
type env struct {
	cfg    config.Config
	store  catalog.Store
	engine *syncer.Engine
}

var loadConfigFunc = config.Load

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "variantsync",
		Short: "Rebuild and inspect product variant combinations",
		Long: `variantsync rebuilds the derived combinations of products from their
recipes and resolves combination prices against the catalog database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			// Logs go to stderr so they never mix with command output.
			applog.ReplaceLogger(applog.New(cmd.ErrOrStderr()))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.mock, "mock", false, "use the seeded in-memory catalog")

	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newPriceCommand(opts))
	cmd.AddCommand(newDimensionsCommand(opts))

	return cmd
}

// openEnv loads configuration and connects to the catalog. The mock catalog
// is synced up front since it ships without derived rows.
func openEnv(ctx context.Context, opts *rootOptions) (*env, error) {
	cfg, err := loadConfigFunc()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}

	useMock := opts.mock || cfg.Database.UseMock || strings.TrimSpace(cfg.Database.URL) == ""
	var store catalog.Store
	if useMock {
		database, err := mock.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("open mock database: %w", err)
		}
		store = catalog.NewGormStore(database)
	} else {
		database, err := db.Configure(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		store = catalog.NewGormStore(database)
	}

	engine := syncer.New(store, syncer.WithTimeout(cfg.Sync.Timeout))
	if useMock {
		if _, err := engine.SyncAll(ctx, cfg.Sync.Workers); err != nil {
			return nil, fmt.Errorf("sync mock catalog: %w", err)
		}
	}
	return &env{cfg: cfg, store: store, engine: engine}, nil
}
