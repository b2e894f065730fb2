package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vialerp/internal/pricing"
	"vialerp/internal/variant"
)

func newSyncCommand(rootOpts *rootOptions) *cobra.Command {
	var (
		all     bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "sync [product-id...]",
		Short: "Rebuild derived combinations of products",
		Long: `Rebuild the derived combinations of the given products, or of every
product with a recipe or leftover derived data when --all is set. Products
are synced concurrently on --workers goroutines; a failing product does not
stop the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("pass either product ids or --all")
			}
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = e.cfg.Sync.Workers
			}

			if all {
				ids, err = e.store.ListProductIDsToSync(cmd.Context())
				if err != nil {
					return err
				}
			}
			reports, syncErr := e.engine.SyncMany(cmd.Context(), ids, workers)

			if rootOpts.format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
				return syncErr
			}
			out := cmd.OutOrStdout()
			for _, r := range reports {
				status := "synced"
				if r.Cleared {
					status = "cleared"
				}
				fmt.Fprintf(out, "product %d %s: inserted=%d updated=%d deleted=%d\n",
					r.ProductID, status, r.Inserted, r.Updated, r.Deleted)
			}
			return syncErr
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "sync every product with a recipe or stale derived data")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent product syncs (default from SYNC_WORKERS)")
	return cmd
}

func newPriceCommand(rootOpts *rootOptions) *cobra.Command {
	var (
		attrs  []string
		branch string
		base   string
	)

	cmd := &cobra.Command{
		Use:     "price <product-id>",
		Short:   "Resolve the sale price of a combination",
		Example: `  variantsync price 1 --attr Color=Negro --attr "Tamaño=Grande" --branch "La Paz"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			selected := make(map[string]string, len(attrs))
			for _, attr := range attrs {
				name, value, ok := strings.Cut(attr, "=")
				if !ok || strings.TrimSpace(name) == "" {
					return fmt.Errorf("invalid --attr %q: want Name=Value", attr)
				}
				selected[name] = value
			}

			var selectedBranch variant.Branch
			if strings.TrimSpace(branch) != "" {
				parsed, ok := variant.ParseBranch(branch)
				if !ok {
					return fmt.Errorf("unknown branch %q", branch)
				}
				selectedBranch = parsed
			}

			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			product, err := e.store.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			basePrice := product.BasePrice
			if strings.TrimSpace(base) != "" {
				basePrice, err = decimal.NewFromString(strings.TrimSpace(base))
				if err != nil {
					return fmt.Errorf("invalid --base: %w", err)
				}
			}

			res := pricing.NewResolver(e.store).Resolve(cmd.Context(), id, selected, selectedBranch, basePrice)
			if rootOpts.format == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "price: %s\nsource: %s\n", res.Price.StringFixed(2), res.Source)
			if res.CombinationKey != "" {
				fmt.Fprintf(out, "combination: %s\n", res.CombinationKey)
			}
			for _, warning := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "selected attribute as Name=Value (repeatable)")
	cmd.Flags().StringVar(&branch, "branch", "", "branch name")
	cmd.Flags().StringVar(&base, "base", "", "base price (default: the product's base price)")
	return cmd
}

func newDimensionsCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dimensions <product-id>",
		Short: "Print the merged variant dimensions of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			product, err := e.store.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			dims, err := variant.ParseDimensions(product.Dimensions)
			if err != nil {
				return fmt.Errorf("stored dimensions of product %d: %w", id, err)
			}

			if rootOpts.format == "json" {
				if dims == nil {
					dims = []variant.Dimension{}
				}
				return writeJSON(cmd.OutOrStdout(), dims)
			}
			out := cmd.OutOrStdout()
			for _, dim := range dims {
				fmt.Fprintf(out, "%s: %s\n", dim.Name, strings.Join(dim.Values, ", "))
			}
			fmt.Fprintf(out, "combinations: %d\n", variant.Count(dims, variant.Branches))
			return nil
		},
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return uint(id), nil
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
