package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/search"
)

func newSearchCmd() *cobra.Command {
	var (
		file     string
		page     int
		pageSize int
		filters  filterFlags
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a search in-process against a YAML fixture and print both channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fx, err := repository.LoadFixtures(file)
			if err != nil {
				return err
			}
			store := repository.NewMemoryStore(ctx)
			defer store.Close()
			if err := store.Seed(ctx, fx); err != nil {
				return err
			}

			raw := rawFilter(filters.values())
			if cmd.Flags().Changed("page") {
				raw[query.FieldPage] = page
			}
			if cmd.Flags().Changed("limit") {
				raw[query.FieldPageSize] = pageSize
			}

			res, err := search.NewEngine(store, store).Search(ctx, raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture file")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "limit", query.DefaultPageSize, "page size")
	filters.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
