package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
)

func newRunsCmd(global *globalOptions) *cobra.Command {
	var (
		entity string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync pages from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var entityType models.EntityType
			if entity != "" {
				t, err := parseEntityType(entity)
				if err != nil {
					return err
				}
				entityType = t
			}

			client, err := global.client()
			if err != nil {
				return err
			}
			runs, err := client.ListRuns(cmd.Context(), entityType, limit)
			if err != nil {
				return err
			}
			return global.print(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().StringVar(&entity, "type", "", "filter by entity type")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs")
	return cmd
}
