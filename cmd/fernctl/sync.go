package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/syncclient"
)

type syncOptions struct {
	limit          int
	offset         int
	maxPages       int
	ids            []string
	handles        []string
	updatedSince   string
	includeDeleted string
}

func newSyncCmd(global *globalOptions) *cobra.Command {
	opts := &syncOptions{}

	cmd := &cobra.Command{
		Use:       "sync <products|categories|brands>",
		Short:     "Page through a sync endpoint until the source is exhausted",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"products", "categories", "brands"},
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityType(args[0])
			if err != nil {
				return err
			}
			filters, err := opts.filters()
			if err != nil {
				return err
			}
			client, err := global.client()
			if err != nil {
				return err
			}

			out := cmd.ErrOrStderr()
			summary, err := client.SyncAll(cmd.Context(), entityType, syncclient.Options{
				Filters:     filters,
				Limit:       opts.limit,
				StartOffset: opts.offset,
				MaxPages:    opts.maxPages,
				OnPage: func(page models.SyncResult) {
					fmt.Fprintf(out, "offset %d: processed %d, indexed %d, deleted %d, failed %d\n",
						page.Offset, page.Processed, page.Indexed, page.Deleted, page.Failed)
				},
			})
			if summary == nil {
				return err
			}
			if printErr := global.print(cmd.OutOrStdout(), summary); printErr != nil {
				return printErr
			}
			if err != nil {
				return fmt.Errorf("%w (resume with --offset %d)", err, summary.NextOffset)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.limit, "limit", 0, "page size (server default when 0)")
	flags.IntVar(&opts.offset, "offset", 0, "offset to start or resume from")
	flags.IntVar(&opts.maxPages, "max-pages", syncclient.DefaultMaxPages, "stop after this many pages")
	flags.StringSliceVar(&opts.ids, "ids", nil, "only sync these ids")
	flags.StringSliceVar(&opts.handles, "handles", nil, "only sync these handles")
	flags.StringVar(&opts.updatedSince, "updated-since", "", "only sync rows updated at or after this RFC3339 time")
	flags.StringVar(&opts.includeDeleted, "include-deleted", "", "true or false; the server includes deleted rows when unset")

	return cmd
}

func (o *syncOptions) filters() (models.ListFilters, error) {
	filters := models.ListFilters{
		IDs:     o.ids,
		Handles: o.handles,
	}

	if o.updatedSince != "" {
		t, err := time.Parse(time.RFC3339, o.updatedSince)
		if err != nil {
			return filters, fmt.Errorf("invalid --updated-since: %w", err)
		}
		filters.UpdatedSince = &t
	}

	switch strings.ToLower(o.includeDeleted) {
	case "":
	case "true":
		v := true
		filters.IncludeDeleted = &v
	case "false":
		v := false
		filters.IncludeDeleted = &v
	default:
		return filters, fmt.Errorf("invalid --include-deleted %q", o.includeDeleted)
	}

	return filters, nil
}

// parseEntityType accepts the singular type or its index name.
func parseEntityType(arg string) (models.EntityType, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	for _, t := range models.EntityTypes {
		if arg == string(t) || arg == t.DefaultIndex() {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", arg)
}
