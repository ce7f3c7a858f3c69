package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/syncclient"
)

type globalOptions struct {
	baseURL string
	token   string
	timeout time.Duration
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "fernctl",
		Short:         "Run and inspect fern catalog syncs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("FERN_URL", "http://localhost:3004"), "fern base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("FERN_TOKEN"), "bearer token for the admin routes")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "per-request timeout")
	flags.StringVarP(&opts.output, "output", "o", "json", "output format (json or yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log each request")

	cmd.AddCommand(newSyncCmd(opts), newRunsCmd(opts))
	return cmd
}

func (o *globalOptions) client() (*syncclient.Client, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	http := httpclient.NewClient(httpclient.Config{
		Upstream:    "fern",
		BaseURL:     o.baseURL,
		BearerToken: o.token,
		Timeout:     o.timeout,
	}, logger)
	return syncclient.NewClient(http, logger), nil
}

func (o *globalOptions) logger() (ectologger.Logger, error) {
	if !o.verbose {
		return logging.Discard(), nil
	}
	logger, _, err := logging.New("fernctl", "debug", true)
	return logger, err
}

func (o *globalOptions) print(w io.Writer, v any) error {
	switch o.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// round trip through json so the json tags name the fields
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		return yaml.NewEncoder(w).Encode(generic)
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
