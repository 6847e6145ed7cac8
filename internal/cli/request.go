package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	transport "github.com/peteraglen/influxdb-transport-go"
)

type requestFlags struct {
	method  string
	params  []string
	data    string
	expect  int
	headers []string
}

func newRequestCommand(g *globalFlags) *cobra.Command {
	f := &requestFlags{}

	cmd := &cobra.Command{
		Use:   "request <path>",
		Short: "Send a request to a path below the base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.requestOptions()
			if err != nil {
				return err
			}

			return run(cmd, g, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&f.method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Raw request body")
	cmd.Flags().IntVar(&f.expect, "expect", http.StatusOK, "Expected status code")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Header as 'Name: value', replaces the defaults (repeatable)")

	return cmd
}

func newPingCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers GET /ping with 204",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, g, "ping", []transport.RequestOption{
				transport.WithExpectedStatus(http.StatusNoContent),
			})
		},
	}
}

func (f *requestFlags) requestOptions() ([]transport.RequestOption, error) {
	opts := []transport.RequestOption{
		transport.WithMethod(strings.ToUpper(f.method)),
		transport.WithExpectedStatus(f.expect),
	}

	if len(f.params) > 0 {
		params, err := splitPairs(f.params, "=")
		if err != nil {
			return nil, fmt.Errorf("invalid --param: %w", err)
		}
		opts = append(opts, transport.WithParams(params))
	}

	if len(f.headers) > 0 {
		headers, err := splitPairs(f.headers, ":")
		if err != nil {
			return nil, fmt.Errorf("invalid --header: %w", err)
		}
		opts = append(opts, transport.WithRequestHeaders(headers))
	}

	if f.data != "" {
		opts = append(opts, transport.WithBody(f.data))
	}

	return opts, nil
}

func run(cmd *cobra.Command, g *globalFlags, path string, opts []transport.RequestOption) error {
	exec, err := g.executor()
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}
	defer exec.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := exec.Request(ctx, path, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "HTTP %d\n", resp.StatusCode)
	if len(resp.Body) > 0 {
		fmt.Fprintln(out, string(resp.Body))
	}

	return nil
}

func splitPairs(pairs []string, sep string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, sep)
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not in key%svalue form", pair, sep)
		}
		out[k] = strings.TrimSpace(v)
	}

	return out, nil
}
