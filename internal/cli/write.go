package cli

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/spf13/cobra"

	transport "github.com/peteraglen/influxdb-transport-go"
)

type writeFlags struct {
	tags      []string
	fields    []string
	timestamp int64
	precision string
}

var precisions = map[string]time.Duration{
	"ns": time.Nanosecond,
	"u":  time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
}

func newWriteCommand(g *globalFlags) *cobra.Command {
	f := &writeFlags{}

	cmd := &cobra.Command{
		Use:   "write <measurement>",
		Short: "Write a single point to the database given by --db",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.database == "" {
				return fmt.Errorf("--db is required")
			}

			line, err := f.lineProtocol(args[0], time.Now())
			if err != nil {
				return err
			}

			return run(cmd, g, "write", []transport.RequestOption{
				transport.WithMethod(http.MethodPost),
				transport.WithParams(map[string]string{"db": g.database, "precision": f.precision}),
				transport.WithBody(line),
				transport.WithExpectedStatus(http.StatusNoContent),
			})
		},
	}

	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "Tag as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.fields, "field", nil, "Field as key=value; numbers and booleans are typed (repeatable)")
	cmd.Flags().Int64Var(&f.timestamp, "time", 0, "Timestamp in --precision units, defaults to now")
	cmd.Flags().StringVar(&f.precision, "precision", "ns", "Timestamp precision: ns, u, ms or s")

	return cmd
}

// lineProtocol renders the point described by the flags.
func (f *writeFlags) lineProtocol(measurement string, now time.Time) (string, error) {
	precision, ok := precisions[f.precision]
	if !ok {
		return "", fmt.Errorf("unknown precision %q", f.precision)
	}

	tags, err := splitPairs(f.tags, "=")
	if err != nil {
		return "", fmt.Errorf("invalid --tag: %w", err)
	}

	raw, err := splitPairs(f.fields, "=")
	if err != nil {
		return "", fmt.Errorf("invalid --field: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("at least one --field is required")
	}

	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[k] = fieldValue(v)
	}

	ts := now
	if f.timestamp != 0 {
		ts = time.Unix(0, f.timestamp*int64(precision))
	}

	point := write.NewPoint(measurement, tags, fields, ts)

	return write.PointToLineProtocol(point, precision), nil
}

// fieldValue types a raw field value: integers with an "i" suffix, then
// floats, then booleans, otherwise a string.
func fieldValue(v string) interface{} {
	if strings.HasSuffix(v, "i") {
		if n, err := strconv.ParseInt(strings.TrimSuffix(v, "i"), 10, 64); err == nil {
			return n
		}
	}

	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}

	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}

	return v
}
