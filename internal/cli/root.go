package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	transport "github.com/peteraglen/influxdb-transport-go"
)

// flags shared by every subcommand.
type globalFlags struct {
	configPath  string
	baseURL     string
	database    string
	username    string
	password    string
	retries     int
	timeout     time.Duration
	cooperative bool
	verbose     bool
}

// NewRootCommand builds the influxhttp command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "influxhttp",
		Short: "Send raw requests to an InfluxDB HTTP API",
		Long: `influxhttp sends a single request through the transport layer and prints
the status code and body.

Examples:
  influxhttp ping --url http://localhost:8086
  influxhttp request query --param q="SHOW DATABASES"
  influxhttp request write --method POST --param db=telemetry --data 'cpu value=1' --expect 204`,
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to a YAML transport config")
	pf.StringVar(&g.baseURL, "url", "", "Base URL, overrides the config file")
	pf.StringVar(&g.database, "db", "", "Database name")
	pf.StringVarP(&g.username, "user", "u", "", "Basic auth username")
	pf.StringVarP(&g.password, "password", "p", "", "Basic auth password")
	pf.IntVar(&g.retries, "retries", -1, "Retry budget (0 retries until a response arrives)")
	pf.DurationVar(&g.timeout, "timeout", 0, "Timeout for a single attempt")
	pf.BoolVar(&g.cooperative, "cooperative", false, "Use the fasthttp-based cooperative executor")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log retries and request details")

	root.AddCommand(newRequestCommand(g), newPingCommand(g), newWriteCommand(g))

	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (g *globalFlags) config() (*transport.Config, error) {
	var opts []transport.Option
	if g.baseURL != "" {
		opts = append(opts, transport.WithBaseURL(g.baseURL))
	}
	if g.database != "" {
		opts = append(opts, transport.WithDatabase(g.database))
	}
	if g.username != "" || g.password != "" {
		opts = append(opts, transport.WithBasicAuth(g.username, g.password))
	}
	if g.retries >= 0 {
		opts = append(opts, transport.WithRetries(g.retries))
	}
	if g.timeout > 0 {
		opts = append(opts, transport.WithTimeout(g.timeout))
	}

	if g.configPath == "" {
		return transport.NewConfig(g.baseURL, opts...), nil
	}

	return transport.LoadConfig(g.configPath, opts...)
}

func (g *globalFlags) executor() (transport.Executor, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if g.verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	if g.cooperative {
		return transport.NewCooperativeExecutor(cfg,
			transport.WithRequestLogger(transport.NewLogrusLogger(logger, "cooperative")))
	}

	return transport.NewBlockingExecutor(cfg,
		transport.WithRequestLogger(transport.NewLogrusLogger(logger, "blocking")))
}
