package command

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshp2p-go/internal/cli/output"
	"github.com/yndnr/meshp2p-go/internal/infra/buildinfo"
	"github.com/yndnr/meshp2p-go/internal/infra/tlsroots"
	"github.com/yndnr/meshp2p-go/internal/server/meshserver"
)

// DefaultNode is the RPC address used when --node is not given.
const DefaultNode = "127.0.0.1:7400"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "meshp2p-cli",
		Usage:   "Inspect and drive a mesh P2P node",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ResolveCommand(),
			SendCommand(),
			ParticipateCommand(),
			AnnounceCommand(),
			StatesCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "node",
			Aliases: []string{"n"},
			Usage:   "Mesh RPC address of the node (host:port or URL)",
			EnvVars: []string{"MESHP2P_NODE"},
			Value:   DefaultNode,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per request timeout",
			Value: 10 * time.Second,
		},
		&cli.StringFlag{
			Name:    "tls-ca",
			Usage:   "CA bundle verifying the node; enables HTTPS",
			EnvVars: []string{"MESHP2P_TLS_CA"},
		},
		&cli.StringFlag{
			Name:    "tls-cert",
			Usage:   "Client certificate presented to the node",
			EnvVars: []string{"MESHP2P_TLS_CERT"},
		},
		&cli.StringFlag{
			Name:    "tls-key",
			Usage:   "Private key of --tls-cert",
			EnvVars: []string{"MESHP2P_TLS_KEY"},
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Node    string
	Output  output.Format
	Wide    bool
	Timeout time.Duration
	TLS     tlsroots.Config
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Node:    c.String("node"),
		Output:  output.Format(c.String("output")),
		Wide:    c.Bool("wide"),
		Timeout: c.Duration("timeout"),
		TLS: tlsroots.Config{
			CAFile:   c.String("tls-ca"),
			CertFile: c.String("tls-cert"),
			KeyFile:  c.String("tls-key"),
		},
	}
}

// secure reports whether any TLS flag was given.
func (f *GlobalFlags) secure() bool {
	return f.TLS.CAFile != "" || f.TLS.CertFile != "" || f.TLS.KeyFile != ""
}

// NodeURL turns a host:port into a base URL, https when secure is set.
// URLs pass through unchanged.
func NodeURL(node string, secure bool) string {
	if strings.HasPrefix(node, "http://") || strings.HasPrefix(node, "https://") {
		return strings.TrimSuffix(node, "/")
	}
	if secure {
		return "https://" + node
	}
	return "http://" + node
}

// newClient builds a mesh client for the node named by --node. Calls carry
// no gateway id: the CLI is not a mesh neighbour.
func newClient(c *cli.Context) (*meshserver.Client, error) {
	flags := ParseGlobalFlags(c)
	httpClient := &http.Client{Timeout: flags.Timeout}
	if flags.secure() {
		tlsCfg, err := tlsroots.ClientConfig(flags.TLS)
		if err != nil {
			return nil, err
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}
	return meshserver.NewClient(httpClient, NodeURL(flags.Node, flags.secure()), ""), nil
}

// requestContext bounds a command's RPCs by --timeout.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
}

// printResult writes data to the app's writer in the selected format.
func printResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(w, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
