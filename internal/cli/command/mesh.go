package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/meshp2p-go/internal/cli/output"
	"github.com/yndnr/meshp2p-go/internal/core/domain"
	"github.com/yndnr/meshp2p-go/internal/p2p"
)

var errNoTarget = errors.New("one of --address or --key is required")

func serviceFlag() cli.Flag {
	return &cli.UintFlag{
		Name:     "service",
		Aliases:  []string{"s"},
		Usage:    "Service id",
		Required: true,
	}
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "address",
			Aliases: []string{"a"},
			Usage:   "Target mesh address, top level first (e.g. 1.3.0)",
		},
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Target key, hashed to an address by the node",
		},
	}
}

func serviceID(c *cli.Context) domain.ServiceID {
	return domain.ServiceID(c.Uint("service"))
}

// parseTarget reads --address or --key. Exactly one must be set.
func parseTarget(c *cli.Context) (domain.Address, []byte, error) {
	hasAddr, hasKey := c.IsSet("address"), c.IsSet("key")
	switch {
	case hasAddr && hasKey:
		return nil, nil, errors.New("--address and --key are mutually exclusive")
	case hasAddr:
		addr, err := domain.ParseAddress(c.String("address"))
		if err != nil {
			return nil, nil, err
		}
		return addr, nil, nil
	case hasKey:
		return nil, []byte(c.String("key")), nil
	default:
		return nil, nil, errNoTarget
	}
}

// ResolveResult is the output of resolve.
type ResolveResult struct {
	Service uint32 `json:"service" yaml:"service"`
	Target  string `json:"target" yaml:"target"`
	Found   bool   `json:"found" yaml:"found"`
	Owner   string `json:"owner,omitempty" yaml:"owner,omitempty"`
	NextHop string `json:"next_hop,omitempty" yaml:"next_hop,omitempty"`
}

// Table implements output.Tabular.
func (r ResolveResult) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"SERVICE", "TARGET", "FOUND", "OWNER"}}
	if !wide {
		t.AddRow(r.Service, r.Target, r.Found, r.Owner)
		return t
	}
	t.Headers = append(t.Headers, "NEXT HOP")
	t.AddRow(r.Service, r.Target, r.Found, r.Owner, r.NextHop)
	return t
}

// ResolveCommand returns the resolve command.
func ResolveCommand() *cli.Command {
	return &cli.Command{
		Name:   "resolve",
		Usage:  "Show which participant owns an address or key",
		Flags:  append([]cli.Flag{serviceFlag()}, targetFlags()...),
		Action: resolve,
	}
}

func resolve(c *cli.Context) error {
	target, key, err := parseTarget(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := newClient(c)
	if err != nil {
		return err
	}
	res, err := client.Resolve(ctx, serviceID(c), target, key)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	return printResult(c, ResolveResult{
		Service: uint32(serviceID(c)),
		Target:  res.Target.String(),
		Found:   res.Found,
		Owner:   res.Owner.String(),
		NextHop: string(res.NextHop),
	})
}

// SendResult is the output of send.
type SendResult struct {
	Service   uint32 `json:"service" yaml:"service"`
	Target    string `json:"target" yaml:"target"`
	MessageID string `json:"message_id" yaml:"message_id"`
	Op        string `json:"op" yaml:"op"`
	Result    any    `json:"result" yaml:"result"`
}

// Table implements output.Tabular.
func (r SendResult) Table(wide bool) *output.Table {
	result, err := json.Marshal(r.Result)
	if err != nil {
		result = []byte(fmt.Sprint(r.Result))
	}
	t := &output.Table{Headers: []string{"TARGET", "OP", "RESULT"}}
	if !wide {
		t.AddRow(r.Target, r.Op, string(result))
		return t
	}
	t.Headers = append(t.Headers, "MESSAGE ID")
	t.AddRow(r.Target, r.Op, string(result), r.MessageID)
	return t
}

// SendCommand returns the send command.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send an operation to the participant owning an address or key",
		ArgsUsage: "OP [ARG...]",
		Flags: append([]cli.Flag{
			serviceFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Decode each ARG as a JSON value instead of a string",
			},
		}, targetFlags()...),
		Action: send,
	}
}

func send(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("send: missing OP")
	}
	target, key, err := parseTarget(c)
	if err != nil {
		return err
	}
	args, err := parseArgs(c.Args().Tail(), c.Bool("json"))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := newClient(c)
	if err != nil {
		return err
	}
	id := serviceID(c)
	if key != nil {
		res, err := client.Resolve(ctx, id, nil, key)
		if err != nil {
			return fmt.Errorf("resolve key: %w", err)
		}
		target = res.Target
	}

	msg := p2p.NewMessage(c.Args().First(), args...)
	res, err := client.MsgSend(ctx, id, nil, target, msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", msg.Op, err)
	}
	return printResult(c, SendResult{
		Service:   uint32(id),
		Target:    target.String(),
		MessageID: msg.ID,
		Op:        msg.Op,
		Result:    res,
	})
}

func parseArgs(raw []string, asJSON bool) ([]any, error) {
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		if !asJSON {
			args = append(args, s)
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("argument %q is not valid JSON: %w", s, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// ParticipateResult is the output of participate and announce.
type ParticipateResult struct {
	Service uint32 `json:"service" yaml:"service"`
	Address string `json:"address" yaml:"address"`
}

// Table implements output.Tabular.
func (r ParticipateResult) Table(bool) *output.Table {
	t := &output.Table{Headers: []string{"SERVICE", "ADDRESS"}}
	t.AddRow(r.Service, r.Address)
	return t
}

// ParticipateCommand returns the participate command.
func ParticipateCommand() *cli.Command {
	return &cli.Command{
		Name:   "participate",
		Usage:  "Make the node a participant of a service",
		Flags:  []cli.Flag{serviceFlag()},
		Action: participate,
	}
}

func participate(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := newClient(c)
	if err != nil {
		return err
	}
	addr, err := client.Participate(ctx, serviceID(c))
	if err != nil {
		return fmt.Errorf("participate: %w", err)
	}
	return printResult(c, ParticipateResult{Service: uint32(serviceID(c)), Address: addr.String()})
}

// AnnounceCommand returns the announce command.
func AnnounceCommand() *cli.Command {
	return &cli.Command{
		Name:  "announce",
		Usage: "Tell the node that a participant exists at an address",
		Flags: []cli.Flag{
			serviceFlag(),
			&cli.StringFlag{
				Name:     "address",
				Aliases:  []string{"a"},
				Usage:    "Participant mesh address, top level first",
				Required: true,
			},
		},
		Action: announce,
	}
}

func announce(c *cli.Context) error {
	addr, err := domain.ParseAddress(c.String("address"))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := newClient(c)
	if err != nil {
		return err
	}
	if err := client.ParticipantAdd(ctx, serviceID(c), addr); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	return printResult(c, ParticipateResult{Service: uint32(serviceID(c)), Address: addr.String()})
}
