package meshserver

import (
	"context"

	"github.com/yndnr/meshp2p-go/internal/p2p"
	"github.com/yndnr/meshp2p-go/internal/telemetry/logger"
)

// Operations every node-created service exports.
const (
	OpEcho   = "echo"
	OpWhoAmI = "whoami"
)

// BuiltinOperations returns the echo and whoami operations for a node
// identified by nodeID at the position topo reports.
//
// echo returns its arguments unchanged. whoami describes the node that
// answered and how the message reached it.
func BuiltinOperations(nodeID string, topo p2p.Topology) []p2p.ServiceOption {
	echo := func(ctx context.Context, caller p2p.CallerInfo, args []any) (any, error) {
		logger.L(ctx).Debug("echo", "sender", caller.Sender.String(), "args", len(args))
		if args == nil {
			args = []any{}
		}
		return args, nil
	}

	whoami := func(ctx context.Context, caller p2p.CallerInfo, _ []any) (any, error) {
		return map[string]any{
			"node_id":    nodeID,
			"address":    []int(topo.Me()),
			"sender":     []int(caller.Sender),
			"gateway":    string(caller.Gateway),
			"message_id": caller.MessageID,
		}, nil
	}

	return []p2p.ServiceOption{
		p2p.WithOperation(OpEcho, echo),
		p2p.WithOperation(OpWhoAmI, whoami),
	}
}
