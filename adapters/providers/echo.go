package providers

import (
	"context"

	"github.com/pulseproto/pulsegate/domain/gateway"
	"github.com/pulseproto/pulsegate/ports"
)

// Echo is a loopback adapter that returns the sanitized message it was
// given. It takes no credentials and is always available, which makes it
// the default smoke-test target.
type Echo struct{}

// Send returns the message payload unchanged.
func (Echo) Send(ctx context.Context, msg gateway.Message) (any, error) {
	return map[string]any{
		"action":     msg.Action,
		"parameters": msg.Parameters,
	}, nil
}

// EchoDescriptor registers the echo adapter.
func EchoDescriptor() Descriptor {
	return Descriptor{
		Name:      "echo",
		Kind:      "builtin",
		Available: true,
		New: func(cfg map[string]any) (ports.Adapter, error) {
			return Echo{}, nil
		},
	}
}

// Ensure interface compliance.
var _ ports.Adapter = Echo{}
