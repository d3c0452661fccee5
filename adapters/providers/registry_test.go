package providers_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pulseproto/pulsegate/adapters/providers"
	"github.com/pulseproto/pulsegate/domain/gateway"
	"github.com/pulseproto/pulsegate/ports"
)

func newTestRegistry(t *testing.T) *providers.Registry {
	t.Helper()
	r := providers.NewRegistry()
	r.Register(providers.EchoDescriptor())
	return r
}

func TestRegistry_ResolveEcho(t *testing.T) {
	r := newTestRegistry(t)

	adapter, err := r.Resolve("echo", nil)
	if err != nil {
		t.Fatalf("resolve echo: %v", err)
	}

	result, err := adapter.Send(context.Background(), gateway.Message{
		Action:     "ping",
		Parameters: map[string]any{"text": "hi"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	payload := result.(map[string]any)
	if payload["action"] != "ping" {
		t.Errorf("echoed action = %v, want ping", payload["action"])
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Resolve("nonexistent", nil)
	if !errors.Is(err, providers.ErrUnknownProvider) {
		t.Fatalf("error = %v, want ErrUnknownProvider", err)
	}
	if !strings.Contains(err.Error(), "echo") {
		t.Errorf("error should list available providers, got %q", err)
	}
}

func TestRegistry_AdapterUnavailable(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(providers.Descriptor{
		Name:      "broken",
		Kind:      "builtin",
		Available: false,
		New: func(cfg map[string]any) (ports.Adapter, error) {
			return nil, errors.New("missing dependency")
		},
	})

	_, err := r.Resolve("broken", nil)
	if !errors.Is(err, providers.ErrAdapterUnavailable) {
		t.Fatalf("error = %v, want ErrAdapterUnavailable", err)
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := newTestRegistry(t)
	r.Register(providers.Descriptor{Name: "zeta", Kind: "builtin", New: func(map[string]any) (ports.Adapter, error) { return providers.Echo{}, nil }})
	r.Register(providers.Descriptor{Name: "alpha", Kind: "builtin", New: func(map[string]any) (ports.Adapter, error) { return providers.Echo{}, nil }})

	names := r.Names()
	want := []string{"alpha", "echo", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistry_Describe(t *testing.T) {
	r := newTestRegistry(t)

	info := r.Describe()
	echo, ok := info["echo"]
	if !ok {
		t.Fatal("echo missing from Describe")
	}
	if !echo.Available || echo.Kind != "builtin" {
		t.Errorf("echo info = %+v", echo)
	}
}
