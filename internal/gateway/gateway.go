// Package gateway tracks whether the remote assistant is reachable and
// mediates every outbound request. It starts Offline and only leaves
// that state through an explicit probe; while Offline, submissions fail
// locally with ErrUnavailable and no network I/O happens. The gateway
// never touches the store.
//
// See docs/ARCHITECTURE.md § Online-Capability Gateway.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sietch-labs/sietch/pkg/types"
)

// State is the gateway's availability state.
type State string

const (
	StateOffline State = "offline"
	StateProbing State = "probing"
	StateOnline  State = "online"
)

// Request is one assistant submission.
type Request struct {
	System string // optional system framing
	Prompt string
}

// AssistantClient is the remote transport. Implementations must honor
// ctx cancellation and deadlines.
type AssistantClient interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// dialFunc probes reachability. Swappable in tests.
type dialFunc func(address string, timeout time.Duration) error

// Gateway is the availability state machine plus request mediator.
type Gateway struct {
	mu      sync.Mutex
	state   State
	gen     uint64 // probe generation; stale probes do not apply
	hook    func(State)
	client  AssistantClient
	dial    dialFunc
	address string
	timeout time.Duration
}

// NewGateway returns an Offline gateway probing config's address with
// config's timeout. client may be nil until SetClient.
func NewGateway(config types.Config, client AssistantClient) *Gateway {
	return &Gateway{
		state:   StateOffline,
		client:  client,
		dial:    tcpDial,
		address: config.ProbeAddress(),
		timeout: time.Duration(config.ProbeTimeoutSeconds()) * time.Second,
	}
}

func tcpDial(address string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// State returns the current availability state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// OnTransition registers a hook invoked after every state change, with
// the gateway lock released. One hook; later calls replace it.
func (g *Gateway) OnTransition(hook func(State)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hook = hook
}

// setState transitions and fires the hook. Callers hold the lock; the
// hook runs without it so it may call back into the gateway.
func (g *Gateway) setState(next State) {
	if g.state == next {
		return
	}
	g.state = next
	hook := g.hook
	if hook != nil {
		g.mu.Unlock()
		hook(next)
		g.mu.Lock()
	}
}

// Probe checks reachability with one bounded dial and moves the
// gateway Online or Offline on the outcome. A probe that another probe
// supersedes while in flight discards its result. Returns the state
// after this probe settles.
func (g *Gateway) Probe() State {
	g.mu.Lock()
	g.gen++
	gen := g.gen
	g.setState(StateProbing)
	dial, address, timeout := g.dial, g.address, g.timeout
	g.mu.Unlock()

	err := dial(address, timeout)

	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		// A newer probe owns the outcome.
		return g.state
	}
	if err != nil {
		g.setState(StateOffline)
	} else {
		g.setState(StateOnline)
	}
	return g.state
}

// Handle tracks one in-flight submission.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	result string
	err    error
}

// ID returns the submission's unique identifier.
func (h *Handle) ID() string { return h.id }

// Cancel aborts the submission. Idempotent; canceling a completed
// submission is a no-op. The outcome is observable through Result as
// soon as the request goroutine yields.
func (h *Handle) Cancel() { h.cancel() }

// Done closes when the submission settles.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result blocks until the submission settles and returns its outcome:
// the response text, or ErrTimeout, ErrCanceled, or ErrRequestFailed.
func (h *Handle) Result() (string, error) {
	<-h.done
	return h.result, h.err
}

// Submit dispatches a request to the assistant with an overall
// timeout. While the gateway is not Online it fails immediately with
// ErrUnavailable and performs no network I/O. A transport failure
// (other than the caller's own cancel) drops the gateway Offline.
func (g *Gateway) Submit(ctx context.Context, req Request, timeout time.Duration) (*Handle, error) {
	g.mu.Lock()
	if g.state != StateOnline {
		g.mu.Unlock()
		return nil, types.ErrUnavailable
	}
	client := g.client
	g.mu.Unlock()

	if client == nil {
		return nil, fmt.Errorf("%w: no assistant client configured", types.ErrRequestFailed)
	}
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", types.ErrInvalidData)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	h := &Handle{
		id:     newRequestID(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		defer close(h.done)

		result, err := client.Complete(reqCtx, req)
		if err == nil {
			h.result = result
			return
		}
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			h.err = fmt.Errorf("%w after %s", types.ErrTimeout, timeout)
			g.drop()
		case errors.Is(err, context.Canceled):
			h.err = types.ErrCanceled
		default:
			h.err = fmt.Errorf("%w: %v", types.ErrRequestFailed, err)
			g.drop()
		}
	}()
	return h, nil
}

// drop moves the gateway Offline after a transport failure.
func (g *Gateway) drop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setState(StateOffline)
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
