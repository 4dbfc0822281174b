package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sietch-labs/sietch/pkg/types"
)

// fakeClient scripts the assistant transport.
type fakeClient struct {
	calls    atomic.Int64
	response string
	err      error
	delay    time.Duration
}

func (f *fakeClient) Complete(ctx context.Context, req Request) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.response, f.err
}

func testGateway(client AssistantClient, dialErr error) *Gateway {
	g := NewGateway(types.Config{}, client)
	g.dial = func(address string, timeout time.Duration) error { return dialErr }
	return g
}

func TestGateway_StartsOffline(t *testing.T) {
	g := testGateway(&fakeClient{}, nil)
	assert.Equal(t, StateOffline, g.State())
}

func TestSubmit_OfflineNoIO(t *testing.T) {
	client := &fakeClient{response: "hi"}
	g := testGateway(client, nil)

	_, err := g.Submit(context.Background(), Request{Prompt: "hello"}, time.Second)
	assert.ErrorIs(t, err, types.ErrUnavailable)
	assert.Zero(t, client.calls.Load(), "offline submit must not reach the transport")
}

func TestProbe_Transitions(t *testing.T) {
	g := testGateway(&fakeClient{}, nil)

	var seen []State
	g.OnTransition(func(s State) { seen = append(seen, s) })

	assert.Equal(t, StateOnline, g.Probe())
	assert.Equal(t, []State{StateProbing, StateOnline}, seen)

	// A failing probe drops the gateway back Offline.
	g.dial = func(string, time.Duration) error { return errors.New("unreachable") }
	assert.Equal(t, StateOffline, g.Probe())
	assert.Equal(t, StateOffline, g.State())
}

func TestProbe_Superseded(t *testing.T) {
	g := testGateway(&fakeClient{}, nil)

	release := make(chan error)
	g.dial = func(string, time.Duration) error { return <-release }

	first := make(chan State)
	go func() { first <- g.Probe() }()

	// Wait for the first probe to take ownership, then start a second
	// that settles Online before releasing the first with a failure.
	for g.State() != StateProbing {
		time.Sleep(time.Millisecond)
	}
	g.dial = func(string, time.Duration) error { return nil }
	assert.Equal(t, StateOnline, g.Probe())

	release <- errors.New("slow failure")
	<-first

	// The stale failure did not override the newer probe's outcome.
	assert.Equal(t, StateOnline, g.State())
}

func TestSubmit_Success(t *testing.T) {
	client := &fakeClient{response: "the spice must flow"}
	g := testGateway(client, nil)
	require.Equal(t, StateOnline, g.Probe())

	h, err := g.Submit(context.Background(), Request{Prompt: "spice?"}, time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID())

	result, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "the spice must flow", result)
	assert.Equal(t, StateOnline, g.State())
}

func TestSubmit_Timeout(t *testing.T) {
	client := &fakeClient{response: "late", delay: time.Second}
	g := testGateway(client, nil)
	require.Equal(t, StateOnline, g.Probe())

	h, err := g.Submit(context.Background(), Request{Prompt: "x"}, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = h.Result()
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Equal(t, StateOffline, g.State(), "timeout drops the gateway offline")
}

func TestSubmit_Cancel(t *testing.T) {
	client := &fakeClient{response: "never", delay: time.Second}
	g := testGateway(client, nil)
	require.Equal(t, StateOnline, g.Probe())

	h, err := g.Submit(context.Background(), Request{Prompt: "x"}, 10*time.Second)
	require.NoError(t, err)

	h.Cancel()
	_, err = h.Result()
	assert.ErrorIs(t, err, types.ErrCanceled)

	// Cancel is idempotent, including after completion.
	h.Cancel()
	h.Cancel()
	_, err = h.Result()
	assert.ErrorIs(t, err, types.ErrCanceled)

	// A caller's own cancel is not a transport failure.
	assert.Equal(t, StateOnline, g.State())
}

func TestSubmit_TransportFailureDropsOffline(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	g := testGateway(client, nil)
	require.Equal(t, StateOnline, g.Probe())

	h, err := g.Submit(context.Background(), Request{Prompt: "x"}, time.Second)
	require.NoError(t, err)

	_, err = h.Result()
	assert.ErrorIs(t, err, types.ErrRequestFailed)
	assert.Equal(t, StateOffline, g.State())

	// Follow-up submissions fail locally until the next probe.
	_, err = g.Submit(context.Background(), Request{Prompt: "x"}, time.Second)
	assert.ErrorIs(t, err, types.ErrUnavailable)
}

func TestSubmit_EmptyPrompt(t *testing.T) {
	g := testGateway(&fakeClient{}, nil)
	require.Equal(t, StateOnline, g.Probe())

	_, err := g.Submit(context.Background(), Request{}, time.Second)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}
