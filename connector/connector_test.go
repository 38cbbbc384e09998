package connector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnpush/agent/wallet"
)

type recordingListener struct {
	mu     sync.Mutex
	events []wallet.Event
}

func (l *recordingListener) OnEvent(e wallet.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func testConnectRequest() wallet.ConnectRequest {
	return wallet.ConnectRequest{
		Config:   wallet.Config{APIKey: "key", Network: "mainnet", WorkingDir: "/tmp/wallet"},
		Mnemonic: "abandon abandon about",
	}
}

func TestAcquireConnectsOnce(t *testing.T) {
	var connects int32
	api := &wallet.MockAPI{}

	registry := NewRegistry(func(ctx context.Context, req wallet.ConnectRequest) (wallet.APICalls, error) {
		atomic.AddInt32(&connects, 1)
		return api, nil
	})

	const workers = 10
	handles := make([]wallet.APICalls, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle, err := registry.Acquire(context.Background(), testConnectRequest(), &recordingListener{})
			require.NoError(t, err)
			handles[i] = handle
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&connects))
	for _, handle := range handles {
		assert.Same(t, api, handle)
	}
}

func TestAcquireReplacesForwardingTarget(t *testing.T) {
	api := &wallet.MockAPI{}
	registry := NewRegistry(func(ctx context.Context, req wallet.ConnectRequest) (wallet.APICalls, error) {
		return api, nil
	})

	first := &recordingListener{}
	_, err := registry.Acquire(context.Background(), testConnectRequest(), first)
	require.NoError(t, err)

	api.Emit(wallet.SyncedEvent{})
	assert.Equal(t, 1, first.count())

	second := &recordingListener{}
	_, err = registry.Acquire(context.Background(), testConnectRequest(), second)
	require.NoError(t, err)

	api.Emit(wallet.SyncedEvent{})
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestReleaseKeepsHandleConnected(t *testing.T) {
	var connects int32
	api := &wallet.MockAPI{}
	registry := NewRegistry(func(ctx context.Context, req wallet.ConnectRequest) (wallet.APICalls, error) {
		atomic.AddInt32(&connects, 1)
		return api, nil
	})

	listener := &recordingListener{}
	_, err := registry.Acquire(context.Background(), testConnectRequest(), listener)
	require.NoError(t, err)

	registry.Release()

	// released listener no longer sees events
	api.Emit(wallet.SyncedEvent{})
	assert.Equal(t, 0, listener.count())

	_, err = registry.Acquire(context.Background(), testConnectRequest(), listener)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&connects))
	assert.NotContains(t, api.Trace, "disconnect")
}

func TestAcquireFailureDoesNotPoisonRegistry(t *testing.T) {
	var connects int32
	api := &wallet.MockAPI{}
	registry := NewRegistry(func(ctx context.Context, req wallet.ConnectRequest) (wallet.APICalls, error) {
		if atomic.AddInt32(&connects, 1) == 1 {
			return nil, errors.New("sdk unavailable")
		}
		return api, nil
	})

	_, err := registry.Acquire(context.Background(), testConnectRequest(), &recordingListener{})
	require.Error(t, err)

	handle, err := registry.Acquire(context.Background(), testConnectRequest(), &recordingListener{})
	require.NoError(t, err)
	assert.Same(t, api, handle)
}

func TestDisconnectTearsDown(t *testing.T) {
	var connects int32
	api := &wallet.MockAPI{}
	registry := NewRegistry(func(ctx context.Context, req wallet.ConnectRequest) (wallet.APICalls, error) {
		atomic.AddInt32(&connects, 1)
		return api, nil
	})

	listener := &recordingListener{}
	_, err := registry.Acquire(context.Background(), testConnectRequest(), listener)
	require.NoError(t, err)

	registry.Disconnect()
	assert.Contains(t, api.Trace, "disconnect")

	api.Emit(wallet.SyncedEvent{})
	assert.Equal(t, 0, listener.count())

	// safe to call again
	registry.Disconnect()

	_, err = registry.Acquire(context.Background(), testConnectRequest(), listener)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&connects))
}
