package connector

import (
	"context"
	"fmt"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/golang/glog"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/lnpush/agent/wallet"
)

// forwardingListener is the single listener installed on the SDK handle. It
// forwards events to the currently registered target, at most one at a time.
type forwardingListener struct {
	mu     sync.Mutex
	target wallet.EventListener
}

func (f *forwardingListener) OnEvent(e wallet.Event) {
	f.mu.Lock()
	target := f.target
	f.mu.Unlock()
	if target != nil {
		target.OnEvent(e)
	}
}

func (f *forwardingListener) setTarget(target wallet.EventListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.target = target
}

// Registry owns the process-wide SDK handle. All access to the handle and its
// forwarding listener goes through the registry mutex, so concurrent Acquire
// calls run the underlying connect at most once.
type Registry struct {
	mu         sync.Mutex
	connect    wallet.NewAPICall
	handle     wallet.APICalls
	forward    *forwardingListener
	configHash uint64
}

// NewRegistry constructs a new Registry using connect to reach the SDK
func NewRegistry(connect wallet.NewAPICall) *Registry {
	return &Registry{connect: connect}
}

// Acquire returns the live SDK handle, connecting on first use. The caller's
// listener becomes the current forwarding target, replacing any previous one.
func (r *Registry) Acquire(ctx context.Context, req wallet.ConnectRequest, listener wallet.EventListener) (wallet.APICalls, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		glog.V(1).Info("Connecting to wallet SDK")
		handle, err := r.connect(ctx, req)
		if err != nil {
			sentry.CaptureException(err)
			return nil, fmt.Errorf("sdk connect failed: %w", err)
		}

		forward := &forwardingListener{}
		if err := handle.AddEventListener(forward); err != nil {
			sentry.CaptureException(err)
			return nil, fmt.Errorf("could not install event listener: %w", err)
		}

		r.handle = handle
		r.forward = forward
		r.configHash = hashConfig(req.Config)
		glog.V(1).Info("Connected to wallet SDK")
	} else {
		glog.V(2).Info("Already connected to wallet SDK")
		if hash := hashConfig(req.Config); hash != r.configHash {
			glog.Warningf("Acquire with different config than the live connection (hash %d vs %d)", hash, r.configHash)
		}
	}

	r.forward.setTarget(listener)

	return r.handle, nil
}

// Release drops the forwarding target. The underlying handle stays connected
// so a warm process can reuse it.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forward != nil {
		r.forward.setTarget(nil)
	}
}

// Disconnect tears down the handle completely
func (r *Registry) Disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return
	}

	if r.forward != nil {
		r.forward.setTarget(nil)
	}

	if err := r.handle.Disconnect(); err != nil {
		glog.Warningf("Disconnect failed: %v", err)
	}

	r.handle = nil
	r.forward = nil
	r.configHash = 0
}

func hashConfig(cfg wallet.Config) uint64 {
	hash, err := hashstructure.Hash(cfg, hashstructure.FormatV2, nil)
	if err != nil {
		// hashstructure only fails on unsupported types
		glog.Warningf("Could not hash config: %v", err)
		return 0
	}
	return hash
}
