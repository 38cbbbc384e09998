package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/golang/glog"

	"github.com/lnpush/agent/connector"
	"github.com/lnpush/agent/jobs"
	"github.com/lnpush/agent/wallet"
)

// DefaultTimeout is the hard execution budget of one message, matching the
// window a mobile push handler gets before the platform kills it
const DefaultTimeout = 3 * time.Minute

// Message is one push delivery: a job type discriminator and its opaque
// job-specific JSON payload
type Message struct {
	Type    string `json:"notification_type"`
	Payload string `json:"notification_payload"`
}

// ConnectRequestProvider supplies the SDK credentials, implemented by the host
type ConnectRequestProvider func() (wallet.ConnectRequest, error)

// Settings struct
type Settings struct {
	Timeout time.Duration
}

// Service runs one job per delivered message under the hard deadline and
// guarantees the terminal notification contract either way: natural
// completion or the shutdown path.
type Service struct {
	registry       *connector.Registry
	deps           jobs.Deps
	connectRequest ConnectRequestProvider
	timeout        time.Duration
	block          *messageBlock
	inflight       sync.WaitGroup
}

// NewService constructs a new Service
func NewService(registry *connector.Registry, deps jobs.Deps, connectRequest ConnectRequestProvider, settings Settings) *Service {
	timeout := settings.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Service{
		registry:       registry,
		deps:           deps,
		connectRequest: connectRequest,
		timeout:        timeout,
		block:          newMessageBlock(),
	}
}

// HandleMessage processes one delivered message to its terminal state. The
// returned error reports why no job ran (unknown type, duplicate delivery,
// connect failure); job level failures are fully handled inside the job and
// yield nil here.
func (s *Service) HandleMessage(ctx context.Context, msg Message) error {
	key := wallet.HashID(msg.Type + "|" + msg.Payload)
	if !s.block.Enter(key) {
		glog.Warningf("Message %s of type %s is already being processed", key, msg.Type)
		return fmt.Errorf("duplicate in-flight message of type %s", msg.Type)
	}
	defer s.block.Release(key)

	s.inflight.Add(1)
	defer s.inflight.Done()

	glog.Infof("Handling message type %s", msg.Type)

	job, err := jobs.Build(msg.Type, msg.Payload, s.deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := s.connectRequest()
	if err != nil {
		job.OnShutdown()
		return fmt.Errorf("no connect request available: %w", err)
	}

	handle, err := s.registry.Acquire(ctx, req, job)
	if err != nil {
		sentry.CaptureException(err)
		// the deadline path still owes the user a notification
		job.OnShutdown()
		return err
	}
	defer s.registry.Release()

	job.Start(ctx, handle)

	select {
	case <-job.Done():
		glog.V(1).Infof("Job %s reached state %s", msg.Type, job.State())
	case <-ctx.Done():
		glog.Warningf("Deadline reached for job %s, shutting it down", msg.Type)
		job.OnShutdown()
	}

	return nil
}

// Shutdown waits for in-flight messages, then stops the plugins and
// disconnects the SDK handle. Every message finishes within its own deadline
// so the wait is bounded.
func (s *Service) Shutdown() {
	s.inflight.Wait()

	if s.deps.Plugins != nil {
		s.deps.Plugins.Shutdown()
	}
	s.registry.Disconnect()
}
