package jobs

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lnpush/agent/connector"
	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/reply"
)

type capturedReply struct {
	URL          string
	Body         string
	CacheControl string
}

type replyRecorder struct {
	mu      sync.Mutex
	replies []capturedReply
	status  int
}

func (r *replyRecorder) do(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	r.replies = append(r.replies, capturedReply{
		URL:          req.URL.String(),
		Body:         string(body),
		CacheControl: req.Header.Get("Cache-Control"),
	})
	status := r.status
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (r *replyRecorder) all() []capturedReply {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]capturedReply, len(r.replies))
	copy(out, r.replies)
	return out
}

func newTestDeps() (Deps, *notify.MemorySink, *replyRecorder) {
	sink := &notify.MemorySink{}
	recorder := &replyRecorder{}

	sender := reply.NewSender()
	sender.DoFunc = recorder.do

	deps := Deps{
		Reply:   sender,
		Notify:  notify.NewNotifier(sink),
		Plugins: connector.NewPlugins(),
	}
	return deps, sink, recorder
}

func decodeReply(t *testing.T, body string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), v))
}
