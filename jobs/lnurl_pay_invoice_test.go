package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnpush/agent/connector"
	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/wallet"
)

func TestLnurlPayInvoiceSuccess(t *testing.T) {
	deps, sink, recorder := newTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.ReceivePaymentFunc = func(ctx context.Context, req *wallet.ReceivePaymentRequest) (*wallet.ReceivePaymentResponse, error) {
		assert.True(t, req.UseDescriptionHash)
		assert.Equal(t, `[["text/plain","Pay with LNURL"]]`, req.Description)
		assert.Equal(t, "thanks", req.PayerNote)
		return &wallet.ReceivePaymentResponse{Destination: "lnbc1invoice"}, nil
	}

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"comment":"thanks","reply_url":"https://x/reply"}`, deps)
	job.Start(context.Background(), api)

	assert.Equal(t, Completed, job.State())
	assert.Contains(t, api.Trace, "preparereceivepayment2000")

	replies := recorder.all()
	require.Len(t, replies, 1)
	var resp lnurlPayInvoiceResponse
	decodeReply(t, replies[0].Body, &resp)
	assert.Equal(t, "lnbc1invoice", resp.Pr)
	assert.Equal(t, []string{}, resp.Routes)
	assert.Nil(t, resp.Verify)

	shown := sink.Shown()
	require.Len(t, shown, 1)
	assert.Equal(t, titleLnurlPayInvoice, shown[0].Title)
}

func TestLnurlPayInvoiceVerifyURL(t *testing.T) {
	deps, _, recorder := newTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.ParseInputFunc = func(ctx context.Context, input string) (wallet.InputType, error) {
		return wallet.Bolt11Input{Bolt11: input, PaymentHash: "cafebabe"}, nil
	}

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"reply_url":"https://x/reply","verify_url":"https://x/verify/{payment_hash}"}`, deps)
	job.Start(context.Background(), api)

	var resp lnurlPayInvoiceResponse
	decodeReply(t, recorder.all()[0].Body, &resp)
	require.NotNil(t, resp.Verify)
	assert.Equal(t, "https://x/verify/cafebabe", *resp.Verify)
}

func TestLnurlPayInvoiceVerifyURLParseFailureDropsField(t *testing.T) {
	deps, _, recorder := newTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.ParseInputFunc = func(ctx context.Context, input string) (wallet.InputType, error) {
		return wallet.Bolt12OfferInput{Offer: input}, nil
	}

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"reply_url":"https://x/reply","verify_url":"https://x/verify/{payment_hash}"}`, deps)
	job.Start(context.Background(), api)

	assert.Equal(t, Completed, job.State())
	var resp lnurlPayInvoiceResponse
	decodeReply(t, recorder.all()[0].Body, &resp)
	assert.Nil(t, resp.Verify)
}

func TestLnurlPayInvoiceAmountOutsideLimits(t *testing.T) {
	tests := []struct {
		name       string
		amountMsat string
	}{
		{"below minimum", `999999`},   // 999 sat < 1000 sat minimum
		{"above maximum", `25000001000`}, // 25_000_001 sat > maximum
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, sink, recorder := newTestDeps()
			api := limitsAPI(1000, 25_000_000)

			job := newLnurlPayInvoiceJob(`{"amount":`+tt.amountMsat+`,"reply_url":"https://x/reply"}`, deps)
			job.Start(context.Background(), api)

			assert.Equal(t, Failed, job.State())
			assert.NotContains(t, api.Trace, "preparereceivepayment")

			replies := recorder.all()
			require.Len(t, replies, 1)
			var resp lnurlErrorResponse
			decodeReply(t, replies[0].Body, &resp)
			assert.Equal(t, "ERROR", resp.Status)
			assert.Contains(t, resp.Reason, "invalid amount requested")

			require.Len(t, sink.Shown(), 1)
		})
	}
}

func TestLnurlPayInvoiceCommentTooLong(t *testing.T) {
	deps, _, recorder := newTestDeps()
	api := limitsAPI(1000, 25_000_000)

	comment := strings.Repeat("a", CommentMaxLength+1)
	job := newLnurlPayInvoiceJob(`{"amount":2000000,"comment":"`+comment+`","reply_url":"https://x/reply"}`, deps)
	job.Start(context.Background(), api)

	assert.Equal(t, Failed, job.State())

	var resp lnurlErrorResponse
	decodeReply(t, recorder.all()[0].Body, &resp)
	assert.Contains(t, resp.Reason, "comment is too long")
}

func TestLnurlPayInvoiceZeroAmountRepliesError(t *testing.T) {
	deps, sink, recorder := newTestDeps()
	api := limitsAPI(1000, 25_000_000)

	job := newLnurlPayInvoiceJob(`{"amount":0,"reply_url":"https://x/reply"}`, deps)
	job.Start(context.Background(), api)

	assert.Equal(t, Failed, job.State())
	assert.NotContains(t, api.Trace, "preparereceivepayment")

	replies := recorder.all()
	require.Len(t, replies, 1)
	var resp lnurlErrorResponse
	decodeReply(t, replies[0].Body, &resp)
	assert.Equal(t, "ERROR", resp.Status)
	assert.Contains(t, resp.Reason, "invalid amount requested 0")

	require.Len(t, sink.Shown(), 1)
}

func TestLnurlPayInvoiceDecodeErrorMakesNoSdkCalls(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"amount":2000000,`},
		{"missing reply url", `{"amount":2000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, sink, recorder := newTestDeps()
			api := limitsAPI(1000, 25_000_000)

			job := newLnurlPayInvoiceJob(tt.payload, deps)
			job.Start(context.Background(), api)

			assert.Equal(t, Failed, job.State())
			assert.Empty(t, api.Trace)
			assert.Empty(t, recorder.all())
			assert.Len(t, sink.Shown(), 1)
		})
	}
}

func newZapTestDeps() (Deps, *wallet.MockNwcService, *notify.MemorySink, *replyRecorder) {
	deps, sink, recorder := newTestDeps()
	nwc := &wallet.MockNwcService{}
	deps.PluginConfigs = connector.PluginConfigs{Nwc: &wallet.NwcConfig{}}
	return deps, nwc, sink, recorder
}

func TestLnurlPayInvoiceZapWaitsForReceipt(t *testing.T) {
	deps, nwc, sink, recorder := newZapTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.Nwc = nwc

	tracked := make(chan string, 1)
	nwc.TrackZapFunc = func(invoice, zapRequest string) error {
		assert.Equal(t, `{"kind":9734}`, zapRequest)
		tracked <- invoice
		return nil
	}

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"reply_url":"https://x/reply","nostr":"{\"kind\":9734}"}`, deps)
	job.Start(context.Background(), api)

	require.Len(t, recorder.all(), 1)
	invoice := <-tracked
	assert.Equal(t, AwaitingEvent, job.State())

	nwc.Emit(wallet.NwcEvent{Details: wallet.NwcZapReceived{Invoice: "lnbc1other"}})
	assert.Equal(t, AwaitingEvent, job.State())

	nwc.Emit(wallet.NwcEvent{Details: wallet.NwcZapReceived{Invoice: invoice}})
	waitDone(t, job)
	assert.Equal(t, Completed, job.State())

	// invoice delivery already produced the one notification
	assert.Len(t, sink.Removed(), 1)
}

func TestLnurlPayInvoiceZapTimeoutCompletes(t *testing.T) {
	deps, nwc, _, recorder := newZapTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.Nwc = nwc

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"reply_url":"https://x/reply","nostr":"{\"kind\":9734}"}`, deps)
	job.zapTimeout = 10 * time.Millisecond
	job.Start(context.Background(), api)

	require.Len(t, recorder.all(), 1)
	waitDone(t, job)
	assert.Equal(t, Completed, job.State())
}

func TestLnurlPayInvoiceZapTrackFailureCompletes(t *testing.T) {
	deps, nwc, _, recorder := newZapTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.Nwc = nwc
	nwc.TrackZapFunc = func(invoice, zapRequest string) error {
		return errors.New("relay gone")
	}

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"reply_url":"https://x/reply","nostr":"{\"kind\":9734}"}`, deps)
	job.Start(context.Background(), api)

	require.Len(t, recorder.all(), 1)
	assert.Equal(t, Completed, job.State())
	assert.Contains(t, nwc.Trace, "trackzap")
}

func TestLnurlPayInvoiceNoNostrSkipsZapTracking(t *testing.T) {
	deps, nwc, _, _ := newZapTestDeps()
	api := limitsAPI(1000, 25_000_000)
	api.Nwc = nwc

	job := newLnurlPayInvoiceJob(`{"amount":2000000,"reply_url":"https://x/reply"}`, deps)
	job.Start(context.Background(), api)

	assert.Equal(t, Completed, job.State())
	assert.NotContains(t, nwc.Trace, "trackzap")
}
