package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"

	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/wallet"
)

type invoiceRequestRequest struct {
	Offer          string `json:"offer"`
	InvoiceRequest string `json:"invoice_request"`
	ReplyURL       string `json:"reply_url"`
}

type invoiceRequestResponse struct {
	Invoice string `json:"invoice"`
}

type invoiceErrorResponse struct {
	Error string `json:"error"`
}

// invoiceRequestJob answers a BOLT12 invoice request: one SDK call, one
// reply, one notification. Fully synchronous.
type invoiceRequestJob struct {
	*reporter
	payload string
}

func newInvoiceRequestJob(payload string, deps Deps) *invoiceRequestJob {
	return &invoiceRequestJob{reporter: newReporter(TypeInvoiceRequest, deps), payload: payload}
}

func (j *invoiceRequestJob) Start(ctx context.Context, handle wallet.APICalls) {
	defer j.deps.Metrics.JobTimer(TypeInvoiceRequest)()
	j.setState(Running)

	var req invoiceRequestRequest
	if err := json.Unmarshal([]byte(j.payload), &req); err != nil || req.Offer == "" || req.InvoiceRequest == "" || req.ReplyURL == "" {
		glog.Warningf("Bad invoice request payload %s: %v", truncatePayload(j.payload), err)
		j.notifyOnce(titleInvoiceRequestFailure, "", notify.ThreadReplaceable)
		j.finish(Failed)
		return
	}

	resp, err := handle.CreateBolt12Invoice(ctx, &wallet.CreateBolt12InvoiceRequest{
		Offer:          req.Offer,
		InvoiceRequest: req.InvoiceRequest,
	})
	if err != nil {
		glog.Warningf("Failed to process invoice request: %v", err)
		j.replyJSON(ctx, req.ReplyURL, invoiceErrorResponse{Error: fmt.Sprintf("failed to create invoice: %v", err)}, 0)
		j.notifyOnce(titleInvoiceRequestFailure, "", notify.ThreadReplaceable)
		j.finish(Failed)
		return
	}

	ok := j.replyJSON(ctx, req.ReplyURL, invoiceRequestResponse{Invoice: resp.Invoice}, 0)
	if ok {
		j.notifyOnce(titleInvoiceRequest, "", notify.ThreadReplaceable)
	} else {
		j.notifyOnce(titleInvoiceRequestFailure, "", notify.ThreadReplaceable)
	}
	j.finish(Completed)
}

func (j *invoiceRequestJob) OnEvent(e wallet.Event) {}

func (j *invoiceRequestJob) OnShutdown() {
	j.notifyOnce(titleInvoiceRequestFailure, "", notify.ThreadReplaceable)
	j.finish(ShutDown)
}
