package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"

	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/reply"
	"github.com/lnpush/agent/wallet"
)

type lnurlInfoRequest struct {
	CallbackURL string `json:"callback_url"`
	ReplyURL    string `json:"reply_url"`
}

// lnurlPayInfoResponse follows the LUD-06 payRequest base specification:
// https://github.com/lnurl/luds/blob/luds/06.md
type lnurlPayInfoResponse struct {
	Callback    string `json:"callback"`
	MaxSendable uint64 `json:"maxSendable"`
	MinSendable uint64 `json:"minSendable"`
	Metadata    string `json:"metadata"`
	Tag         string `json:"tag"`
}

func metadataString(label string) string {
	return fmt.Sprintf("[[\"text/plain\",\"%s\"]]", label)
}

// lnurlPayInfoJob serves the LNURL-pay info step from the current receive
// limits. Fully synchronous.
type lnurlPayInfoJob struct {
	*reporter
	payload string
}

func newLnurlPayInfoJob(payload string, deps Deps) *lnurlPayInfoJob {
	return &lnurlPayInfoJob{reporter: newReporter(TypeLnurlPayInfo, deps), payload: payload}
}

func (j *lnurlPayInfoJob) Start(ctx context.Context, handle wallet.APICalls) {
	defer j.deps.Metrics.JobTimer(TypeLnurlPayInfo)()
	j.setState(Running)

	var req lnurlInfoRequest
	if err := json.Unmarshal([]byte(j.payload), &req); err != nil || req.CallbackURL == "" || req.ReplyURL == "" {
		glog.Warningf("Bad lnurl info payload %s: %v", truncatePayload(j.payload), err)
		j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
		j.finish(Failed)
		return
	}

	limits, err := handle.FetchLightningLimits(ctx)
	if err != nil {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("failed to fetch limits: %v", err))
		return
	}

	// Min and max millisatoshi amounts the service is willing to receive.
	// The minimum can not be less than 1 or more than the maximum.
	minSendableMsat := limits.Receive.MinSat * 1000
	maxSendableMsat := limits.Receive.MaxSat * 1000
	if minSendableMsat < 1 || minSendableMsat > maxSendableMsat {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("%v: minimum sendable amount is invalid", ErrInvalidAmount))
		return
	}

	ok := j.replyJSON(ctx, req.ReplyURL, lnurlPayInfoResponse{
		Callback:    req.CallbackURL,
		MaxSendable: maxSendableMsat,
		MinSendable: minSendableMsat,
		Metadata:    metadataString(j.deps.payLabel()),
		Tag:         "payRequest",
	}, reply.CacheMaxAgeDay)

	if ok {
		j.notifyOnce(titleLnurlPayInfo, "", notify.ThreadReplaceable)
	} else {
		j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
	}
	j.finish(Completed)
}

func (j *lnurlPayInfoJob) fail(ctx context.Context, replyURL, reason string) {
	glog.Warningf("Failed to process lnurl info: %s", reason)
	j.replyError(ctx, replyURL, reason)
	j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
	j.finish(Failed)
}

func (j *lnurlPayInfoJob) OnEvent(e wallet.Event) {}

func (j *lnurlPayInfoJob) OnShutdown() {
	j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
	j.finish(ShutDown)
}
