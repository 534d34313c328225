package browser

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/tera/terastream/capture"
)

// responseObserver pairs ResponseReceived with LoadingFinished and hands the
// body of every matching response to handle on a tracked goroutine.
type responseObserver struct {
	ctx      context.Context
	match    func(string) bool
	handle   func(capture.Response)
	body     func(proto.NetworkRequestID) (string, error)
	inflight *atomic.Int64

	// only touched from the event goroutine
	pending map[proto.NetworkRequestID]string
}

func newResponseObserver(
	ctx context.Context,
	match func(string) bool,
	handle func(capture.Response),
	body func(proto.NetworkRequestID) (string, error),
	inflight *atomic.Int64,
) *responseObserver {
	return &responseObserver{
		ctx:      ctx,
		match:    match,
		handle:   handle,
		body:     body,
		inflight: inflight,
		pending:  make(map[proto.NetworkRequestID]string),
	}
}

func (o *responseObserver) received(e *proto.NetworkResponseReceived) {
	if e.Response != nil && o.match(e.Response.URL) {
		o.pending[e.RequestID] = e.Response.URL
	}
}

// the body can only be read once loading is finished
func (o *responseObserver) finished(e *proto.NetworkLoadingFinished) {
	u, ok := o.pending[e.RequestID]
	if !ok {
		return
	}
	delete(o.pending, e.RequestID)

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Add(-1)
		body, err := o.body(e.RequestID)
		if err != nil {
			log.Debug().Err(err).Str("url", u).Msg("could not read response body")
			return
		}
		if o.ctx.Err() != nil {
			return
		}
		o.handle(capture.Response{URL: u, Body: body})
	}()
}

func (o *responseObserver) failed(e *proto.NetworkLoadingFailed) {
	delete(o.pending, e.RequestID)
}

// waitInflight reports whether every tracked handler finished before ctx was done.
func waitInflight(ctx context.Context, inflight *atomic.Int64) bool {
	for inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
	return true
}
