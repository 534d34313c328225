package browser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/google/go-cmp/cmp"

	"github.com/tera/terastream/capture"
)

type recorder struct {
	mu  sync.Mutex
	got []capture.Response
}

func (r *recorder) handle(resp capture.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, resp)
}

func (r *recorder) responses() []capture.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capture.Response(nil), r.got...)
}

func matchStreaming(u string) bool { return strings.Contains(u, "/share/streaming") }

func received(id, url string) *proto.NetworkResponseReceived {
	return &proto.NetworkResponseReceived{
		RequestID: proto.NetworkRequestID(id),
		Response:  &proto.NetworkResponse{URL: url},
	}
}

func finished(id string) *proto.NetworkLoadingFinished {
	return &proto.NetworkLoadingFinished{RequestID: proto.NetworkRequestID(id)}
}

func drain(t *testing.T, inflight *atomic.Int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !waitInflight(ctx, inflight) {
		t.Fatalf("handlers still running: %d", inflight.Load())
	}
}

func TestObserverDeliversFinishedResponses(t *testing.T) {
	var inflight atomic.Int64
	rec := &recorder{}
	bodies := map[proto.NetworkRequestID]string{"1": `{"jsToken":"AB"}`}
	body := func(id proto.NetworkRequestID) (string, error) { return bodies[id], nil }

	o := newResponseObserver(context.Background(), matchStreaming, rec.handle, body, &inflight)
	o.received(received("1", "https://x/share/streaming?uk=1&sign=ab"))
	o.received(received("2", "https://x/static/app.js"))

	// nothing is handed out before loading finished
	if len(o.pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(o.pending))
	}
	o.finished(finished("2"))
	o.finished(finished("1"))
	drain(t, &inflight)

	want := []capture.Response{{URL: "https://x/share/streaming?uk=1&sign=ab", Body: `{"jsToken":"AB"}`}}
	if diff := cmp.Diff(want, rec.responses()); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
	if len(o.pending) != 0 {
		t.Errorf("pending = %d after finish, want 0", len(o.pending))
	}

	// a repeated finish for the same request is ignored
	o.finished(finished("1"))
	drain(t, &inflight)
	if got := len(rec.responses()); got != 1 {
		t.Errorf("handled %d responses, want 1", got)
	}
}

func TestObserverDropsFailedRequests(t *testing.T) {
	var inflight atomic.Int64
	rec := &recorder{}
	body := func(proto.NetworkRequestID) (string, error) { return "uk=1", nil }

	o := newResponseObserver(context.Background(), matchStreaming, rec.handle, body, &inflight)
	o.received(received("1", "https://x/share/streaming?uk=1"))
	o.failed(&proto.NetworkLoadingFailed{RequestID: "1"})
	o.finished(finished("1"))
	drain(t, &inflight)

	if len(o.pending) != 0 {
		t.Errorf("pending = %d, want 0", len(o.pending))
	}
	if got := rec.responses(); len(got) != 0 {
		t.Errorf("failed request was handled: %+v", got)
	}
}

func TestObserverSkipsBodyErrors(t *testing.T) {
	var inflight atomic.Int64
	rec := &recorder{}
	body := func(proto.NetworkRequestID) (string, error) {
		return "", errors.New("No resource with given identifier found")
	}

	o := newResponseObserver(context.Background(), matchStreaming, rec.handle, body, &inflight)
	o.received(received("1", "https://x/share/streaming?uk=1"))
	o.finished(finished("1"))
	drain(t, &inflight)

	if got := rec.responses(); len(got) != 0 {
		t.Errorf("unreadable body was handled: %+v", got)
	}
}

func TestObserverDropsBodiesAfterStop(t *testing.T) {
	var inflight atomic.Int64
	rec := &recorder{}
	ctx, stop := context.WithCancel(context.Background())

	release := make(chan struct{})
	body := func(proto.NetworkRequestID) (string, error) {
		<-release
		return "sign=late", nil
	}

	o := newResponseObserver(ctx, matchStreaming, rec.handle, body, &inflight)
	o.received(received("1", "https://x/share/streaming?sign=late"))
	o.finished(finished("1"))
	if inflight.Load() != 1 {
		t.Fatalf("inflight = %d, want 1", inflight.Load())
	}

	stop()
	close(release)
	drain(t, &inflight)

	if got := rec.responses(); len(got) != 0 {
		t.Errorf("response after stop was handled: %+v", got)
	}
}

func TestWaitInflight(t *testing.T) {
	t.Run("drained", func(t *testing.T) {
		var inflight atomic.Int64
		inflight.Add(1)
		go func() {
			time.Sleep(50 * time.Millisecond)
			inflight.Add(-1)
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if !waitInflight(ctx, &inflight) {
			t.Error("waitInflight() = false, want true")
		}
	})

	t.Run("bounded", func(t *testing.T) {
		var inflight atomic.Int64
		inflight.Add(1)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		if waitInflight(ctx, &inflight) {
			t.Error("waitInflight() = true with a stuck handler")
		}
		if took := time.Since(start); took > time.Second {
			t.Errorf("waitInflight() took %v, should stop at the deadline", took)
		}
	})
}
