package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/tera/terastream/capture"
	"github.com/tera/terastream/types"
)

const sharePage = `<html><body>
<button class="video-play-btn">play</button>
<script>
fetch('/share/streaming?uk=1&sign=ab').then(r => r.text());
fetch('/share/streaming/broken').catch(() => {});
fetch('/static/app.js');
</script>
</body></html>`

func newShareServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, sharePage)
	})
	mux.HandleFunc("/share/streaming", func(w http.ResponseWriter, r *http.Request) {
		// slower than the page so settle has something to wait for
		time.Sleep(200 * time.Millisecond)
		lang := ""
		if c, err := r.Cookie("lang"); err == nil {
			lang = c.Value
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsToken":"AB","lang":%q}`, lang)
	})
	mux.HandleFunc("/share/streaming/broken", func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	})
	mux.HandleFunc("/static/app.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "var x = 1;")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func launchForTest(t *testing.T) *rodSession {
	t.Helper()
	if testing.Short() {
		t.Skip("launches a real browser")
	}
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no chromium installed")
	}

	cookies := []types.Cookie{{Name: "lang", Value: "en", Domain: "127.0.0.1", Path: "/"}}
	session, err := NewRodLauncher(true, bin, 500*time.Millisecond).Launch(context.Background(), cookies)
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session.(*rodSession)
}

func TestRodSessionObserve(t *testing.T) {
	srv := newShareServer(t)
	s := launchForTest(t)

	rec := &recorder{}
	stop := s.Observe(matchStreaming, rec.handle)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	s.Settle(ctx, 5*time.Second)

	got := rec.responses()
	if len(got) != 1 {
		t.Fatalf("observed %d responses, want 1: %+v", len(got), got)
	}
	if !strings.HasSuffix(got[0].URL, "/share/streaming?uk=1&sign=ab") {
		t.Errorf("unexpected url %s", got[0].URL)
	}
	if got[0].Body != `{"jsToken":"AB","lang":"en"}` {
		t.Errorf("unexpected body %s", got[0].Body)
	}
	if n := s.inflight.Load(); n != 0 {
		t.Errorf("inflight = %d after settle, want 0", n)
	}

	// feeding the interceptor gives the accumulator the body values
	acc := capture.NewAccumulator()
	capture.NewInterceptor(acc).Handle(got[0])
	if v, _ := acc.Get(types.ParamSign); v != "ab" {
		t.Errorf("sign = %q, want ab", v)
	}

	if err := s.Click(ctx, `button[class*="video-play-btn"]`); err != nil {
		t.Errorf("Click() error: %v", err)
	}
	html, err := s.HTML(ctx)
	if err != nil || !strings.Contains(html, "video-play-btn") {
		t.Errorf("HTML() = %q, %v", html, err)
	}
}

func TestRodSessionStopDropsLateResponses(t *testing.T) {
	srv := newShareServer(t)
	s := launchForTest(t)

	rec := &recorder{}
	stop := s.Observe(matchStreaming, rec.handle)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	s.Settle(ctx, 5*time.Second)
	before := len(rec.responses())

	stop()
	if _, err := s.page.Context(ctx).Eval(`() => fetch('/share/streaming?uk=2').then(r => r.text())`); err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	s.Settle(ctx, 2*time.Second)

	if after := len(rec.responses()); after != before {
		t.Errorf("observed %d responses after stop, want %d", after, before)
	}
}
