package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/tera/terastream/capture"
	"github.com/tera/terastream/types"
)

type RodLauncher struct {
	Headless bool
	// Bin is the chromium binary, empty lets rod find or download one.
	Bin string
	// Idle is how long the network must stay quiet for Settle.
	Idle time.Duration
}

func NewRodLauncher(headless bool, bin string, idle time.Duration) *RodLauncher {
	return &RodLauncher{Headless: headless, Bin: bin, Idle: idle}
}

func (r *RodLauncher) Launch(ctx context.Context, cookies []types.Cookie) (Session, error) {
	l := launcher.New().
		Headless(r.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("no-zygote").
		Set("disable-dev-shm-usage")
	if r.Bin != "" {
		l = l.Bin(r.Bin)
	}

	s := &rodSession{idle: r.Idle}
	fail := func(op string, err error) (Session, error) {
		_ = s.Close()
		return nil, &LaunchError{Op: op, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail("launch", err)
	}
	u, err := l.Launch()
	if err != nil {
		return fail("launch", err)
	}
	// a launcher that never started must not be cleaned up, Cleanup waits for its exit
	s.launcher = l

	root := rod.New().ControlURL(u)
	if err := root.Connect(); err != nil {
		return fail("connect", err)
	}
	s.root = root

	incognito, err := root.Incognito()
	if err != nil {
		return fail("incognito", err)
	}
	s.incognito = incognito

	page, err := stealth.Page(incognito)
	if err != nil {
		return fail("page", err)
	}
	s.page = page

	if len(cookies) > 0 {
		if err := page.SetCookies(cookieParams(cookies)); err != nil {
			return fail("cookies", err)
		}
	}

	log.Debug().Int("cookies", len(cookies)).Bool("headless", r.Headless).Msg("browser session ready")
	return s, nil
}

func cookieParams(cookies []types.Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return params
}

type rodSession struct {
	launcher  *launcher.Launcher
	root      *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	idle      time.Duration

	// response bodies still being fetched or handled
	inflight atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

func (s *rodSession) Observe(match func(string) bool, handle func(capture.Response)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		log.Warn().Err(err).Msg("enabling network events failed, responses may be missed")
	}

	o := newResponseObserver(ctx, match, handle, s.responseBody, &s.inflight)
	wait := s.page.Context(ctx).EachEvent(o.received, o.finished, o.failed)
	go wait()

	return cancel
}

func (s *rodSession) responseBody(id proto.NetworkRequestID) (string, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(s.page)
	if err != nil {
		return "", err
	}
	if !res.Base64Encoded {
		return res.Body, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(res.Body)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *rodSession) Settle(ctx context.Context, max time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	s.page.Context(ctx).WaitRequestIdle(s.idle, nil, nil, nil)()

	if !waitInflight(ctx, &s.inflight) {
		log.Debug().Int64("inflight", s.inflight.Load()).Msg("settle timed out with pending responses")
	}
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			errs = append(errs, s.page.Close())
		}
		if s.incognito != nil {
			errs = append(errs, s.incognito.Close())
		}
		if s.root != nil {
			errs = append(errs, s.root.Close())
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
