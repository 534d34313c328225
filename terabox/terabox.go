// Package terabox turns a share link into a streaming url by driving a browser
// session over the share page.
package terabox

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tera/terastream/browser"
	"github.com/tera/terastream/capture"
	"github.com/tera/terastream/config"
	"github.com/tera/terastream/identity"
	"github.com/tera/terastream/resolve"
	"github.com/tera/terastream/streamurl"
	"github.com/tera/terastream/types"
)

type Options struct {
	NavigateTimeout time.Duration
	ClickTimeout    time.Duration
	SettleTimeout   time.Duration
	RequestTimeout  time.Duration
	PlaySelector    string
	StreamBase      string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		NavigateTimeout: cfg.NavigateTimeout,
		ClickTimeout:    cfg.ClickTimeout,
		SettleTimeout:   cfg.SettleTimeout,
		RequestTimeout:  cfg.RequestTimeout,
		PlaySelector:    cfg.PlaySelector,
		StreamBase:      cfg.StreamBase,
	}
}

type Result struct {
	StreamURL string        `json:"streamUrl"`
	Params    types.Params  `json:"params"`
	Duration  time.Duration `json:"-"`
}

type Resolver struct {
	launcher browser.Launcher
	identity identity.Provisioner
	builder  *streamurl.Builder
	opts     Options
}

func New(launcher browser.Launcher, provisioner identity.Provisioner, opts Options) *Resolver {
	def := config.Default()
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = def.NavigateTimeout
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = def.ClickTimeout
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = def.SettleTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	if opts.PlaySelector == "" {
		opts.PlaySelector = def.PlaySelector
	}
	return &Resolver{
		launcher: launcher,
		identity: provisioner,
		builder:  streamurl.New(opts.StreamBase),
		opts:     opts,
	}
}

// Resolve runs one browser session against shareURL. The session is released
// before Resolve returns, whatever the outcome.
func (r *Resolver) Resolve(ctx context.Context, shareURL string) (*Result, error) {
	shareURL = strings.TrimSpace(shareURL)
	if shareURL == "" {
		return nil, ErrMissingInput
	}

	start := time.Now()
	logger := log.With().Str("share", shareURL).Logger()
	defer func() {
		logger.Info().Dur("took", time.Since(start)).Msg("resolution finished")
	}()

	ctx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	defer cancel()

	cookies, err := r.identity.Cookies()
	if err != nil {
		return nil, &InternalError{Stage: "identity", Err: err}
	}

	session, err := r.launcher.Launch(ctx, cookies)
	if err != nil {
		return nil, &InternalError{Stage: "launch", Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug().Err(err).Msg("closing browser session")
		}
	}()

	acc := capture.NewAccumulator()
	interceptor := capture.NewInterceptor(acc)
	stop := session.Observe(interceptor.Match, interceptor.Handle)
	defer stop()

	if err := r.navigate(ctx, session, shareURL); err != nil {
		return nil, &InternalError{Stage: "navigate", Err: err}
	}
	session.Settle(ctx, r.opts.SettleTimeout)

	r.clickPlay(ctx, session, logger)
	session.Settle(ctx, r.opts.SettleTimeout)

	// late responses must not race the snapshot
	stop()

	corpus, err := capture.Snapshot(ctx, session, acc)
	if err != nil {
		return nil, &InternalError{Stage: "snapshot", Err: err}
	}

	params := resolve.Resolve(acc.Snapshot(), corpus)
	logger.Debug().Interface("params", params).Msg("extracted parameters")

	streamURL, err := r.builder.Build(params)
	if err != nil {
		return nil, &IncompleteError{Missing: params.Missing(), Err: err}
	}

	return &Result{
		StreamURL: streamURL,
		Params:    params,
		Duration:  time.Since(start),
	}, nil
}

func (r *Resolver) navigate(ctx context.Context, session browser.Session, shareURL string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.NavigateTimeout)
	defer cancel()
	return session.Navigate(ctx, shareURL)
}

// the play button only provokes the streaming call, a miss is not fatal
func (r *Resolver) clickPlay(ctx context.Context, session browser.Session, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ClickTimeout)
	defer cancel()
	if err := session.Click(ctx, r.opts.PlaySelector); err != nil {
		logger.Debug().Err(err).Str("selector", r.opts.PlaySelector).Msg("play button interaction failed")
	}
}
