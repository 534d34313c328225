package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tera/terastream/api"
	"github.com/tera/terastream/browser"
	"github.com/tera/terastream/config"
	"github.com/tera/terastream/gui"
	"github.com/tera/terastream/identity"
	"github.com/tera/terastream/player"
	"github.com/tera/terastream/terabox"
)

func main() {
	var cfg *config.Config

	app := &cli.App{
		Name:  "terastream",
		Usage: "resolve share links into streaming urls",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file path", Value: ""},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "log-json", Usage: "log json lines instead of console output"},
			&cli.BoolFlag{Name: "headless", Usage: "run the browser headless", Value: true},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.IsSet("log-level") {
				cfg.LogLevel = c.String("log-level")
			}
			if c.IsSet("log-json") {
				cfg.LogJSON = c.Bool("log-json")
			}
			if c.IsSet("headless") {
				cfg.Headless = c.Bool("headless")
			}
			return setupLogger(cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the http api",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "http", Usage: "address to listen on"},
					&cli.StringSliceFlag{Name: "origins", Usage: "allowed CORS origins"},
				},
				Action: func(c *cli.Context) error {
					if c.IsSet("http") {
						cfg.HttpAddr = c.String("http")
					}
					if c.IsSet("origins") {
						cfg.AllowedOrigins = c.StringSlice("origins")
					}
					return serve(cfg)
				},
			},
			{
				Name:      "resolve",
				Usage:     "resolve one share link",
				ArgsUsage: "[url]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "plain", Usage: "print only the streaming url"},
					&cli.BoolFlag{Name: "play", Usage: "open the streaming url in mpv or vlc"},
				},
				Action: func(c *cli.Context) error {
					return resolveOne(c.Context, cfg, c.Args().First(), c.Bool("plain"), c.Bool("play"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("terastream failed")
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return nil
}

func newResolver(cfg *config.Config) *terabox.Resolver {
	launcher := browser.NewRodLauncher(cfg.Headless, cfg.BrowserBin, cfg.SettleIdle)
	return terabox.New(launcher, identity.FromConfig(cfg), terabox.OptionsFromConfig(cfg))
}

func serve(cfg *config.Config) error {
	_, err := api.Serve(&api.ServerConfig{
		ShowStartBanner:                  true,
		HttpAddr:                         cfg.HttpAddr,
		AllowedOrigins:                   cfg.AllowedOrigins,
		TimeToWaitBeforeGracefulShutdown: cfg.ShutdownWait,
	}, newResolver(cfg))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func resolveOne(ctx context.Context, cfg *config.Config, shareURL string, plain, play bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	resolver := newResolver(cfg)

	var (
		res *terabox.Result
		err error
	)
	if plain {
		shareURL = strings.TrimSpace(shareURL)
		res, err = resolver.Resolve(ctx, shareURL)
		if err != nil {
			return err
		}
		fmt.Println(res.StreamURL)
	} else {
		res, shareURL, err = runTUI(ctx, cfg, shareURL, resolver)
		if err != nil {
			return err
		}
	}

	if play {
		return player.RunVideo(ctx, res.StreamURL, shareURL)
	}
	return nil
}

// sessionReleaseWait bounds how long exit waits for a cancelled resolution.
const sessionReleaseWait = 10 * time.Second

// runTUI also returns the share link, which may have been typed at the prompt.
func runTUI(ctx context.Context, cfg *config.Config, shareURL string, resolver *terabox.Resolver) (*terabox.Result, string, error) {
	// info lines would garble the tui
	if !cfg.LogJSON && zerolog.GlobalLevel() > zerolog.DebugLevel {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	p := tea.NewProgram(gui.InitialModel(ctx, shareURL, resolver.Resolve))
	final, err := p.Run()
	if err != nil {
		return nil, shareURL, fmt.Errorf("running terminal view: %w", err)
	}
	m := final.(gui.WatchModel)
	// the browser session is closed by the resolution itself
	if !m.Wait(sessionReleaseWait) {
		log.Warn().Msg("browser session still closing on exit")
	}
	return m.Result(), m.ShareURL(), m.Err()
}
