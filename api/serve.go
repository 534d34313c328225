package api

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type ServerConfig struct {
	// ShowStartBanner indicates whether to show or hide the server start console message.
	ShowStartBanner bool

	// HttpAddr is the TCP address to listen for the HTTP server (eg. `127.0.0.1:3000`).
	HttpAddr string

	// AllowedOrigins is an optional list of CORS origins (default to "*").
	AllowedOrigins []string

	TimeToWaitBeforeGracefulShutdown time.Duration
}

func Serve(cfg *ServerConfig, svc WatchService) (*http.Server, error) {
	// base request context, cancelled on shutdown so the running
	// browser sessions are released
	baseCtx, cancelBaseCtx := context.WithCancel(context.Background())
	defer cancelBaseCtx()

	app := InitApp(cfg.AllowedOrigins)
	app.Use(WithBaseContext(baseCtx))
	InitiateRoutes(app, svc)

	server := &http.Server{
		Handler:           adaptor.FiberApp(app),
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		Addr:              cfg.HttpAddr,
		BaseContext: func(l net.Listener) context.Context {
			return baseCtx
		},
	}

	if cfg.ShowStartBanner {
		schema := "http"
		addr := server.Addr

		date := new(strings.Builder)
		log.New(date, "", log.LstdFlags).Print()

		bold := color.New(color.Bold).Add(color.FgGreen)
		bold.Printf(
			"%s Server started at %s\n",
			strings.TrimSpace(date.String()),
			color.CyanString("%s://%s", schema, addr),
		)

		regular := color.New()
		regular.Printf("├─ REST API: %s\n", color.CyanString("%s://%s%s/", schema, addr, baseUrl))
		regular.Printf("├─ Watch API: %s\n", color.CyanString("POST %s://%s%s", schema, addr, watchUrl))
		regular.Printf("└─ Health: %s\n", color.CyanString("%s://%s%s", schema, addr, healthUrl))
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		// let in flight resolutions finish before exit
		ttw := cfg.TimeToWaitBeforeGracefulShutdown // time to wait
		if ttw == 0 {
			ttw = time.Second * 5
		}
		fmt.Printf("Gracefully shutting down..., waiting %v seconds\n", ttw.Seconds())
		time.AfterFunc(ttw, func() {
			cancelBaseCtx()
			server.Shutdown(context.Background())
		})
	}()

	return server, server.ListenAndServe()
}
