package api

import (
	"context"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tera/terastream/terabox"
)

type WatchService interface {
	Resolve(ctx context.Context, shareURL string) (*terabox.Result, error)
}

// creates a new fiber app and setup middlewares,
// an empty origins list allows every origin
func InitApp(allowedOrigins []string) *fiber.App {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	f := fiber.New(fiber.Config{
		AppName:               "terastream",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	var once sync.Once

	once.Do(func() {
		f.Use(logger.New(logger.Config{
			Format: "[${ip}]:${port} ${status} - ${method} ${path} ${latency}\n",
		}))
		f.Use(recover.New())
		f.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(allowedOrigins, ", "),
			AllowHeaders: "Content-Type",
			AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		}))
	})

	return f
}

// WithBaseContext makes ctx the user context of every request, the fiber
// adaptor does not carry the net/http request context over.
func WithBaseContext(ctx context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(ctx)
		return c.Next()
	}
}
