package api

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/tera/terastream/terabox"
)

type watchRequest struct {
	URL string `json:"url"`
}

type watchResponse struct {
	StreamURL string `json:"streamUrl"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func InitiateRoutes(app *fiber.App, svc WatchService) {
	app.Get(healthUrl, func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Post(watchUrl, func(c *fiber.Ctx) error {
		var req watchRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil || strings.TrimSpace(req.URL) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "URL is required"})
		}

		res, err := svc.Resolve(c.UserContext(), req.URL)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(watchResponse{StreamURL: res.StreamURL})
	})
}

func writeError(c *fiber.Ctx, err error) error {
	var incomplete *terabox.IncompleteError
	switch {
	case errors.Is(err, terabox.ErrMissingInput):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "URL is required"})
	case errors.As(err, &incomplete):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Error:   "Could not extract required parameters from the share link",
			Missing: incomplete.Missing,
		})
	case errors.Is(err, terabox.ErrIncomplete):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorResponse{
			Error: "Could not extract required parameters from the share link",
		})
	}

	log.Error().Err(err).Msg("watch request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Internal server error"})
}
