package storage

import (
	"strings"

	"github.com/getevo/evo/v2/lib/log"
	"github.com/gofiber/fiber/v2"
)

// RegisterMediaProxy wires the object-serving route. It streams stored
// objects through the app so attachments stay fetchable when the bucket is
// not public.
func RegisterMediaProxy(router fiber.Router) {
	router.Get("/files/*", MediaProxyHandler)
}

// MediaProxyHandler serves an object from the bucket by key
func MediaProxyHandler(c *fiber.Ctx) error {
	if !IsEnabled() {
		return c.Status(503).JSON(fiber.Map{
			"error": "S3 storage not enabled",
		})
	}

	key := strings.TrimPrefix(c.Params("*"), "/")
	if key == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Missing object key",
		})
	}

	body, contentType, contentLength, err := Default().GetReader(c.Context(), key)
	if err != nil {
		log.Debug("Media proxy miss for %s: %v", key, err)
		return c.Status(404).JSON(fiber.Map{
			"error": "Object not found",
		})
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Set("Content-Type", contentType)
	c.Set("Cache-Control", "public, max-age=31536000")

	if contentLength > 0 {
		return c.SendStream(body, int(contentLength))
	}
	return c.SendStream(body)
}
