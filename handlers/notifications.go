package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"netwin-backend/middleware"
	"netwin-backend/services"
	"netwin-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// StreamPollInterval is how often the SSE stream checks for new rows.
const StreamPollInterval = 2 * time.Second

type NotificationHandler struct {
	Notifications *services.NotificationService
	PollInterval  time.Duration
}

func NewNotificationHandler(n *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: n, PollInterval: StreamPollInterval}
}

func SetupNotificationRoutes(r fiber.Router, n *services.NotificationService) {
	r.Get("/", func(c *fiber.Ctx) error {
		list, err := n.List(c.UserContext(), middleware.UserID(c), services.NotificationFilter{
			UnreadOnly: c.QueryBool("unread", false),
			Limit:      c.QueryInt("limit", 50),
		})
		if err != nil {
			return respondError(c, err)
		}
		unread, err := n.UnreadCount(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"notifications": list, "unread": unread})
	})

	r.Patch("/:id/read", func(c *fiber.Ctx) error {
		if err := n.MarkRead(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	r.Post("/read-all", func(c *fiber.Ctx) error {
		count, err := n.MarkAllRead(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "updated": count})
	})
}

// Stream pushes the user's new notifications as server-sent events.
func (h *NotificationHandler) Stream(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	interval := h.PollInterval
	if interval <= 0 {
		interval = StreamPollInterval
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cursor, err := h.Notifications.Cursor(ctx, userID)
		cancel()
		if err != nil {
			utils.Log.Warnw("[SSE] cursor init failed", "user_id", userID, "error", err)
			cursor = services.NewStreamCursor(time.Now())
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				rows, err := h.Notifications.Next(ctx, userID, cursor)
				cancel()
				if err != nil {
					utils.Log.Warnw("[SSE] poll failed", "user_id", userID, "error", err)
					continue
				}
				if len(rows) == 0 {
					// keepalive so proxies and dead clients are noticed
					if _, err := w.WriteString(":\n\n"); err != nil {
						return
					}
				}
				for _, n := range rows {
					payload, _ := json.Marshal(n)
					fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}
