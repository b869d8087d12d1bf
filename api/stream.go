package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tracker-api/app"
	"tracker-api/realtime"
)

const streamHeartbeat = 30 * time.Second

// streamEvents serves the server-sent-events feed. Every stream is joined to
// the caller's personal room; the projects and tasks query parameters
// (comma-separated ids) subscribe the stream to board and comment rooms as
// well. EventSource cannot set headers, so a token query parameter stands in
// for the Authorization header.
func streamEvents(auth Authenticator, hub *realtime.Hub, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		caller, err := auth.CallerFromAuthHeader(authHeader)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		conn := hub.NewConnection()
		defer hub.Disconnect(conn)

		hub.Join(conn, app.UserRoom(caller.ID))
		for _, id := range splitIDs(c.QueryParam("projects")) {
			hub.Join(conn, app.ProjectRoom(id))
		}
		for _, id := range splitIDs(c.QueryParam("tasks")) {
			hub.Join(conn, app.TaskRoom(id))
		}

		logger.WithFields(log.Fields{
			"conn_id": conn.ID(),
			"user_id": caller.ID,
		}).Debug("stream opened")

		c.Response().WriteHeader(http.StatusOK)
		// Initial comment forces the headers out to the client.
		if _, err := c.Response().Write([]byte(":ok\n\n")); err != nil {
			return nil
		}
		flusher.Flush()

		ctx := c.Request().Context()
		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := c.Response().Write([]byte(":keepalive\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case ev, open := <-conn.Events():
				if !open {
					return nil
				}
				if _, err := c.Response().Write([]byte("event: " + ev.Name + "\ndata: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(ev.Payload); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
