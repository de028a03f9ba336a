package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskledger/internal/model"
)

// Snapshot is the full board pushed to live clients.
type Snapshot struct {
	Modules []model.Module `json:"modules"`
	Tasks   []model.Task   `json:"tasks"`
}

func (s *Server) snapshot(ctx context.Context) (Snapshot, error) {
	mods, err := s.modules.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Modules: mods, Tasks: tasks}, nil
}

// live streams a snapshot on connect and after every committed write.
func (s *Server) live(c echo.Context) error {
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	err := s.store.Observe(c.Request().Context(), nil, func(ctx context.Context) error {
		snap, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response(), "event: snapshot\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Msg("live stream ended")
	}
	return nil
}
