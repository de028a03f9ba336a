package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"taskledger/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

type createModuleRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

type completionRequest struct {
	Completed bool `json:"completed"`
}

// fail maps service errors onto status codes.
func (s *Server) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func (s *Server) listModules(c echo.Context) error {
	mods, err := s.modules.List(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, mods)
}

func (s *Server) createModule(c echo.Context) error {
	var req createModuleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	mod, err := s.modules.Create(c.Request().Context(), req.Name, req.Color)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, mod)
}

func (s *Server) updateModule(c echo.Context) error {
	var patch service.ModulePatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.modules.Update(c.Request().Context(), c.Param("id"), patch); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteModule(c echo.Context) error {
	if err := s.modules.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) reorderModules(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.modules.Reorder(c.Request().Context(), req.IDs); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listModuleTasks(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := s.modules.Get(ctx, id); err != nil {
		return s.fail(c, err)
	}
	tasks, err := s.tasks.ListByModule(ctx, id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c echo.Context) error {
	var input service.TaskInput
	if err := c.Bind(&input); err != nil {
		return badRequest(c, "invalid body")
	}
	task, err := s.tasks.Create(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTask(c echo.Context) error {
	var patch service.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.tasks.Update(c.Request().Context(), c.Param("id"), patch); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.tasks.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setCompletion(c echo.Context) error {
	var req completionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.tasks.SetCompletion(c.Request().Context(), c.Param("id"), req.Completed); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) moveTask(c echo.Context) error {
	var req service.MoveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := s.tasks.MoveAndReorder(c.Request().Context(), req); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getSummary(c echo.Context) error {
	periods := 0
	if raw := strings.TrimSpace(c.QueryParam("periods")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return badRequest(c, "invalid periods")
		}
		periods = n
	}
	q, err := service.ParseSummaryQuery(c.QueryParam("mode"), c.QueryParam("granularity"), periods, s.now())
	if err != nil {
		return s.fail(c, err)
	}
	summary, err := s.summary.Build(c.Request().Context(), q)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
