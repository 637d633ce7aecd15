package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/averill/parlor/server/auth"
	"github.com/averill/parlor/store"
)

type supportThreadResponse struct {
	ThreadID  string               `json:"threadId"`
	UserID    int32                `json:"userId"`
	AgentID   *int32               `json:"agentId,omitempty"`
	Resolved  bool                 `json:"resolved"`
	Events    []store.SupportEvent `json:"events"`
	CreatedTs int64                `json:"createdAt"`
}

func toSupportThreadResponse(t *store.SupportThread) supportThreadResponse {
	return supportThreadResponse{
		ThreadID:  t.UID,
		UserID:    t.UserID,
		AgentID:   t.AgentID,
		Resolved:  t.Resolved,
		Events:    t.Events,
		CreatedTs: t.CreatedTs,
	}
}

func (s *APIV1Service) listSupportThreads(c echo.Context) error {
	var resolved *bool
	if raw := c.QueryParam("resolved"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "resolved must be a boolean")
		}
		resolved = &value
	}

	threads, err := s.SupportService.Threads(c.Request().Context(), resolved)
	if err != nil {
		return toHTTPError(err)
	}
	responses := make([]supportThreadResponse, len(threads))
	for i, t := range threads {
		responses[i] = toSupportThreadResponse(t)
	}
	return c.JSON(http.StatusOK, responses)
}

func (s *APIV1Service) getSupportThread(c echo.Context) error {
	thread, err := s.SupportService.Thread(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toSupportThreadResponse(thread))
}

func (s *APIV1Service) resolveSupportThread(c echo.Context) error {
	if err := s.SupportService.Resolve(c.Request().Context(), c.Param("uid")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "thread resolved"})
}

func (s *APIV1Service) claimSupportThread(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	if err := s.SupportService.Claim(c.Request().Context(), c.Param("uid"), identity.UserID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "thread claimed"})
}
