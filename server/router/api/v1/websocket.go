package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/averill/parlor/server/auth"
)

// serveWebsocket upgrades the authenticated request to a live session. Room
// membership is derived from the verified identity inside the hub.
func (s *APIV1Service) serveWebsocket(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	return s.Hub.ServeWS(c.Response(), c.Request(), identity, s.SupportService.Dispatch)
}
