// Package v1 exposes the REST and websocket surface. Handlers stay thin:
// they decode, delegate to the chat/support services, and map the error
// taxonomy to HTTP status codes.
package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/averill/parlor/ai"
	"github.com/averill/parlor/internal/profile"
	"github.com/averill/parlor/server/auth"
	"github.com/averill/parlor/server/chat"
	"github.com/averill/parlor/server/realtime"
	"github.com/averill/parlor/server/support"
	"github.com/averill/parlor/store"
)

type APIV1Service struct {
	Profile        *profile.Profile
	Store          *store.Store
	Hub            *realtime.Hub
	ChatService    *chat.Service
	SupportService *support.Service
}

func NewAPIV1Service(p *profile.Profile, st *store.Store, hub *realtime.Hub, chatService *chat.Service, supportService *support.Service) *APIV1Service {
	return &APIV1Service{
		Profile:        p,
		Store:          st,
		Hub:            hub,
		ChatService:    chatService,
		SupportService: supportService,
	}
}

// RegisterRoutes mounts all /api/v1 routes behind the auth middleware.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1", auth.Middleware(s.Profile.Secret))

	g.POST("/chat/send", s.sendMessage)
	g.GET("/chat/conversations", s.listConversations)
	g.GET("/chat/conversations/:uid", s.getConversation)
	g.DELETE("/chat/conversations/:uid", s.deleteConversation)
	g.PUT("/chat/conversations/:uid/messages/:messageID", s.editMessage)

	staff := g.Group("/support", auth.RequireRole(auth.RoleAgent, auth.RoleAdmin))
	staff.GET("/threads", s.listSupportThreads)
	staff.GET("/threads/:uid", s.getSupportThread)
	staff.POST("/threads/:uid/resolve", s.resolveSupportThread)
	staff.POST("/threads/:uid/claim", s.claimSupportThread)

	g.GET("/ws", s.serveWebsocket)
}

// toHTTPError maps the core error taxonomy to user-facing status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, rootMessage(err))
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, rootMessage(err))
	case errors.Is(err, chat.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, rootMessage(err))
	case errors.Is(err, ai.ErrService):
		return echo.NewHTTPError(http.StatusBadGateway, "AI service request failed")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

// rootMessage strips the wrapped-cause suffix from an error so clients see
// only the outermost, user-facing message, not the sentinel text.
func rootMessage(err error) string {
	msg := err.Error()
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		if suffix := ": " + cause.Error(); strings.HasSuffix(msg, suffix) {
			msg = strings.TrimSuffix(msg, suffix)
		}
	}
	return msg
}
