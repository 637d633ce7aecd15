package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/averill/parlor/server/auth"
	"github.com/averill/parlor/server/chat"
	"github.com/averill/parlor/store"
)

type attachmentPayload struct {
	Filename      string `json:"filename"`
	OriginalName  string `json:"originalName"`
	MimeType      string `json:"mimeType"`
	Path          string `json:"path"`
	ExtractedText string `json:"extractedText,omitempty"`
	Size          int64  `json:"size"`
}

type sendMessageRequest struct {
	ConversationID string              `json:"conversationId"`
	Message        string              `json:"message"`
	UseCase        string              `json:"useCase"`
	Attachments    []attachmentPayload `json:"attachments"`
}

type sendMessageResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (s *APIV1Service) sendMessage(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.ChatService.Send(c.Request().Context(), identity, chat.SendRequest{
		ConversationUID: req.ConversationID,
		Text:            req.Message,
		UseCase:         req.UseCase,
		Attachments:     toAttachments(req.Attachments),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, sendMessageResponse{
		Message:        result.Reply,
		ConversationID: result.Conversation.UID,
	})
}

type editMessageRequest struct {
	NewContent string `json:"newContent"`
}

func (s *APIV1Service) editMessage(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	updated, err := s.ChatService.Edit(c.Request().Context(), identity, c.Param("uid"), c.Param("messageID"), req.NewContent)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(updated))
}

func (s *APIV1Service) listConversations(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	summaries, err := s.ChatService.ListSummaries(c.Request().Context(), identity)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, summaries)
}

func (s *APIV1Service) getConversation(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	conversation, err := s.ChatService.GetConversation(c.Request().Context(), identity, c.Param("uid"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(conversation))
}

func (s *APIV1Service) deleteConversation(c echo.Context) error {
	identity, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	if err := s.ChatService.DeleteConversation(c.Request().Context(), identity, c.Param("uid")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "conversation deleted"})
}

type conversationResponse struct {
	ConversationID string          `json:"conversationId"`
	UseCase        store.UseCase   `json:"useCase"`
	Messages       []store.Message `json:"messages"`
	CreatedTs      int64           `json:"createdAt"`
	UpdatedTs      int64           `json:"updatedAt"`
}

func toConversationResponse(c *store.Conversation) conversationResponse {
	return conversationResponse{
		ConversationID: c.UID,
		UseCase:        c.UseCase,
		Messages:       c.Messages,
		CreatedTs:      c.CreatedTs,
		UpdatedTs:      c.UpdatedTs,
	}
}

func toAttachments(payloads []attachmentPayload) []store.Attachment {
	if len(payloads) == 0 {
		return nil
	}
	attachments := make([]store.Attachment, len(payloads))
	for i, p := range payloads {
		attachments[i] = store.Attachment{
			Filename:      p.Filename,
			OriginalName:  p.OriginalName,
			MimeType:      p.MimeType,
			Path:          p.Path,
			ExtractedText: p.ExtractedText,
			Size:          p.Size,
		}
	}
	return attachments
}
