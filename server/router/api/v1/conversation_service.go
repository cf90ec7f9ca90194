package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListConversationMessages returns the persisted transcript in append order.
func (s *APIV1Service) ListConversationMessages(c echo.Context) error {
	id := c.Param("id")
	if !s.Store.Exists(id) {
		return errorJSON(c, http.StatusNotFound, "not_found_error", "conversation not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"conversation_id": id,
		"messages":        s.Store.ListMessages(id),
	})
}

// ClearConversation drops the transcript and rolling summary but keeps the
// conversation id valid for future turns.
func (s *APIV1Service) ClearConversation(c echo.Context) error {
	id := c.Param("id")
	if !s.Store.Exists(id) {
		return errorJSON(c, http.StatusNotFound, "not_found_error", "conversation not found")
	}
	s.Store.Clear(id)
	return c.NoContent(http.StatusNoContent)
}

// DeleteConversation forgets the conversation entirely.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	id := c.Param("id")
	if !s.Store.Exists(id) {
		return errorJSON(c, http.StatusNotFound, "not_found_error", "conversation not found")
	}
	s.Store.Delete(id)
	return c.NoContent(http.StatusNoContent)
}
