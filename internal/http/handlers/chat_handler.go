package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/observability"
)

// ChatRequest is one customer message.
type ChatRequest struct {
	Message string `json:"message" example:"Berapa harga VPS?"`
}

// Chat godoc
// @ID          chat
// @Summary     Ask the shop assistant
// @Description Answered by the language model when configured, else by keyword rules, a catalog lookup or the help menu.
// @Tags        Chat
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ChatRequest  true  "Message"
// @Success     200  {object}  services.Reply
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	reply, err := h.d.Chat.Reply(c.Request.Context(), req.Message)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	observability.ChatReply(reply.Source)
	ok(c, http.StatusOK, reply)
}
