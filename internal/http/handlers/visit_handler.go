// Visit HTTP handler.
//
// POST /visits records a page view for the profile, assigns a stable
// visitor id on first sight, and classifies the client-reported browser
// signals as human or bot.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-storefront-backend/internal/http/middleware"
	"github.com/tbourn/go-storefront-backend/internal/observability"
	"github.com/tbourn/go-storefront-backend/internal/security"
)

// VisitRequest carries the client's self-reported environment.
type VisitRequest struct {
	Signals security.Signals `json:"signals"`
}

// VisitResponse is the visit bookkeeping plus the advisory bot verdict.
type VisitResponse struct {
	VisitorID  string   `json:"visitor_id" example:"visitor_1700000000000_k3zq9x1ab"`
	IsBot      bool     `json:"is_bot"`
	Reasons    []string `json:"reasons"`
	Suspicious bool     `json:"suspicious"`
}

// RecordVisit godoc
// @ID          recordVisit
// @Summary     Record a page visit
// @Description Assigns a stable visitor id, appends to the visit history and classifies the client. The verdict is never enforced.
// @Tags        Security
// @Accept      json
// @Produce     json
// @Param       X-Profile-ID  header  string  false  "Client profile"
// @Param       body  body  handlers.VisitRequest  false  "Client signals"
// @Success     200  {object}  handlers.VisitResponse
// @Router      /visits [post]
func (h *Handlers) RecordVisit(c *gin.Context) {
	var req VisitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Signals.UserAgent == "" {
		req.Signals.UserAgent = c.GetHeader("User-Agent")
	}

	var resp VisitResponse
	if h.d.Tracker != nil {
		v, err := h.d.Tracker.Track(c.Request.Context(), middleware.ProfileFrom(c))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		resp.VisitorID = v.VisitorID
		resp.Suspicious = v.Suspicious
	}

	verdict := security.Detect(req.Signals)
	resp.IsBot, resp.Reasons = verdict.IsBot, verdict.Reasons
	observability.BotVerdict(verdict.IsBot)
	if verdict.IsBot {
		middleware.LoggerFrom(c).Warn().Strs("reasons", verdict.Reasons).Msg("bot detected")
	}
	ok(c, http.StatusOK, resp)
}
