package webhook

import (
	"crypto/subtle"
	"net/http"

	"leadsignal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc         *Service
	verifyToken string
	log         *logger.Logger
}

func NewHandler(svc *Service, verifyToken string, log *logger.Logger) *Handler {
	return &Handler{svc: svc, verifyToken: verifyToken, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/webhook/meta", h.Verify)
	rg.POST("/webhook/meta", h.Receive)
}

// Verify answers the platform's subscription handshake. The challenge is
// echoed verbatim only for a subscribe request carrying the configured
// verify token.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	tokenOK := subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) == 1
	if mode != "subscribe" || !tokenOK {
		h.log.Warn("webhook verification rejected", "mode", mode)
		c.Status(http.StatusForbidden)
		return
	}

	c.String(http.StatusOK, challenge)
}

// Receive accepts a lead delivery. The response is always 200 so the
// platform does not redeliver for our internal failures; those are
// logged and recoverable from the platform's lead store.
func (h *Handler) Receive(c *gin.Context) {
	var delivery Delivery
	if err := c.ShouldBindJSON(&delivery); err != nil {
		h.log.Warn("unreadable webhook delivery", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	h.svc.ProcessDelivery(c.Request.Context(), delivery)
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
