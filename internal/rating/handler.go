package rating

import (
	"net/http"
	"strconv"

	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/httpkit"
	"leadsignal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const portalTokenHeader = "X-Portal-Token"
const portalGrantKey = "portalGrant"

type Handler struct {
	svc *Service
	log *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterPublicRoutes mounts the human-facing one-click rating endpoint
// on the engine root, outside the API prefix.
func (h *Handler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/r/:token", h.RateByLink)
}

// RegisterPortalRoutes mounts the portal API, authenticated by the
// portal token header.
func (h *Handler) RegisterPortalRoutes(rg *gin.RouterGroup) {
	rg.Use(h.portalAuth())
	rg.GET("/leads", h.PortalLeads)
	rg.POST("/leads/:id/rating", h.PortalRate)
}

// RateByLink handles a click on a rating link from a notification email.
// All outcomes render HTML, this endpoint is opened in a browser.
func (h *Handler) RateByLink(c *gin.Context) {
	token := c.Param("token")
	verdict := c.Query("rating")

	lead, err := h.svc.RateByToken(c.Request.Context(), token, verdict)
	if err != nil {
		h.renderError(c, err)
		return
	}

	page, renderErr := renderConfirmationPage(lead.FullName, lead.Quality)
	if renderErr != nil {
		h.log.Error("failed to render confirmation page", "error", renderErr)
		c.String(http.StatusOK, "Rating recorded.")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	heading := "Something went wrong"
	message := "Please try again later."

	switch {
	case apperr.Is(err, apperr.KindValidation):
		status = http.StatusBadRequest
		heading = "Invalid rating"
		message = "The rating value in this link is not recognized."
	case apperr.Is(err, apperr.KindNotFound):
		status = http.StatusNotFound
		heading = "Unknown link"
		message = "This rating link does not exist."
	case apperr.Is(err, apperr.KindConflict):
		status = http.StatusConflict
		heading = "Already rated"
		message = "This rating link has already been used."
	case apperr.Is(err, apperr.KindGone):
		status = http.StatusGone
		heading = "Link expired"
		message = "This rating link has expired."
	}

	page, renderErr := renderErrorPage(heading, message)
	if renderErr != nil {
		h.log.Error("failed to render error page", "error", renderErr)
		c.String(status, message)
		return
	}
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) portalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(portalTokenHeader)
		if raw == "" {
			httpkit.Error(c, http.StatusUnauthorized, "missing portal token", nil)
			c.Abort()
			return
		}
		grant, err := h.svc.ResolvePortalToken(c.Request.Context(), raw)
		if err != nil {
			httpkit.HandleError(c, err)
			c.Abort()
			return
		}
		c.Set(portalGrantKey, grant)
		c.Next()
	}
}

func portalGrant(c *gin.Context) PortalToken {
	return c.MustGet(portalGrantKey).(PortalToken)
}

func (h *Handler) PortalLeads(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.svc.PortalLeads(c.Request.Context(), portalGrant(c), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) PortalRate(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	var req struct {
		Quality string `json:"quality"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	resp, err := h.svc.PortalRate(c.Request.Context(), portalGrant(c), leadID, req.Quality)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
