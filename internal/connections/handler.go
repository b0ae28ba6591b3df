package connections

import (
	"net/http"

	"leadsignal_backend/platform/httpkit"
	"leadsignal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/connections/meta", h.Connect)
	rg.GET("/connections/meta", h.Get)
	rg.DELETE("/connections/meta", h.Disconnect)
}

func (h *Handler) Connect(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	org := ident.TenantID()
	if org == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization in token", nil)
		return
	}

	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	resp, err := h.svc.Connect(c.Request.Context(), *org, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) Get(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	org := ident.TenantID()
	if org == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization in token", nil)
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), *org)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) Disconnect(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	org := ident.TenantID()
	if org == nil {
		httpkit.Error(c, http.StatusForbidden, "no organization in token", nil)
		return
	}

	if err := h.svc.Disconnect(c.Request.Context(), *org); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
