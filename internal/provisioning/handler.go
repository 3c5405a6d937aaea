package provisioning

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/provisioning", h.Create)
	r.GET("/provisioning", h.List)
}

// Create godoc
// @Summary      Request network provisioning
// @Tags         Provisioning
// @Accept       json
// @Produce      json
// @Param        body  body      CreateRequest  true  "request"
// @Success      201   {object}  Response
// @Router       /provisioning [post]
// @Security     BearerAuth
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	p := paging.FromQuery(c)
	items, total, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	paging.Respond(c, items, total, p)
}
