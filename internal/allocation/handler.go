package allocation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts allocation routes on r and the manual relocation on admin.
func RegisterRoutes(r, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/allocations/cubicles", h.AssignCubicle)
	r.DELETE("/allocations/cubicles/:roll", h.ReleaseCubicle)
	r.POST("/allocations/offices", h.AssignOffice)
	r.DELETE("/allocations/offices/:kind/:id", h.ReleaseOffice)

	r.POST("/workstations/:id/assign", h.IssueWorkstation)
	r.POST("/workstations/:id/return", h.ReturnWorkstation)
	r.POST("/equipment/:id/assign", h.IssueEquipment)
	r.POST("/equipment/:id/return", h.ReturnEquipment)

	r.GET("/owners/:kind/:key/resources", h.OwnerResources)
	admin.POST("/allocations/relocate", h.Relocate)
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.Respond(c, apierr.ErrInvalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

func pathOwner(c *gin.Context, keyParam string) (owner.Owner, bool) {
	o, err := owner.Parse(c.Param("kind"), c.Param(keyParam))
	if err != nil {
		apierr.Respond(c, apierr.ErrInvalid(err.Error()))
		return owner.Owner{}, false
	}
	return o, true
}

// bind decodes an optional JSON body into req.
func bind(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		apierr.BadJSON(c, err)
		return false
	}
	return true
}

func (h *Handler) AssignCubicle(c *gin.Context) {
	var req CubicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.AssignCubicle(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReleaseCubicle(c *gin.Context) {
	if err := h.svc.ReleaseCubicle(c.Request.Context(), c.Param("roll")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AssignOffice(c *gin.Context) {
	var req OfficeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.AssignOffice(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReleaseOffice(c *gin.Context) {
	o, ok := pathOwner(c, "id")
	if !ok {
		return
	}
	if err := h.svc.ReleaseOffice(c.Request.Context(), o); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) IssueWorkstation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req IssueWorkstationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.IssueWorkstation(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ReturnWorkstation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ReturnWorkstationRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.ReturnWorkstation(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) IssueEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req IssueEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.IssueEquipment(c.Request.Context(), id, req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ReturnEquipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.ReturnEquipment(c.Request.Context(), id, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) OwnerResources(c *gin.Context) {
	o, ok := pathOwner(c, "key")
	if !ok {
		return
	}
	res, err := h.svc.OwnerResources(c.Request.Context(), o)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Relocate(c *gin.Context) {
	var req RelocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Relocate(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
