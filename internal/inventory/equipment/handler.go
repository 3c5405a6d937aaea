package equipment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/equipment", h.List)
	r.GET("/equipment/:id", h.Get)
	r.GET("/equipment/:id/history", h.History)
	r.POST("/equipment", h.Create)
	r.PUT("/equipment/:id", h.Update)

	admin.POST("/equipment/:id/retire", h.changeStatus(lifecycle.Retire))
	admin.POST("/equipment/:id/scrap", h.changeStatus(lifecycle.Scrap))
	admin.POST("/equipment/:id/unretire", h.changeStatus(lifecycle.Unretire))
	admin.DELETE("/equipment/:id", h.Delete)
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.Respond(c, apierr.ErrInvalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

// FilterFromQuery reads status, category, location, q and the optional
// owner_kind/owner_key pair.
func FilterFromQuery(c *gin.Context) (Filter, error) {
	f := Filter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Q:        c.Query("q"),
	}
	if kind, key := c.Query("owner_kind"), c.Query("owner_key"); kind != "" || key != "" {
		o, err := owner.Parse(kind, key)
		if err != nil {
			return Filter{}, apierr.ErrInvalid(err.Error())
		}
		f.Owner = o
	}
	return f, nil
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

func (h *Handler) List(c *gin.Context) {
	f, err := FilterFromQuery(c)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	p := paging.FromQuery(c)
	items, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	paging.Respond(c, items, total, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) changeStatus(action lifecycle.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req StatusChangeRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				apierr.BadJSON(c, err)
				return
			}
		}
		res, err := h.svc.ChangeStatus(c.Request.Context(), id, action, req.Reason, auth.Actor(c))
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
