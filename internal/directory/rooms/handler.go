package rooms

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/rooms", h.ListRooms)
	r.GET("/rooms/:name", h.GetRoom)
	admin.POST("/rooms", h.CreateRoom)
}

func (h *Handler) ListRooms(c *gin.Context) {
	items, err := h.svc.ListRooms(c.Request.Context(), c.Query("kind"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) GetRoom(c *gin.Context) {
	res, err := h.svc.GetRoom(c.Request.Context(), c.Param("name"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.CreateRoom(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/rooms/"+res.Name)
	c.JSON(http.StatusCreated, res)
}
