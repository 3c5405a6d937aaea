package people

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts read routes on r and mutating routes on admin.
func RegisterRoutes(r, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/students", h.ListStudents)
	r.GET("/students/:roll", h.GetStudent)
	admin.POST("/students", h.CreateStudent)
	admin.PUT("/students/:roll", h.UpdateStudent)
	admin.DELETE("/students/:roll", h.DeleteStudent)

	for _, k := range []MemberKind{KindFaculty, KindStaff} {
		base := "/" + string(k)
		r.GET(base, h.listMembers(k))
		r.GET(base+"/:id", h.getMember(k))
		admin.POST(base, h.createMember(k))
		admin.PUT(base+"/:id", h.updateMember(k))
		admin.DELETE(base+"/:id", h.deleteMember(k))
	}
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.CreateStudent(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/students/"+res.Roll)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetStudent(c *gin.Context) {
	res, err := h.svc.GetStudent(c.Request.Context(), c.Param("roll"))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListStudents(c *gin.Context) {
	p := paging.FromQuery(c)
	items, total, err := h.svc.ListStudents(c.Request.Context(), SearchQuery{Q: c.Query("q"), Course: c.Query("course"), Year: c.Query("year")}, p)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	paging.Respond(c, items, total, p)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var req UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.UpdateStudent(c.Request.Context(), c.Param("roll"), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.svc.DeleteStudent(c.Request.Context(), c.Param("roll")); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func memberID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.Respond(c, apierr.ErrInvalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

func (h *Handler) createMember(k MemberKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.BadJSON(c, err)
			return
		}
		res, err := h.svc.CreateMember(c.Request.Context(), k, req)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.Header("Location", "/"+string(k)+"/"+strconv.FormatUint(res.ID, 10))
		c.JSON(http.StatusCreated, res)
	}
}

func (h *Handler) getMember(k MemberKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := memberID(c)
		if !ok {
			return
		}
		res, err := h.svc.GetMember(c.Request.Context(), k, id)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) listMembers(k MemberKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := paging.FromQuery(c)
		items, total, err := h.svc.ListMembers(c.Request.Context(), k, SearchQuery{Q: c.Query("q")}, p)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		paging.Respond(c, items, total, p)
	}
}

func (h *Handler) updateMember(k MemberKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := memberID(c)
		if !ok {
			return
		}
		var req UpdateMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.BadJSON(c, err)
			return
		}
		res, err := h.svc.UpdateMember(c.Request.Context(), k, id, req)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (h *Handler) deleteMember(k MemberKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := memberID(c)
		if !ok {
			return
		}
		if err := h.svc.DeleteMember(c.Request.Context(), k, id); err != nil {
			apierr.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
