package reporting

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/workstations"
	"LIMS-backend/internal/owner"
	"LIMS-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reports/utilization", h.Utilization)
	r.GET("/reports/equipment", h.Equipment)
	r.GET("/reports/workstations", h.Workstations)
	r.GET("/reports/owners/:kind/:key", h.OwnerSheet)
	r.POST("/reports/labels", h.Labels)
}

func attach(c *gin.Context, f File) {
	c.Header("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	c.Data(http.StatusOK, f.ContentType, f.Body)
}

func format(c *gin.Context) (Format, bool) {
	f, err := ParseFormat(c.Query("format"))
	if err != nil {
		apierr.Respond(c, apierr.ErrInvalid(err.Error()))
		return "", false
	}
	return f, true
}

// Utilization godoc
// @Summary      Lab seat utilization
// @Tags         Reports
// @Produce      json
// @Success      200  {object}  Utilization
// @Router       /reports/utilization [get]
// @Security     BearerAuth
func (h *Handler) Utilization(c *gin.Context) {
	res, err := h.svc.Utilization(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Equipment godoc
// @Summary      Export equipment
// @Description  Accepts the same filters as the equipment list.
// @Tags         Reports
// @Produce      text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Param        format      query  string  false  "csv, excel or pdf"
// @Param        status      query  string  false  "Available, Issued, Retired or Scrapped"
// @Param        category    query  string  false  "category"
// @Param        location    query  string  false  "location"
// @Param        q           query  string  false  "free text"
// @Param        owner_kind  query  string  false  "student, staff or faculty"
// @Param        owner_key   query  string  false  "roll or id"
// @Success      200
// @Router       /reports/equipment [get]
// @Security     BearerAuth
func (h *Handler) Equipment(c *gin.Context) {
	f, ok := format(c)
	if !ok {
		return
	}
	filter, err := equipment.FilterFromQuery(c)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	file, err := h.svc.ExportEquipment(c.Request.Context(), filter, f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	attach(c, file)
}

// Workstations godoc
// @Summary      Export workstations
// @Tags         Reports
// @Produce      text/csv,application/pdf
// @Param        format    query  string  false  "csv or pdf"
// @Param        status    query  string  false  "status"
// @Param        location  query  string  false  "location"
// @Param        q         query  string  false  "free text"
// @Success      200
// @Router       /reports/workstations [get]
// @Security     BearerAuth
func (h *Handler) Workstations(c *gin.Context) {
	f, ok := format(c)
	if !ok {
		return
	}
	file, err := h.svc.ExportWorkstations(c.Request.Context(), workstations.FilterFromQuery(c), f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	attach(c, file)
}

// OwnerSheet godoc
// @Summary      Resource sheet of one owner
// @Tags         Reports
// @Produce      application/pdf
// @Param        kind  path  string  true  "student, staff or faculty"
// @Param        key   path  string  true  "roll or id"
// @Success      200
// @Router       /reports/owners/{kind}/{key} [get]
// @Security     BearerAuth
func (h *Handler) OwnerSheet(c *gin.Context) {
	o, err := owner.Parse(c.Param("kind"), c.Param("key"))
	if err != nil {
		apierr.Respond(c, apierr.ErrInvalid(err.Error()))
		return
	}
	file, err := h.svc.OwnerSheet(c.Request.Context(), o)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	attach(c, file)
}

// Labels godoc
// @Summary      Print asset labels
// @Description  A4 sheet of 3 x 8 stickers with department code, model, serial and location.
// @Tags         Reports
// @Accept       json
// @Produce      application/pdf
// @Param        body  body  LabelRequest  true  "assets"
// @Success      200
// @Router       /reports/labels [post]
// @Security     BearerAuth
func (h *Handler) Labels(c *gin.Context) {
	var req LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	file, err := h.svc.Labels(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	attach(c, file)
}
