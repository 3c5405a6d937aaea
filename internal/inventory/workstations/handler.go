package workstations

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/inventory/lifecycle"
	"LIMS-backend/internal/platform/apierr"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/paging"
)

type Handler struct{ svc *Service }

// RegisterRoutes mounts inventory routes on r and the lifecycle and delete
// routes on admin.
func RegisterRoutes(r, admin gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/workstations", h.List)
	r.GET("/workstations/:id", h.Get)
	r.POST("/workstations", h.Create)
	r.PUT("/workstations/:id", h.Update)
	r.POST("/workstations/:id/invoice", h.UploadInvoice)
	r.GET("/workstations/:id/invoice", h.DownloadInvoice)

	admin.POST("/workstations/:id/retire", h.changeStatus(lifecycle.Retire))
	admin.POST("/workstations/:id/scrap", h.changeStatus(lifecycle.Scrap))
	admin.POST("/workstations/:id/unretire", h.changeStatus(lifecycle.Unretire))
	admin.DELETE("/workstations/:id", h.Delete)
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.Respond(c, apierr.ErrInvalid("id must be a positive number"))
		return 0, false
	}
	return id, true
}

// FilterFromQuery reads the list filters shared by the list and export endpoints.
func FilterFromQuery(c *gin.Context) Filter {
	return Filter{Status: c.Query("status"), Location: c.Query("location"), Q: c.Query("q")}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateWorkstationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/workstations/"+strconv.FormatUint(res.ID, 10))
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

func (h *Handler) List(c *gin.Context) {
	p := paging.FromQuery(c)
	items, total, err := h.svc.List(c.Request.Context(), FilterFromQuery(c), p)
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
	var req UpdateWorkstationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadJSON(c, err)
		return
	}
	res, err := h.svc.Update(c.Request.Context(), id, req, auth.Actor(c))
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
		// unretire takes no body
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

// UploadInvoice takes a multipart form with the document in "file".
func (h *Handler) UploadInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxInvoiceBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			apierr.Respond(c, apierr.ErrInvalid("invoice is larger than 10 MiB"))
			return
		}
		apierr.Respond(c, apierr.ErrInvalid("multipart field \"file\" is required"))
		return
	}
	if fh.Size > MaxInvoiceBytes {
		apierr.Respond(c, apierr.ErrInvalid("invoice is larger than 10 MiB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	defer f.Close()

	res, err := h.svc.UploadInvoice(c.Request.Context(), id, fh.Filename, f)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DownloadInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	info, rc, err := h.svc.Invoice(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, map[string]string{
		"Content-Disposition": `inline; filename="po-invoice-` + strconv.FormatUint(id, 10) + extFor(info.ContentType) + `"`,
	})
}

func extFor(ctype string) string {
	if ext, ok := invoiceTypes[ctype]; ok {
		return ext
	}
	return ""
}
