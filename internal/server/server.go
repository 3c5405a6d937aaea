// Package server assembles every feature package into one gin engine.
package server

import (
	"database/sql"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "LIMS-backend/docs"
	"LIMS-backend/internal/allocation"
	"LIMS-backend/internal/directory/people"
	"LIMS-backend/internal/directory/rooms"
	"LIMS-backend/internal/inventory/categories"
	"LIMS-backend/internal/inventory/deptcode"
	"LIMS-backend/internal/inventory/equipment"
	"LIMS-backend/internal/inventory/workstations"
	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/blob"
	"LIMS-backend/internal/platform/config"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/metrics"
	"LIMS-backend/internal/platform/notify"
	"LIMS-backend/internal/provisioning"
	"LIMS-backend/internal/reporting"
)

type Deps struct {
	DB       *sql.DB
	Config   *config.Config
	Notifier notify.Notifier
	Blobs    blob.Store
}

func labMeta(labs []config.Lab) []reporting.LabMeta {
	out := make([]reporting.LabMeta, 0, len(labs))
	for _, l := range labs {
		out = append(out, reporting.LabMeta{
			Name:            l.Name,
			StaffInCharge:   l.StaffInCharge,
			FacultyInCharge: l.FacultyInCharge,
			MeetingRooms:    l.MeetingRooms,
		})
	}
	return out
}

// New builds the engine. Routes live under /api/v1; /healthz, /metrics and
// /swagger stay outside the auth middleware.
func New(d Deps) *gin.Engine {
	cfg := d.Config
	conn := d.DB
	n := d.Notifier
	if n == nil {
		n = notify.Nop{}
	}

	r := gin.New()
	r.Use(logging.GinLogger(), gin.Recovery(), metrics.Middleware())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		origins := cfg.Server.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if err := conn.PingContext(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	accounts := auth.NewService(conn, auth.Config{
		Secret:       []byte(cfg.Auth.JWTSecret),
		TokenTTL:     cfg.Auth.TokenTTL,
		AdminEmails:  cfg.Auth.AdminEmails,
		EmailDomains: cfg.Institution.EmailDomains,
	}, n)
	dir := people.NewService(conn, accounts.Emails(), accounts, n)
	roomSvc := rooms.NewService(conn)
	codes := deptcode.New(deptcode.Config{
		Prefix:   cfg.Institution.DeptPrefix,
		PadWidth: cfg.Institution.PadWidth,
		Initials: cfg.Institution.IndenterInitials,
	})
	wsSvc := workstations.NewService(conn, codes, d.Blobs)
	eqSvc := equipment.NewService(conn, codes)
	alloc := allocation.NewService(conn,
		allocation.Config{SharedStaffRoom: cfg.Allocation.SharedStaffRoom},
		dir, wsSvc.Store(), eqSvc.Store(), n)
	reports := reporting.NewService(conn, wsSvc.Store(), eqSvc.Store(), alloc, labMeta(cfg.Labs), cfg.Institution.Name)

	api := r.Group("/api/v1")
	auth.RegisterPublicRoutes(api, accounts, auth.NewIPLimiter(cfg.Auth.LoginRatePerMinute), cfg.Mode == "release")

	authed := api.Group("", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))

	auth.RegisterRoutes(authed, accounts)
	auth.RegisterAdminRoutes(admin, accounts)
	people.RegisterRoutes(authed, admin, dir)
	rooms.RegisterRoutes(authed, admin, roomSvc)
	workstations.RegisterRoutes(authed, admin, wsSvc)
	equipment.RegisterRoutes(authed, admin, eqSvc)
	categories.RegisterRoutes(authed, admin, categories.NewService(conn))
	allocation.RegisterRoutes(authed, admin, alloc)
	reporting.RegisterRoutes(authed, reports)
	provisioning.RegisterRoutes(authed, provisioning.NewService(conn))

	return r
}
