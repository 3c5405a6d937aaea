// @title           LIMS Lab Inventory API
// @version         1.0
// @description     Lab seats, offices, workstations and equipment of the department.
// @BasePath        /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"LIMS-backend/internal/directory/rooms"
	"LIMS-backend/internal/platform/blob"
	"LIMS-backend/internal/platform/config"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/notify"
	"LIMS-backend/internal/server"
)

func main() {
	path := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Init(cfg.Log)
	log := logging.Log
	log.Infof("mode:%s version:%s", cfg.Mode, cfg.Version)

	ctx := context.Background()

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Infof("connected to %s database %s", cfg.DB.Driver, cfg.DB.DBName+cfg.DB.Path)

	labs := make([]rooms.LabSpec, 0, len(cfg.Labs))
	for _, l := range cfg.Labs {
		labs = append(labs, rooms.LabSpec{Name: l.Name, Capacity: l.Capacity, StaffInCharge: l.StaffInCharge})
	}
	if err := rooms.NewService(conn).Bootstrap(ctx, labs, cfg.Offices); err != nil {
		log.Fatalf("bootstrap rooms: %v", err)
	}

	sink, closeSink, err := notify.NewSink(cfg.Notify)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSink()
	dispatcher := notify.NewDispatcher(sink, cfg.Notify.QueueSize)
	dispatcher.Start()
	defer dispatcher.Close()

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.New(server.Deps{DB: conn, Config: cfg, Notifier: dispatcher, Blobs: blobs})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.Certificate.Cert != "" {
			dir := "config/tls/" + cfg.Mode + "/"
			log.Infof("listening on https://%s", srv.Addr)
			err = srv.ListenAndServeTLS(dir+cfg.Certificate.Cert, dir+cfg.Certificate.Key)
		} else {
			log.Infof("listening on http://%s", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err)
	}
}
