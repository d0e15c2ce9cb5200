// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Command server is the composition root: it loads config, wires every
// collaborator, mounts the gin engine and runs the background queue and
// follow-up sweepers until an interrupt asks it to shut down (spec §6/§7).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/booking"
	"github.com/ristrutturiamolo/call-orchestrator/internal/bridge"
	"github.com/ristrutturiamolo/call-orchestrator/internal/config"
	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/followup"
	"github.com/ristrutturiamolo/call-orchestrator/internal/httpapi"
	"github.com/ristrutturiamolo/call-orchestrator/internal/inbound"
	"github.com/ristrutturiamolo/call-orchestrator/internal/intake"
	"github.com/ristrutturiamolo/call-orchestrator/internal/llmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/postcall"
	"github.com/ristrutturiamolo/call-orchestrator/internal/queueworker"
	"github.com/ristrutturiamolo/call-orchestrator/internal/retry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/salesrep"
	"github.com/ristrutturiamolo/call-orchestrator/internal/sheets"
	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telephony"
	"github.com/ristrutturiamolo/call-orchestrator/internal/voiceai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.New(telemetry.Options{Level: cfg.LogLevel, LogFile: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("starting call-orchestrator", "host", cfg.Host, "port", cfg.Port)

	conn, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Errorw("store: open failed", "error", err.Error())
		os.Exit(1)
	}
	if err := conn.Migrate(); err != nil {
		logger.Errorw("store: migrate failed", "error", err.Error())
		os.Exit(1)
	}

	notif := notifier.New(cfg.Notifier.WebhookURL, logger)
	crm := crmclient.New(cfg.CRM, conn, logger)
	tel := telephony.New(cfg.Telephony, logger)
	voice := voiceai.New(cfg.VoiceAI)

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var zips *sheets.ZipProvinceCache
	if cfg.SheetID != "" {
		zips, err = sheets.New(appCtx, cfg.VoiceAI.APIKey, cfg.SheetID, "A:B", logger)
		if err != nil {
			logger.Warnw("sheets: zip cache unavailable, province resolution falls back to LLM only", "error", err.Error())
		}
	}
	llm := llmclient.New(cfg.LLMAPIKey, "claude-3-5-haiku-latest", logger)

	repRouter := salesrep.New(conn)
	slotSvc := slots.New(crm)
	booker := booking.New(crm, cfg.CRM.LocationID, cfg.CRM.CalendarID, cfg.DefaultAppointmentAddr)

	intakeHandler := intake.New(crm, repRouter, slotSvc, voice, conn, notif, zipLookup(zips), llm, intake.Config{
		LocationID: cfg.CRM.LocationID,
		CalendarID: cfg.CRM.CalendarID,
	}, logger)

	retryScheduler := retry.New(conn, tel, notif, logger)

	worker := queueworker.New(conn, tel, crm, notif, logger, queueworker.Config{
		MaxActiveCalls:    cfg.MaxActiveCalls,
		TickInterval:      time.Duration(cfg.QueueTickIntervalSecs) * time.Second,
		LocationID:        cfg.CRM.LocationID,
		StatusCallbackURL: cfg.PublicBaseURL + cfg.OutgoingRoutePrefix + "/call-status",
		TwimlURL:          cfg.PublicBaseURL + cfg.OutgoingRoutePrefix + "/outbound-call-twiml",
	})

	postcallPipeline := postcall.New(conn, crm, booker, llm, notif, logger, cfg.CRM.LocationID, cfg.EnablePostCallAnalysis)
	followupScheduler := followup.New(conn, crm, intakeHandler, notif, logger, cfg.CRM.LocationID)

	inboundHandler := inbound.New(slotSvc, voice, conn, logger, inbound.Config{
		LocationID: cfg.CRM.LocationID,
		CalendarID: cfg.CRM.CalendarID,
		MediaWSURL: cfg.PublicBaseURL + cfg.IncomingRoutePrefix + "/inbound-media-stream",
	})

	bridgeManager := bridge.NewManager(conn, conn, voice, booker, notif, logger, bridge.Config{
		LocationID: cfg.CRM.LocationID,
	})

	engine := httpapi.New(httpapi.Deps{
		Intake:    intakeHandler,
		Retry:     retryScheduler,
		Slots:     slotSvc,
		Booker:    booker,
		Followup:  followupScheduler,
		Postcall:  postcallPipeline,
		Inbound:   inboundHandler,
		Bridge:    bridgeManager,
		CRM:       crm,
		VoiceAI:   voice,
		Notifier:  notif,
		Router:    repRouter,
		Calls:     conn,
		Incoming:  conn,
		FollowUps: conn,
		Logger:    logger,
	}, httpapi.Config{
		LocationID:     cfg.CRM.LocationID,
		CalendarID:     cfg.CRM.CalendarID,
		DefaultAddress: cfg.DefaultAppointmentAddr,
	})

	go worker.Run(appCtx)
	go followupScheduler.Run(appCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("http server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()
	logger.Infow("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("forced shutdown", "error", err.Error())
		os.Exit(1)
	}
	logger.Infow("server stopped")
}

// zipLookup adapts a possibly-nil *sheets.ZipProvinceCache to
// timeutil.ZipLookup — a nil cache means the sheet wasn't configured, and
// every lookup reports not-found so province resolution falls through to
// the LLM strategy (spec §4.1 strategy c).
func zipLookup(z *sheets.ZipProvinceCache) nilSafeZipLookup {
	return nilSafeZipLookup{cache: z}
}

type nilSafeZipLookup struct {
	cache *sheets.ZipProvinceCache
}

func (n nilSafeZipLookup) Lookup(ctx context.Context, zip string) (string, bool, error) {
	if n.cache == nil {
		return "", false, nil
	}
	return n.cache.Lookup(ctx, zip)
}
