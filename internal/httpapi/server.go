// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package httpapi wires every collaborator built by the composition root
// onto the gin engine described in spec §6: the outbound/inbound call
// routes, availability and booking endpoints, the post-call webhook, the
// follow-up trigger, and the CRM OAuth dance.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ristrutturiamolo/call-orchestrator/internal/booking"
	"github.com/ristrutturiamolo/call-orchestrator/internal/bridge"
	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/followup"
	"github.com/ristrutturiamolo/call-orchestrator/internal/inbound"
	"github.com/ristrutturiamolo/call-orchestrator/internal/intake"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/postcall"
	"github.com/ristrutturiamolo/call-orchestrator/internal/retry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/voiceai"
)

// CallRecordStore is the lookup the TwiML route needs to recover the
// identity fields a placed call was queued with (spec §4.8 step 1's
// custom parameters are sourced from here, not from Twilio's webhook body).
type CallRecordStore interface {
	GetCallRecord(callSID string) (*store.CallRecord, error)
}

// IncomingCallStatusStore lets the inbound status callback mirror the
// telephony provider's status onto the incoming_calls row.
type IncomingCallStatusStore interface {
	UpdateIncomingCall(callSID string, updates map[string]interface{}) error
}

// RepRouter resolves eligible reps for (service, province), shared with
// the Intake Endpoint (spec §4.3).
type RepRouter interface {
	RepsFor(service, province string) ([]string, error)
}

// FollowUpCreator persists a manually-requested follow-up (spec §6:
// `POST /followup`).
type FollowUpCreator interface {
	CreateFollowUp(f *store.FollowUp) error
}

// Deps carries every collaborator the route layer dispatches to. The
// composition root builds each of these; httpapi never constructs one.
type Deps struct {
	Intake   *intake.Handler
	Retry    *retry.Scheduler
	Slots    *slots.Service
	Booker   *booking.Coordinator
	Followup *followup.Scheduler
	Postcall *postcall.Pipeline
	Inbound  *inbound.Handler
	Bridge   *bridge.Manager
	CRM      *crmclient.Client
	VoiceAI  *voiceai.Client
	Notifier *notifier.Notifier
	Router    RepRouter
	Calls     CallRecordStore
	Incoming  IncomingCallStatusStore
	FollowUps FollowUpCreator
	Logger    telemetry.Logger
}

// Config carries the scoping identifiers and tunables the route layer
// needs beyond its collaborators (spec §6).
type Config struct {
	LocationID     string
	CalendarID     string
	DefaultAddress string
}

// New builds the gin engine and registers every route in spec §6.
func New(deps Deps, cfg Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "elevenlabs-signature"},
		MaxAge:          12 * time.Hour,
	}))
	engine.Use(requestIDMiddleware())
	engine.Use(requestLogger(deps.Logger))

	h := &handlers{deps: deps, cfg: cfg}

	engine.GET("/", h.health)

	outgoing := engine.Group("/outgoing")
	outgoing.POST("/outbound-call", h.outboundCall)
	outgoing.POST("/call-status", h.callStatus)
	outgoing.Any("/outbound-call-twiml", h.outboundCallTwiML)
	outgoing.GET("/outbound-media-stream", h.outboundMediaStream)

	incoming := engine.Group("/incoming")
	incoming.POST("/incoming-call", h.incomingCall)
	incoming.GET("/inbound-media-stream", h.inboundMediaStream)
	incoming.POST("/inbound-call-status", h.inboundCallStatus)

	engine.GET("/availableSlotsOutbound", h.availableSlotsOutbound)
	engine.GET("/availableSlotsInbound", h.availableSlotsInbound)

	engine.POST("/bookAppointment", h.bookAppointment)
	engine.POST("/updateContactAddress", h.updateContactAddress)

	engine.POST("/followup", h.createFollowUp)
	engine.POST("/followup/trigger", h.triggerFollowUp)

	engine.POST("/elevenlabs/webhook", h.elevenlabsWebhook)

	engine.GET("/gohighlevel/auth", h.oauthAuth)
	engine.GET("/hl/callback", h.oauthCallback)

	return engine
}

type handlers struct {
	deps Deps
	cfg  Config
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestIDMiddleware stamps every request with a correlation id the
// handlers pass through to operator notifications (spec §7: "every
// notification carries ... request id when available").
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func requestLogger(logger telemetry.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID(c),
		)
	}
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
