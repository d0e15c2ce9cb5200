// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package bridge implements the Media Bridge (spec §4.8): per live call, a
// task owning the telephony media socket and the voice-AI socket, pumping
// audio between them and handling the AI's book_appointment function call.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ristrutturiamolo/call-orchestrator/internal/booking"
	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
	"github.com/ristrutturiamolo/call-orchestrator/internal/voiceai"
)

// businessNameByService maps the requested service to the brand name read
// out by the agent (spec §4.8 step 4).
var businessNameByService = map[string]string{
	store.ServiceInfissi: "Ristrutturiamolo",
	store.ServiceVetrate: "UNICOVETRATE",
	store.ServicePergole: "UNICOVETRATE",
}

// chosenSlotPattern parses the AI's chosen appointment time, which may
// carry a trailing legend letter: "17-03-2025 10:00 (A)".
var chosenSlotPattern = regexp.MustCompile(`^(\d{2}-\d{2}-\d{4})\s+(\d{2}:\d{2})(?:\s*\(([A-Za-z])\))?\s*$`)

// CallStore is the persistence dependency for the calls row this bridge
// owns.
type CallStore interface {
	GetCallRecord(callSID string) (*store.CallRecord, error)
	UpdateCallRecord(callSID string, updates map[string]interface{}) error
}

// IncomingCallStore is the persistence dependency for the incoming_calls
// mirror row the inbound variant of this bridge owns (spec §4.12).
type IncomingCallStore interface {
	GetIncomingCall(callSID string) (*store.IncomingCall, error)
	UpdateIncomingCall(callSID string, updates map[string]interface{}) error
}

// callContext normalizes the fields the bridge needs regardless of whether
// the live stream is backed by a CallRecord (outbound) or an IncomingCall
// (inbound, spec §4.12's "smaller dynamic-variable set").
type callContext struct {
	inbound        bool
	signedURL      string
	service        string
	province       string
	availableSlots string
}

// Booker books appointments from within the live conversation.
type Booker interface {
	Book(ctx context.Context, req booking.Request) booking.Outcome
}

// Dialer opens the voice-AI WebSocket. Narrowed to exactly what the bridge
// needs so tests can substitute a fake without standing up a real socket.
type Dialer interface {
	Dial(ctx context.Context, signedURL string) (*websocket.Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, signedURL string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, signedURL, nil)
	return conn, err
}

// Config carries the identifiers a Manager needs beyond its collaborators.
type Config struct {
	LocationID string
}

// Manager constructs per-call Call tasks. One Manager is shared by the
// outbound and inbound media-stream routes.
type Manager struct {
	calls    CallStore
	incoming IncomingCallStore
	voiceai  *voiceai.Client
	booker   Booker
	notifier *notifier.Notifier
	logger   telemetry.Logger
	dialer   Dialer
	cfg      Config
}

// NewManager constructs a Manager.
func NewManager(calls CallStore, incoming IncomingCallStore, voice *voiceai.Client, booker Booker, notif *notifier.Notifier, logger telemetry.Logger, cfg Config) *Manager {
	return &Manager{calls: calls, incoming: incoming, voiceai: voice, booker: booker, notifier: notif, logger: logger, dialer: gorillaDialer{}, cfg: cfg}
}

// call is the live state for one bridged conversation.
type call struct {
	mgr         *Manager
	telephony   *websocket.Conn
	ai          *websocket.Conn
	streamSID   string
	callSID     string
	contactID   string
	callerNumber string
	ctx         callContext
	writeMu     sync.Mutex
	aiWriteMu   sync.Mutex
}

// Serve runs the full per-call lifecycle against an already-upgraded
// telephony WebSocket connection (spec §4.8). It blocks until the call
// ends, either side closes, or ctx is cancelled.
func (m *Manager) Serve(ctx context.Context, telephonyConn *websocket.Conn) {
	c := &call{mgr: m, telephony: telephonyConn}
	defer c.telephony.Close()

	start, err := c.awaitStart()
	if err != nil {
		m.logger.Warnw("bridge: failed to read telephony start frame", "error", err.Error())
		return
	}
	c.streamSID = start.StreamSID
	c.callSID = start.CallSID
	c.contactID = start.CustomParams["contactId"]
	c.callerNumber = start.CustomParams["callerNumber"]

	cctx, err := m.resolveCallContext(c.callSID, c.contactID != "")
	if err != nil {
		m.logger.Errorw("bridge: call record not found for active stream", "call_sid", c.callSID, "error", err.Error())
		return
	}
	c.ctx = cctx

	signedURL := cctx.signedURL
	if signedURL == "" {
		agent := voiceai.Outbound
		if cctx.inbound {
			agent = voiceai.Inbound
		}
		signedURL, err = m.voiceai.SignedURL(ctx, agent)
		if err != nil {
			m.logger.Errorw("bridge: failed to mint fresh signed url", "call_sid", c.callSID, "error", err.Error())
			return
		}
	}

	aiConn, err := m.dialer.Dial(ctx, signedURL)
	if err != nil {
		m.logger.Errorw("bridge: failed to dial voice-ai socket", "call_sid", c.callSID, "error", err.Error())
		return
	}
	c.ai = aiConn
	defer c.ai.Close()

	if err := c.sendInitiation(start.CustomParams); err != nil {
		m.logger.Errorw("bridge: failed to send initiation message", "call_sid", c.callSID, "error", err.Error())
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.pumpTelephony(gCtx) })
	g.Go(func() error { return c.pumpAI(gCtx) })

	if err := g.Wait(); err != nil {
		m.logger.Debugw("bridge: call task ended", "call_sid", c.callSID, "reason", err.Error())
	}

	if err := c.markClosed(); err != nil {
		m.logger.Warnw("bridge: failed to mark call closed", "call_sid", c.callSID, "error", err.Error())
	}
}

// resolveCallContext looks up the outbound CallRecord or the inbound
// IncomingCall row depending on which custom parameter the telephony start
// frame carried (spec §4.8 step 2; §4.12).
func (m *Manager) resolveCallContext(callSID string, hasContactID bool) (callContext, error) {
	if hasContactID {
		rec, err := m.calls.GetCallRecord(callSID)
		if err != nil {
			return callContext{}, err
		}
		return callContext{signedURL: rec.SignedURL, service: rec.Service, province: rec.Province, availableSlots: rec.AvailableSlots}, nil
	}

	rec, err := m.incoming.GetIncomingCall(callSID)
	if err != nil {
		return callContext{}, err
	}
	return callContext{inbound: true, signedURL: rec.SignedURL, availableSlots: rec.AvailableSlots}, nil
}

func (c *call) markClosed() error {
	if c.ctx.inbound {
		return c.mgr.incoming.UpdateIncomingCall(c.callSID, map[string]interface{}{"status": "bridge_closed"})
	}
	return c.mgr.calls.UpdateCallRecord(c.callSID, map[string]interface{}{"status": "bridge_closed"})
}

func (c *call) persistConversationID(conversationID string) error {
	if c.ctx.inbound {
		return c.mgr.incoming.UpdateIncomingCall(c.callSID, map[string]interface{}{"conversation_id": conversationID})
	}
	return c.mgr.calls.UpdateCallRecord(c.callSID, map[string]interface{}{"conversation_id": conversationID})
}

func (c *call) awaitStart() (*telephonyStart, error) {
	for {
		_, data, err := c.telephony.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read start: %w", err)
		}
		var frame telephonyFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Event == "start" && frame.Start != nil {
			return frame.Start, nil
		}
	}
}

// sendInitiation sends the single dynamic-variable-carrying initiation
// message (spec §4.8 step 4; §4.12's smaller inbound variant).
func (c *call) sendInitiation(params map[string]string) error {
	dmy, hm := timeutil.UTCToItalian(time.Now().UTC())

	if c.ctx.inbound {
		return c.writeAI(aiMessage{
			Type: "conversation_initiation_client_data",
			DynamicVariables: map[string]interface{}{
				"callerIdentifier": c.callerNumber,
				"nowDate":          dmy,
				"availableSlots":   c.ctx.availableSlots,
			},
		})
	}

	vars := map[string]interface{}{
		"firstName":      params["firstName"],
		"fullName":       params["fullName"],
		"email":          params["email"],
		"phone":          params["phone"],
		"contactId":      params["contactId"],
		"callSid":        c.callSID,
		"service":        c.ctx.service,
		"businessName":   businessNameByService[c.ctx.service],
		"province":       c.ctx.province,
		"nowDate":        dmy,
		"nowTime":        hm,
		"availableSlots": c.ctx.availableSlots,
	}

	var override *conversationInitiation
	abrupt := params["isAbruptEndingRetry"] == "true"
	if abrupt {
		vars["pastCallSummary"] = params["pastCallSummary"]
		vars["originalConversationId"] = params["originalConversationId"]
		override = &conversationInitiation{Agent: aiAgentOverride{
			FirstMessage: "Pronto " + params["firstName"] + "? Era caduta la linea, mi senti?",
		}}
	}

	return c.writeAI(aiMessage{
		Type:               "conversation_initiation_client_data",
		ConversationConfig: override,
		DynamicVariables:   vars,
	})
}

func (c *call) writeAI(msg aiMessage) error {
	c.aiWriteMu.Lock()
	defer c.aiWriteMu.Unlock()
	if c.ai == nil {
		return fmt.Errorf("bridge: voice-ai socket is nil")
	}
	return c.ai.WriteJSON(msg)
}

func (c *call) writeTelephony(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.telephony == nil {
		return fmt.Errorf("bridge: telephony socket is nil")
	}
	return c.telephony.WriteJSON(v)
}

// pumpTelephony reads telephony frames and forwards media/stop events
// (spec §4.8 steps 5 and 10).
func (c *call) pumpTelephony(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := c.telephony.ReadMessage()
		if err != nil {
			return fmt.Errorf("telephony closed: %w", err)
		}

		var frame telephonyFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case "media":
			if frame.Media == nil {
				continue
			}
			if err := c.writeAI(aiMessage{Type: "user_audio", UserAudioChunk: frame.Media.Payload}); err != nil {
				return err
			}
		case "stop":
			return fmt.Errorf("telephony stop")
		}
	}
}

// pumpAI reads voice-AI messages and forwards audio/clear events, answers
// ping, persists the conversation id, and handles function calls (spec
// §4.8 steps 5-9).
func (c *call) pumpAI(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msg aiMessage
		if err := c.ai.ReadJSON(&msg); err != nil {
			if isAbnormalClose(err) {
				c.notifyAbnormalClose(err)
			}
			return fmt.Errorf("voice-ai closed: %w", err)
		}

		switch msg.Type {
		case "audio":
			if msg.AudioEvent == nil {
				continue
			}
			if err := c.writeTelephony(outMediaFrame{
				Event: "media", StreamSID: c.streamSID,
				Media: outMediaPayload{Payload: msg.AudioEvent.AudioBase64},
			}); err != nil {
				return err
			}
		case "interruption":
			if err := c.writeTelephony(outClearFrame{Event: "clear", StreamSID: c.streamSID}); err != nil {
				return err
			}
		case "ping":
			if msg.PingEvent != nil {
				_ = c.writeAI(aiMessage{Type: "pong", EventID: msg.PingEvent.EventID})
			}
		case "conversation_initiation_metadata":
			if msg.ConversationInitiationMetadataEvent != nil {
				if err := c.persistConversationID(msg.ConversationInitiationMetadataEvent.ConversationID); err != nil {
					c.mgr.logger.Warnw("bridge: failed to persist conversation id", "call_sid", c.callSID, "error", err.Error())
				}
			}
		case "function_call":
			if msg.FunctionCall != nil && msg.FunctionCall.Name == "book_appointment" {
				c.handleBookAppointment(ctx, *msg.FunctionCall)
			}
		}
	}
}

func isAbnormalClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived)
}

func (c *call) notifyAbnormalClose(err error) {
	closeErr, _ := err.(*websocket.CloseError)
	code, reason := 0, err.Error()
	if closeErr != nil {
		code, reason = closeErr.Code, closeErr.Text
	}
	c.mgr.notifier.Send(context.Background(), notifier.Notification{
		Severity:  notifier.SeverityWarning,
		ContactID: c.contactID,
		Message:   fmt.Sprintf("voice-ai socket closed abnormally: code=%d reason=%q call_sid=%s", code, reason, c.callSID),
		Err:       err,
	})
}

// handleBookAppointment resolves the rep id from the chosen slot text,
// books via the Coordinator, and replies (spec §4.8 step 9).
func (c *call) handleBookAppointment(ctx context.Context, fn aiFunctionCall) {
	dmy, hm, letter := parseChosenSlot(fn.Arguments.AppointmentDate)
	startUTC, err := timeutil.ItalianToUTC(dmy, hm)
	if err != nil {
		c.replyFunctionCall(fn.CallID, "", fmt.Errorf("could not parse appointment time"))
		return
	}

	repID, err := slots.ParseRepFromDisplay(c.ctx.availableSlots, dmy, hm, letter)
	if err != nil {
		c.mgr.logger.Warnw("bridge: rep id unresolvable, booking without rep filter", "call_sid", c.callSID, "error", err.Error())
	}

	outcome := c.mgr.booker.Book(ctx, booking.Request{
		StartTimeUTC: startUTC,
		ContactID:    c.contactID,
		Address:      fn.Arguments.Address,
		UserID:       repID,
	})

	switch {
	case outcome.Booked != nil:
		c.replyFunctionCall(fn.CallID, "Appuntamento confermato.", nil)
	case len(outcome.Alternatives) > 0:
		c.replyFunctionCall(fn.CallID, alternativesText(outcome.Alternatives), nil)
	default:
		c.replyFunctionCall(fn.CallID, "", fmt.Errorf("nessuno slot alternativo disponibile"))
	}
}

func (c *call) replyFunctionCall(callID, result string, errResult error) {
	resp := aiFunctionCallResponse{Type: "function_call_response", CallID: callID, Result: result}
	if errResult != nil {
		resp.IsError = true
		resp.Result = errResult.Error()
	}
	if err := c.writeAI(aiMessage{Type: "function_call_response", FunctionCallResponse: &resp}); err != nil {
		c.mgr.logger.Warnw("bridge: failed to send function_call_response", "call_sid", c.callSID, "error", err.Error())
	}
}

// alternativesText renders the fallback alternatives into the Italian
// sentence the agent reads back when the requested slot could not be
// booked (spec §4.8 step 9 / §4.9).
func alternativesText(alts []crmclient.RawSlot) string {
	var b strings.Builder
	b.WriteString("Quell'orario non è disponibile. Alternative: ")
	for i, slot := range alts {
		if i > 0 {
			b.WriteString(", ")
		}
		dmy, hm := timeutil.UTCToItalian(slot.DatetimeUTC)
		b.WriteString(dmy + " " + hm)
	}
	return b.String()
}

// parseChosenSlot splits an AI-chosen appointment string into its date,
// time, and optional trailing legend letter (spec §4.8 step 9).
func parseChosenSlot(raw string) (dmy, hm, letter string) {
	m := chosenSlotPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", ""
	}
	return m[1], m[2], m[3]
}
