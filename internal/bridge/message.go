// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package bridge

// telephonyFrame is the subset of the telephony media-stream frame
// protocol the bridge reads and writes (spec §4.8): start/media/stop/mark
// events, each carrying only the fields this bridge touches.
type telephonyFrame struct {
	Event          string                 `json:"event"`
	StreamSID      string                 `json:"streamSid,omitempty"`
	Start          *telephonyStart        `json:"start,omitempty"`
	Media          *telephonyMedia        `json:"media,omitempty"`
	Mark           *telephonyMark         `json:"mark,omitempty"`
}

type telephonyStart struct {
	StreamSID     string            `json:"streamSid"`
	CallSID       string            `json:"callSid"`
	CustomParams  map[string]string `json:"customParameters"`
}

type telephonyMedia struct {
	Payload string `json:"payload"`
}

type telephonyMark struct {
	Name string `json:"name"`
}

// outMediaFrame is what the bridge writes back to the telephony socket to
// play AI-generated audio (spec §4.8 step 5).
type outMediaFrame struct {
	Event     string             `json:"event"`
	StreamSID string             `json:"streamSid"`
	Media     outMediaPayload    `json:"media"`
}

type outMediaPayload struct {
	Payload string `json:"payload"`
}

// outClearFrame asks telephony to flush playback buffers on an
// interruption (spec §4.8 step 6).
type outClearFrame struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

// aiMessage is the envelope for every JSON message exchanged with the
// voice-AI socket. Only the fields relevant to a given Type are populated;
// unused fields are omitted on send and ignored on receive.
type aiMessage struct {
	Type string `json:"type"`

	// client -> server (initiation)
	ConversationConfig *conversationInitiation `json:"conversation_config_override,omitempty"`
	DynamicVariables   map[string]interface{}  `json:"dynamic_variables,omitempty"`

	// client -> server (user audio)
	UserAudioChunk string `json:"user_audio_chunk,omitempty"`

	// server -> client (audio)
	AudioEvent *aiAudioEvent `json:"audio_event,omitempty"`

	// bidirectional ping/pong
	PingEvent *aiPingEvent `json:"ping_event,omitempty"`
	EventID   int          `json:"event_id,omitempty"`

	// server -> client (metadata)
	ConversationInitiationMetadataEvent *aiMetadataEvent `json:"conversation_initiation_metadata_event,omitempty"`

	// server -> client (function call)
	FunctionCall *aiFunctionCall `json:"function_call,omitempty"`

	// client -> server (function call response)
	FunctionCallResponse *aiFunctionCallResponse `json:"function_call_response,omitempty"`
}

type conversationInitiation struct {
	Agent aiAgentOverride `json:"agent"`
}

type aiAgentOverride struct {
	FirstMessage string `json:"first_message,omitempty"`
}

type aiAudioEvent struct {
	AudioBase64 string `json:"audio_base_64"`
}

type aiPingEvent struct {
	EventID int `json:"event_id"`
}

type aiMetadataEvent struct {
	ConversationID string `json:"conversation_id"`
}

type aiFunctionCall struct {
	CallID    string          `json:"tool_call_id"`
	Name      string          `json:"name"`
	Arguments aiFunctionArgs  `json:"arguments"`
}

type aiFunctionArgs struct {
	AppointmentDate string `json:"appointmentDate"`
	Address         string `json:"address,omitempty"`
}

type aiFunctionCallResponse struct {
	Type      string `json:"type"`
	CallID    string `json:"tool_call_id"`
	Result    string `json:"result"`
	IsError   bool   `json:"is_error,omitempty"`
}
