// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package config loads and validates the twelve-factor environment surface
// described in spec §6. Every required field must resolve or Load
// fails closed, matching the teacher's "config absent is fatal" posture.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the fully resolved, validated application configuration.
type AppConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	DBPath   string `mapstructure:"db_path" validate:"required"`

	PublicBaseURL      string `mapstructure:"public_base_url" validate:"required"`
	OutgoingRoutePrefix string `mapstructure:"outgoing_route_prefix" validate:"required"`
	IncomingRoutePrefix string `mapstructure:"incoming_route_prefix" validate:"required"`

	Telephony TelephonyConfig `mapstructure:"telephony" validate:"required"`
	CRM       CRMConfig       `mapstructure:"crm" validate:"required"`
	VoiceAI   VoiceAIConfig   `mapstructure:"voiceai" validate:"required"`
	Notifier  NotifierConfig  `mapstructure:"notifier" validate:"required"`

	LLMAPIKey  string `mapstructure:"llm_api_key"`
	SheetID    string `mapstructure:"zip_sheet_id"`

	MaxActiveCalls          int  `mapstructure:"max_active_calls"`
	EnablePostCallAnalysis  bool `mapstructure:"enable_post_call_analysis"`
	QueueTickIntervalSecs   int  `mapstructure:"queue_tick_interval_seconds"`
	DefaultAppointmentAddr  string `mapstructure:"default_appointment_address"`

	RepUserIDsByService map[string][]string `mapstructure:"-"`
}

// TelephonyConfig carries the telephony-provider credentials and numbers.
type TelephonyConfig struct {
	AccountSID      string `mapstructure:"account_sid" validate:"required"`
	AuthToken       string `mapstructure:"auth_token" validate:"required"`
	OutboundNumber1 string `mapstructure:"outbound_number_1" validate:"required"`
	OutboundNumber2 string `mapstructure:"outbound_number_2" validate:"required"`
}

// CRMConfig carries the CRM OAuth app registration and scoping identifiers.
type CRMConfig struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	RedirectURL  string `mapstructure:"redirect_url" validate:"required"`
	LocationID   string `mapstructure:"location_id" validate:"required"`
	CalendarID   string `mapstructure:"calendar_id" validate:"required"`
	BaseURL      string `mapstructure:"base_url" validate:"required"`
}

// VoiceAIConfig carries the voice-AI provider key, agent ids and webhook secret.
type VoiceAIConfig struct {
	APIKey          string `mapstructure:"api_key" validate:"required"`
	InboundAgentID  string `mapstructure:"inbound_agent_id" validate:"required"`
	OutboundAgentID string `mapstructure:"outbound_agent_id" validate:"required"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	BaseURL         string `mapstructure:"base_url" validate:"required"`
}

// NotifierConfig carries the chat-webhook notification target.
type NotifierConfig struct {
	WebhookURL string `mapstructure:"webhook_url" validate:"required"`
}

// InitConfig wires viper with "__" key-nesting (mirrors POSTGRES__HOST-style
// env vars) and an optional .env file referenced via ENV_PATH.
func InitConfig() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if path := os.Getenv("ENV_PATH"); path != "" {
		log.Printf("loading config from ENV_PATH=%s", path)
		v.SetConfigFile(path)
	}

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("falling back to environment variables: %v", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PATH", "./data/orchestrator.db")
	v.SetDefault("OUTGOING_ROUTE_PREFIX", "/outgoing")
	v.SetDefault("INCOMING_ROUTE_PREFIX", "/incoming")
	v.SetDefault("MAX_ACTIVE_CALLS", 3)
	v.SetDefault("ENABLE_POST_CALL_ANALYSIS", true)
	v.SetDefault("QUEUE_TICK_INTERVAL_SECONDS", 10)
	v.SetDefault("DEFAULT_APPOINTMENT_ADDRESS", "Via Roma 1, 00100 Roma (RM)")
}

// Load reads, unmarshals and validates the configuration, exiting the
// fail-closed path to the caller as an error rather than os.Exit — the
// composition root decides fatality (spec §7 "Config absent").
func Load() (*AppConfig, error) {
	v, err := InitConfig()
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.QueueTickIntervalSecs > 0 && cfg.QueueTickIntervalSecs < 5 {
		cfg.QueueTickIntervalSecs = 5
	}
	if cfg.QueueTickIntervalSecs == 0 {
		cfg.QueueTickIntervalSecs = 10
	}
	if cfg.MaxActiveCalls <= 0 {
		cfg.MaxActiveCalls = 3
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
