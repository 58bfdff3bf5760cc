package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is populated from KIOSK_* environment variables.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	KioskID  string `envconfig:"ID" default:"kiosk-1"`

	// Empty DSN runs the kiosk on the in-memory store.
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	HuebschBaseURL    string `envconfig:"HUEBSCH_BASE_URL" default:"http://localhost:9090"`
	CleanCloudBaseURL string `envconfig:"CLEANCLOUD_BASE_URL" default:"https://cleancloudapp.com"`
	CleanCloudAPIKey  string `envconfig:"CLEANCLOUD_API_KEY"`
	PaymentsBaseURL   string `envconfig:"PAYMENTS_BASE_URL" default:"http://localhost:9091"`

	// Bound on every outbound call; no external call may hang the kiosk.
	HTTPClientTimeout time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("kiosk", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
