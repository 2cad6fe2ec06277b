package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order-api", cfg.ServiceName)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("SERVICE_TZ", "Europe/Paris")
	t.Setenv("ALLOWED_ORIGIN", "https://kiosk.example.com")

	cfg := Load()
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "Europe/Paris", cfg.Location.String())
	assert.Equal(t, "https://kiosk.example.com", cfg.AllowedOrigin)
}

func TestLoadBadTimezoneFallsBack(t *testing.T) {
	t.Setenv("SERVICE_TZ", "Mars/Olympus")
	cfg := Load()
	assert.Equal(t, time.Local, cfg.Location)
}
