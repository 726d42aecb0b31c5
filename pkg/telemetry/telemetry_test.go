package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goim-friend/pkg/config"
)

func TestFromAppConfig(t *testing.T) {
	c := FromAppConfig(
		config.AppConfig{Name: "friend-service", Version: "2.0.0"},
		config.TelemetryConfig{Exporter: "otlp", OTLPEndpoint: "collector:4318", SampleRate: 0.25},
	)
	assert.Equal(t, "friend-service", c.ServiceName)
	assert.Equal(t, "2.0.0", c.ServiceVersion)
	assert.Equal(t, "otlp", c.ExporterType)
	assert.Equal(t, "collector:4318", c.OTLPEndpoint)
	assert.Equal(t, 0.25, c.SampleRate)

	d := FromAppConfig(config.AppConfig{Name: "friend-service"}, config.TelemetryConfig{})
	assert.Equal(t, "stdout", d.ExporterType)
	assert.Equal(t, 1.0, d.SampleRate)
}

func TestProviderWithoutExporterStillTraces(t *testing.T) {
	c := DefaultConfig("friend-service")
	c.ExporterType = "none"

	p, err := NewProvider(c)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := p.StartSpan(context.Background(), "test")
	defer span.End()
	assert.True(t, span.SpanContext().HasTraceID())
}
