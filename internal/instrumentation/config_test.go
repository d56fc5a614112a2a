package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	for _, key := range []string{
		"OTEL_SERVICE_NAME", "OTEL_SERVICE_INSTANCE_ID", "INSTRUMENTATION_ENABLED",
		"METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_TRACES_SAMPLER_ARG",
	} {
		t.Setenv(key, "")
	}

	config := DefaultConfig()

	assert.Equal(t, "zoom-recordings-backup", config.ServiceName)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterPrometheus, config.MetricsExporter)
	assert.Equal(t, ExporterNone, config.TracingExporter)
	assert.False(t, config.OTLPInsecure)
	assert.Equal(t, 1.0, config.TraceSamplingRate)
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "backup-nightly")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "otlp")
	t.Setenv("TRACING_EXPORTER", "stdout")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	config := DefaultConfig()

	assert.Equal(t, "backup-nightly", config.ServiceName)
	assert.False(t, config.Enabled)
	assert.Equal(t, ExporterOTLP, config.MetricsExporter)
	assert.Equal(t, ExporterStdout, config.TracingExporter)
	assert.Equal(t, "localhost:4318", config.OTLPEndpoint)
	assert.True(t, config.OTLPInsecure)
	assert.Equal(t, 0.25, config.TraceSamplingRate)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid defaults",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 1},
		},
		{
			name:   "empty exporters",
			config: Config{TraceSamplingRate: 0.5},
		},
		{
			name:    "sampling rate above one",
			config:  Config{TraceSamplingRate: 1.5},
			wantErr: "sampling rate",
		},
		{
			name:    "negative sampling rate",
			config:  Config{TraceSamplingRate: -0.1},
			wantErr: "sampling rate",
		},
		{
			name:    "unknown metrics exporter",
			config:  Config{MetricsExporter: "statsd"},
			wantErr: "invalid metrics exporter",
		},
		{
			name:    "unknown tracing exporter",
			config:  Config{TracingExporter: "jaeger"},
			wantErr: "invalid tracing exporter",
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{TracingExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:    "otlp metrics without endpoint",
			config:  Config{MetricsExporter: ExporterOTLP},
			wantErr: "OTLP endpoint is required",
		},
		{
			name:   "otlp with endpoint",
			config: Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("ZRB_TEST_BOOL", "not-a-bool")
	assert.True(t, getEnvBoolOrDefault("ZRB_TEST_BOOL", true))

	t.Setenv("ZRB_TEST_BOOL", "0")
	assert.False(t, getEnvBoolOrDefault("ZRB_TEST_BOOL", true))
}

func TestGetEnvFloatOrDefault(t *testing.T) {
	t.Setenv("ZRB_TEST_FLOAT", "abc")
	assert.Equal(t, 0.1, getEnvFloatOrDefault("ZRB_TEST_FLOAT", 0.1))

	t.Setenv("ZRB_TEST_FLOAT", "0.75")
	assert.Equal(t, 0.75, getEnvFloatOrDefault("ZRB_TEST_FLOAT", 0.1))
}
