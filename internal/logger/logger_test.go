package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", ServiceName: "approval-chains", Version: "1.2.3", Output: &buf})

	log.Component("chain_builder").Info().Str("request_type", "cash").Msg("built")
	log.Debug().Msg("suppressed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "approval-chains", line["service"])
	assert.Equal(t, "1.2.3", line["version"])
	assert.Equal(t, "chain_builder", line["component"])
	assert.Equal(t, "cash", line["request_type"])
	assert.Equal(t, "built", line["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}
