package ulogger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLogger_JSONLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New("analyzer", WithWriter(&buf), WithLevel("WARN"), WithJSON())

	l.Infof("dropped %d", 1)
	l.Warnf("kept %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept 2", entry["message"])
	assert.Equal(t, "analyzer", entry["service"])
}

func TestZeroLogger_SetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("x", WithWriter(&buf), WithJSON())
	assert.Equal(t, int(zerolog.InfoLevel), l.LogLevel())

	l.SetLogLevel("debug")
	assert.Equal(t, int(zerolog.DebugLevel), l.LogLevel())

	l.SetLogLevel("nonsense")
	assert.Equal(t, int(zerolog.InfoLevel), l.LogLevel())
}

func TestZeroLogger_PrettyAndChild(t *testing.T) {
	var buf bytes.Buffer
	l := New("root", WithWriter(&buf))
	l.New("child").Errorf("boom")

	out := buf.String()
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "child")
	assert.Contains(t, out, "boom")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Infof("nothing %s", "here")
	assert.Same(t, l, l.New("other"))
}
