package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "info", "text")
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("fetch", "network", "sepolia")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=fetch")
	assert.Contains(t, out, "network=sepolia")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "debug", "json")
	require.NoError(t, err)

	l.Debug("probe", "err", "no wallet")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "probe", rec["msg"])
	assert.Equal(t, "no wallet", rec["err"])
}

func TestNewLoggerInvalid(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)

	_, err = newLogger(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestErrorLine(t *testing.T) {
	assert.Contains(t, errorLine(errors.New("boom")), "boom")
}
