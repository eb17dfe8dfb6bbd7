package logger

import (
	"bytes"
	"testing"

	"github.com/go-kit/kit/log/level"
	"github.com/stretchr/testify/assert"
)

func TestNew_FiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, "warn")

	level.Info(l).Log("msg", "hidden")
	level.Warn(l).Log("msg", "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "level=warn")
	assert.Contains(t, out, "ts=")
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, "LOUD")
	level.Debug(l).Log("msg", "debug")
	level.Info(l).Log("msg", "info")

	assert.NotContains(t, buf.String(), "msg=debug")
	assert.Contains(t, buf.String(), "msg=info")
}
