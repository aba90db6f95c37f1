package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestComponentLoggers(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, zerolog.DebugLevel)

	ForPager("slickdeals").Info().Int("page", 2).Msg("Extracted view")

	out := buf.String()
	assert.Contains(t, out, `"component":"pager"`)
	assert.Contains(t, out, `"profile":"slickdeals"`)
	assert.Contains(t, out, `"page":2`)
	assert.Contains(t, out, "Extracted view")
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, zerolog.InfoLevel)

	LogError("worker", errors.New("browser crashed"), "run %s failed", "abc")

	out := buf.String()
	assert.Contains(t, out, `"component":"worker"`)
	assert.Contains(t, out, "browser crashed")
	assert.Contains(t, out, "run abc failed")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, zerolog.WarnLevel)

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}
