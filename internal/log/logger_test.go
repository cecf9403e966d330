package log

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerCarriesModule(t *testing.T) {
	var buf bytes.Buffer
	l := CreateModuleLogger("relay", NewWriterLogger(&buf))
	l.Warnf("unknown id %s", "r9")

	assert.Contains(t, buf.String(), `"module":"relay"`)
	assert.Contains(t, buf.String(), `"message":"unknown id r9"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestParseFormatAndLevel(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONFormat, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}
