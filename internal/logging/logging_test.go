package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, closer, err := New(Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Str("stage", "overlay").Msg("stage finished")
	logger.Debug().Msg("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, "overlay", event["stage"])
	assert.Equal(t, "info", event["level"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	logger, id := WithRunID(zerolog.New(&buf))
	logger.Info().Msg("hello")
	assert.Len(t, id, 36)
	assert.Contains(t, buf.String(), `"run_id":"`+id+`"`)
}

func TestTimer(t *testing.T) {
	var buf bytes.Buffer
	done := Timer(zerolog.New(&buf), "load")
	done()
	assert.Contains(t, buf.String(), `"message":"load finished"`)
	assert.Contains(t, buf.String(), `"elapsed"`)
}


func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "regular files are not terminals")
}
