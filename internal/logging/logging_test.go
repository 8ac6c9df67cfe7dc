package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		SetupWriter(&buf, "info", false)

		log.Info().Str("key", "value").Msg("test message")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, "test message", entry["message"])
		require.Equal(t, "info", entry["level"])
		require.Equal(t, "value", entry["key"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		SetupWriter(&buf, "WARN", false)

		log.Info().Msg("skipped")
		require.Empty(t, buf.String())

		log.Warn().Msg("kept")
		require.Contains(t, buf.String(), "kept")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		SetupWriter(&buf, "loud", false)

		require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
		log.Debug().Msg("skipped")
		require.Empty(t, buf.String())
	})
}
