package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerWritesAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.With("component", "claims").WithGroup("pack").Info("claim issued", "id", "p1", slog.Group("member", "premium", true))

	out := buf.String()
	require.Contains(t, out, "claim issued")
	require.Contains(t, out, "component"+reset+"=claims")
	require.Contains(t, out, "pack.id"+reset+"=p1")
	require.Contains(t, out, "pack.member.premium"+reset+"=true")
}

func TestPrettyHandlerFiltersLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestNewSelectsFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, isJSON := New("json", "debug", &buf).(*slog.JSONHandler)
	require.True(t, isJSON)

	_, isPretty := New("pretty", "info", &buf).(*PrettyHandler)
	require.True(t, isPretty)

	require.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
