package provider

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

func TestGatewayCompleteNormalizesAndTracksUsage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	durable, err := storage.OpenDurable(filepath.Join(dir, "wizard.db"))
	require.NoError(t, err)
	defer durable.Close()
	hot := storage.New(filepath.Join(dir, "hot"))

	reg := New(durable, hot, 5*time.Minute, zerolog.Nop())
	reg.RegisterProvider(&mockProvider{id: "anthropic", models: []types.Model{
		{Name: "claude-sonnet", Provider: "anthropic", IsAvailable: true, IsEnabled: true, Priority: 1},
	}, rawValue: map[string]any{"0": "ab", "1": "cd"}})
	_, err = reg.SyncModels(ctx, "anthropic")
	require.NoError(t, err)

	gw := NewGateway(reg, nil, zerolog.Nop())
	res, err := gw.Complete(ctx, "", &CompletionRequest{UserPrompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "abcd", res.Content)
	require.Equal(t, "claude-sonnet", res.Model)

	m, err := reg.byName(ctx, "claude-sonnet")
	require.NoError(t, err)
	require.Equal(t, int64(1), m.UsageCount)
}

func TestGatewayCompleteErrorsOnEmptyResponse(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	durable, err := storage.OpenDurable(filepath.Join(dir, "wizard.db"))
	require.NoError(t, err)
	defer durable.Close()
	hot := storage.New(filepath.Join(dir, "hot"))

	reg := New(durable, hot, 5*time.Minute, zerolog.Nop())
	reg.RegisterProvider(&mockProvider{id: "openai", models: []types.Model{
		{Name: "gpt-4o", Provider: "openai", IsAvailable: true, IsEnabled: true, Priority: 1},
	}, rawValue: ""})
	_, err = reg.SyncModels(ctx, "openai")
	require.NoError(t, err)

	gw := NewGateway(reg, nil, zerolog.Nop())
	_, err = gw.Complete(ctx, "", &CompletionRequest{UserPrompt: "hello"})
	require.Error(t, err)
}

func TestGatewayCompleteFailsWithNoProvidersRegistered(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	durable, err := storage.OpenDurable(filepath.Join(dir, "wizard.db"))
	require.NoError(t, err)
	defer durable.Close()
	hot := storage.New(filepath.Join(dir, "hot"))

	reg := New(durable, hot, 5*time.Minute, zerolog.Nop())
	gw := NewGateway(reg, nil, zerolog.Nop())

	_, err = gw.Complete(ctx, "", &CompletionRequest{UserPrompt: "hello"})
	require.ErrorIs(t, err, ErrNoModel)
}
