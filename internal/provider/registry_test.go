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

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	durable, err := storage.OpenDurable(filepath.Join(dir, "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { durable.Close() })
	hot := storage.New(filepath.Join(dir, "hot"))
	return New(durable, hot, 5*time.Minute, zerolog.Nop())
}

func TestSelectModelPrefersHighestPriorityThenUsage(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	r.RegisterProvider(&mockProvider{id: "anthropic", models: []types.Model{
		{Name: "claude-sonnet", Provider: "anthropic", IsAvailable: true, IsEnabled: true, Priority: 1},
		{Name: "claude-haiku", Provider: "anthropic", IsAvailable: true, IsEnabled: true, Priority: 3},
	}})
	_, err := r.SyncModels(ctx, "anthropic")
	require.NoError(t, err)

	m, err := r.SelectModel(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet", m.Name)
}

func TestSelectModelFallsBackToPreferenceListWhenRegistryDisabled(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	r.RegisterProvider(&mockProvider{id: "anthropic", models: []types.Model{
		{Name: "claude-sonnet-4", Provider: "anthropic", IsAvailable: true, IsEnabled: false, Priority: 1},
	}})
	_, err := r.SyncModels(ctx, "anthropic")
	require.NoError(t, err)

	m, err := r.SelectModel(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "anthropic", m.Provider)
}

func TestSelectModelExplicitChoiceWins(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	r.RegisterProvider(&mockProvider{id: "openai", models: []types.Model{
		{Name: "gpt-4o", Provider: "openai", IsAvailable: true, IsEnabled: true, Priority: 50},
	}})
	_, err := r.SyncModels(ctx, "openai")
	require.NoError(t, err)

	m, err := r.SelectModel(ctx, "openai/gpt-4o")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", m.Name)
	require.Equal(t, "openai", m.Provider)
}

func TestRecordUsageIncrementsCount(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	r.RegisterProvider(&mockProvider{id: "openai", models: []types.Model{
		{Name: "gpt-4o", Provider: "openai", IsAvailable: true, IsEnabled: true, Priority: 50},
	}})
	_, err := r.SyncModels(ctx, "openai")
	require.NoError(t, err)

	require.NoError(t, r.RecordUsage(ctx, "gpt-4o"))
	require.NoError(t, r.RecordUsage(ctx, "gpt-4o"))

	m, err := r.byName(ctx, "gpt-4o")
	require.NoError(t, err)
	require.Equal(t, int64(2), m.UsageCount)
	require.NotZero(t, m.LastUsed)
}

func TestDerivePriorityBandsLargeModelsHigh(t *testing.T) {
	require.Equal(t, types.PriorityExtraLarge, derivePriority("claude-opus-4"))
	require.Equal(t, types.PriorityDefault, derivePriority("some-small-model"))
	require.Equal(t, 1, derivePriority("claude-sonnet-4"))
}
