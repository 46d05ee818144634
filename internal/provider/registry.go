package provider

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docwizard/engine/internal/storage"
	"github.com/docwizard/engine/pkg/types"
)

// preferenceList orders well-known model name prefixes from most to least
// preferred when the registry and the provider's live model list both come
// back empty (spec.md §4.7 model-selection fallback chain).
var preferenceList = []string{
	"claude-sonnet", "gpt-4o", "claude-haiku", "gpt-4o-mini",
}

// largeModelHints marks model names whose parameter count is large enough
// to fall into the "extremely-large variants" priority band.
var largeModelHints = []string{"opus", "405b", "70b", "o1"}

// Registry holds the set of registered Provider backends, caches each
// provider's live model list for ModelCacheTTL, and persists the merged
// model registry to the durable sqlite tier.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	durable   *storage.Durable
	hot       *storage.Storage
	cacheTTL  time.Duration
	log       zerolog.Logger
}

// New creates a Registry over the given durable and hot tiers.
func New(durable *storage.Durable, hot *storage.Storage, cacheTTL time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		durable:   durable,
		hot:       hot,
		cacheTTL:  cacheTTL,
		log:       log.With().Str("component", "provider.registry").Logger(),
	}
}

// RegisterProvider adds a provider backend under its own ID.
func (r *Registry) RegisterProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Provider returns a registered provider backend by id.
func (r *Registry) Provider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ProviderIDs returns every registered provider id, sorted.
func (r *Registry) ProviderIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SyncModels refreshes one provider's model list through a cache keyed by
// providerID with TTL r.cacheTTL, and upserts the result into the durable
// model registry.
func (r *Registry) SyncModels(ctx context.Context, providerID string) ([]types.Model, error) {
	p, ok := r.Provider(providerID)
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", providerID)
	}

	cacheKey := []string{"models", providerID}
	var cached []types.Model
	if r.hot != nil {
		if err := r.hot.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models for %s: %w", providerID, err)
	}

	now := time.Now().UnixMilli()
	for i := range models {
		if models[i].Priority == 0 {
			models[i].Priority = derivePriority(models[i].Name)
		}
		models[i].LastChecked = now
		if err := r.upsert(ctx, &models[i]); err != nil {
			return nil, fmt.Errorf("upsert model %s: %w", models[i].Name, err)
		}
	}

	if r.hot != nil {
		if err := r.hot.PutTTL(ctx, cacheKey, models, r.cacheTTL); err != nil {
			r.log.Warn().Err(err).Str("provider", providerID).Msg("model list cache write failed")
		}
	}
	return models, nil
}

// SelectModel implements spec.md §4.7's model-selection chain. If preferred
// is non-empty it is looked up directly (the caller's explicit choice
// always wins, falling back to a synthetic row if the registry hasn't seen
// it yet); otherwise the registry is consulted, refreshed from each
// registered provider on an empty result, then the static preference list,
// then any available row.
func (r *Registry) SelectModel(ctx context.Context, preferred string) (types.Model, error) {
	if preferred != "" {
		providerID, modelName := ParseModelString(preferred)
		if m, err := r.byName(ctx, modelName); err == nil {
			return m, nil
		}
		if providerID == "" {
			providerID = r.guessProviderFor(modelName)
		}
		return types.Model{Name: modelName, Provider: providerID, IsAvailable: true, IsEnabled: true, Priority: types.PriorityDefault}, nil
	}

	if m, ok, err := r.bestEnabledAvailable(ctx); err != nil {
		return types.Model{}, err
	} else if ok {
		return m, nil
	}

	for _, id := range r.ProviderIDs() {
		if _, err := r.SyncModels(ctx, id); err != nil {
			r.log.Warn().Err(err).Str("provider", id).Msg("model sync failed during selection")
		}
	}

	if m, ok, err := r.bestEnabledAvailable(ctx); err != nil {
		return types.Model{}, err
	} else if ok {
		return m, nil
	}

	for _, pref := range preferenceList {
		if m, err := r.byNamePrefix(ctx, pref); err == nil {
			return m, nil
		}
	}

	if m, ok, err := r.anyAvailable(ctx); err != nil {
		return types.Model{}, err
	} else if ok {
		return m, nil
	}

	return types.Model{}, ErrNoModel
}

// RecordUsage increments usageCount and stamps lastUsed for a model, per
// spec.md §4.7 responsibility 3.
func (r *Registry) RecordUsage(ctx context.Context, modelName string) error {
	_, err := r.durable.Conn().ExecContext(ctx,
		`UPDATE model_registry SET usage_count = usage_count + 1, last_used = ? WHERE name = ?`,
		time.Now().UnixMilli(), modelName)
	return err
}

func (r *Registry) bestEnabledAvailable(ctx context.Context) (types.Model, bool, error) {
	row := r.durable.Conn().QueryRowContext(ctx, selectColumns+`
		WHERE is_available = 1 AND is_enabled = 1
		ORDER BY priority ASC, usage_count DESC LIMIT 1`)
	return scanOptionalModel(row)
}

func (r *Registry) anyAvailable(ctx context.Context) (types.Model, bool, error) {
	row := r.durable.Conn().QueryRowContext(ctx, selectColumns+`
		WHERE is_available = 1 ORDER BY priority ASC, usage_count DESC LIMIT 1`)
	return scanOptionalModel(row)
}

func (r *Registry) byName(ctx context.Context, name string) (types.Model, error) {
	row := r.durable.Conn().QueryRowContext(ctx, selectColumns+` WHERE name = ?`, name)
	return scanModel(row)
}

func (r *Registry) byNamePrefix(ctx context.Context, prefix string) (types.Model, error) {
	row := r.durable.Conn().QueryRowContext(ctx, selectColumns+`
		WHERE name LIKE ? AND is_available = 1 AND is_enabled = 1
		ORDER BY priority ASC LIMIT 1`, prefix+"%")
	return scanModel(row)
}

// upsert writes a model row, generating a fresh RegistryID on first insert
// (ON CONFLICT leaves registry_id out of its SET clause, so a model that's
// already registered keeps the id it was first given even as its other
// columns are refreshed on every sync).
func (r *Registry) upsert(ctx context.Context, m *types.Model) error {
	if m.RegistryID == "" {
		m.RegistryID = uuid.NewString()
	}
	_, err := r.durable.Conn().ExecContext(ctx, `
		INSERT INTO model_registry (registry_id, name, display_name, provider, size, family, parameter_size,
			quantization, is_available, is_enabled, priority, context_window, max_tokens,
			temperature, last_checked, last_used, usage_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name, provider = excluded.provider,
			size = excluded.size, family = excluded.family, parameter_size = excluded.parameter_size,
			quantization = excluded.quantization, is_available = excluded.is_available,
			context_window = excluded.context_window, max_tokens = excluded.max_tokens,
			temperature = excluded.temperature, last_checked = excluded.last_checked`,
		m.RegistryID, m.Name, m.DisplayName, m.Provider, m.Size, m.Family, m.ParameterSize, m.Quantization,
		m.IsAvailable, m.IsEnabled, m.Priority, m.ContextWindow, m.MaxTokens, m.Temperature,
		m.LastChecked, nullInt(m.LastUsed), m.UsageCount)
	return err
}

const selectColumns = `SELECT registry_id, name, display_name, provider, size, family, parameter_size, quantization,
	is_available, is_enabled, priority, context_window, max_tokens, temperature, last_checked,
	last_used, usage_count FROM model_registry`

func scanModel(row *sql.Row) (types.Model, error) {
	var m types.Model
	var registryID, displayName, family, parameterSize, quantization sql.NullString
	var lastChecked, lastUsed sql.NullInt64

	err := row.Scan(&registryID, &m.Name, &displayName, &m.Provider, &m.Size, &family, &parameterSize,
		&quantization, &m.IsAvailable, &m.IsEnabled, &m.Priority, &m.ContextWindow, &m.MaxTokens,
		&m.Temperature, &lastChecked, &lastUsed, &m.UsageCount)
	if err != nil {
		return types.Model{}, err
	}

	m.RegistryID = registryID.String
	m.DisplayName = displayName.String
	m.Family = family.String
	m.ParameterSize = parameterSize.String
	m.Quantization = quantization.String
	m.LastChecked = lastChecked.Int64
	m.LastUsed = lastUsed.Int64
	return m, nil
}

func scanOptionalModel(row *sql.Row) (types.Model, bool, error) {
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return types.Model{}, false, nil
	}
	if err != nil {
		return types.Model{}, false, err
	}
	return m, true, nil
}

func nullInt(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

// ParseModelString splits a "provider/model" string, matching the
// config-time shorthand for pinning an explicit model. A string with no
// slash is returned entirely as the model name.
func ParseModelString(s string) (providerID, modelName string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

// guessProviderFor picks a registered provider for a bare model name with
// no registry row and no explicit "provider/model" prefix, trying each
// registered provider's ListModels output before giving up on the first
// registered provider as a last resort.
func (r *Registry) guessProviderFor(modelName string) string {
	for _, id := range r.ProviderIDs() {
		p, ok := r.Provider(id)
		if !ok {
			continue
		}
		models, err := p.ListModels(context.Background())
		if err != nil {
			continue
		}
		for _, m := range models {
			if m.Name == modelName {
				return id
			}
		}
	}
	if ids := r.ProviderIDs(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// derivePriority scores a model name per spec.md §4.7: explicit preference
// list entries score low (more preferred), extremely-large variants score
// 200, everything else defaults to 100.
func derivePriority(name string) int {
	lower := strings.ToLower(name)
	for _, hint := range largeModelHints {
		if strings.Contains(lower, hint) {
			return types.PriorityExtraLarge
		}
	}
	for i, pref := range preferenceList {
		if strings.HasPrefix(lower, pref) {
			return i + 1
		}
	}
	return types.PriorityDefault
}
