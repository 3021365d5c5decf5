// Package resolver turns provider settings, the live catalog and static
// defaults into the effective model for a request.
package resolver

import (
	"context"
	"strings"
	"sync"

	"github.com/ncecere/model_router/internal/models"
	"github.com/ncecere/model_router/internal/providers/modelparams"
	"github.com/ncecere/model_router/internal/providers/providererr"
)

// Catalog is the subset of catalog.Cache the resolver needs.
type Catalog interface {
	GetModels(ctx context.Context, provider string) models.ModelRecord
}

type Options struct {
	Provider    string
	DefaultID   string
	DefaultInfo models.ModelInfo
	Catalog     Catalog
	Settings    models.Settings
	Policy      modelparams.Policy
}

// Resolver is safe for concurrent use.
type Resolver struct {
	provider    string
	defaultID   string
	defaultInfo models.ModelInfo
	catalog     Catalog
	settings    models.Settings
	policy      modelparams.Policy

	mu     sync.RWMutex
	record models.ModelRecord
}

// New fails with a model resolution error when neither the settings nor the
// provider supply a model id.
func New(opts Options) (*Resolver, error) {
	opts.Settings.ModelID = strings.TrimSpace(opts.Settings.ModelID)
	if opts.Settings.ModelID == "" && strings.TrimSpace(opts.DefaultID) == "" {
		return nil, providererr.New(providererr.KindModelResolution, opts.Provider,
			"no model id configured and provider has no default model")
	}
	return &Resolver{
		provider:    opts.Provider,
		defaultID:   strings.TrimSpace(opts.DefaultID),
		defaultInfo: opts.DefaultInfo,
		catalog:     opts.Catalog,
		settings:    opts.Settings,
		policy:      opts.Policy,
		record:      models.ModelRecord{},
	}, nil
}

func (r *Resolver) Provider() string { return r.provider }

func (r *Resolver) Settings() models.Settings { return r.settings }

// FetchModel reloads the catalog record and resolves against it. Catalog
// failures degrade to the static default.
func (r *Resolver) FetchModel(ctx context.Context) models.ResolvedModel {
	if r.catalog != nil {
		record := r.catalog.GetModels(ctx, r.provider)
		r.mu.Lock()
		r.record = record
		r.mu.Unlock()
	}
	return r.Model()
}

// Model resolves against the record loaded by the last FetchModel.
func (r *Resolver) Model() models.ResolvedModel {
	id := r.settings.ModelID
	if id == "" {
		id = r.defaultID
	}
	info, source := r.defaultInfo, models.SourceDefault
	if hit, ok := r.Lookup(id); ok {
		info, source = hit, models.SourceCatalog
	}
	return models.ResolvedModel{
		ID:     id,
		Info:   info,
		Params: r.policy.Resolve(r.settings, info),
		Source: source,
	}
}

// Lookup consults only the catalog tier.
func (r *Resolver) Lookup(id string) (models.ModelInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.record.Lookup(id)
}

// Default returns the static tier.
func (r *Resolver) Default() (string, models.ModelInfo) {
	return r.defaultID, r.defaultInfo
}

// Models returns a copy of the loaded catalog record.
func (r *Resolver) Models() models.ModelRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.record.Clone()
}
