package tts

import (
	"log/slog"
	"strings"
	"sync"
)

// Registry maps voice selectors to the providers that own them.
// Providers are consulted in registration order.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	logger    *slog.Logger
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{
		providers: providers,
		logger:    slog.Default().With("component", "tts.registry"),
	}
}

// Register appends a provider.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Providers returns a copy of the registered providers.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// ListVoices returns every voice of every provider, tagged with its provider name.
func (r *Registry) ListVoices() []Voice {
	var out []Voice
	for _, p := range r.Providers() {
		for _, v := range p.Voices() {
			v.Provider = p.Name()
			out = append(out, v)
		}
	}
	return out
}

// Lookup finds a voice by ID, or by display name ignoring case.
func (r *Registry) Lookup(selector string) (Provider, Voice, bool) {
	if selector == "" {
		return nil, Voice{}, false
	}
	providers := r.Providers()
	for _, p := range providers {
		for _, v := range p.Voices() {
			if v.ID == selector {
				v.Provider = p.Name()
				return p, v, true
			}
		}
	}
	for _, p := range providers {
		for _, v := range p.Voices() {
			if v.DisplayName != "" && strings.EqualFold(v.DisplayName, selector) {
				v.Provider = p.Name()
				return p, v, true
			}
		}
	}
	return nil, Voice{}, false
}

// ResolveProvider picks the provider for requested, falling back to the
// fallback voice and then to the first voice of the first provider.
func (r *Registry) ResolveProvider(requested, fallback string) (Provider, Voice, error) {
	if p, v, ok := r.Lookup(requested); ok {
		return p, v, nil
	}
	if requested != "" {
		r.logger.Warn("voice not found, using fallback", "voice", requested, "fallback", fallback)
	}
	if p, v, ok := r.Lookup(fallback); ok {
		return p, v, nil
	}
	for _, p := range r.Providers() {
		voices := p.Voices()
		if len(voices) == 0 {
			continue
		}
		v := voices[0]
		v.Provider = p.Name()
		return p, v, nil
	}
	return nil, Voice{}, ErrUnknownVoice
}

// Candidates returns the resolved voice followed by the fallback voice,
// each pinned to its provider, for use in a Chain.
func (r *Registry) Candidates(requested, fallback string) ([]Provider, error) {
	p, v, err := r.ResolveProvider(requested, fallback)
	if err != nil {
		return nil, err
	}
	out := []Provider{&Bound{Provider: p, Voice: v}}
	if fp, fv, ok := r.Lookup(fallback); ok && (fp.Name() != p.Name() || fv.ID != v.ID) {
		out = append(out, &Bound{Provider: fp, Voice: fv})
	}
	return out, nil
}
