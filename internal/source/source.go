package source

import (
	"fmt"

	"FeedbackScanner/internal/config"
	"FeedbackScanner/internal/ports"
)

// DefaultKind is assumed for channels that are not listed in config.
const DefaultKind = "forum"

// Registry keeps a mapping from source kinds to their implementations and
// from channel names to the kind configured for them.
type Registry struct {
	sources  map[string]ports.ContentSource
	channels map[string]string
}

// NewRegistry builds a registry with channel bindings taken from config.
func NewRegistry(channels []config.ChannelConfig) *Registry {
	bindings := make(map[string]string, len(channels))
	for _, ch := range channels {
		kind := ch.Source
		if kind == "" {
			kind = DefaultKind
		}
		bindings[ch.Name] = kind
	}

	return &Registry{
		sources:  map[string]ports.ContentSource{},
		channels: bindings,
	}
}

// Register adds or replaces a content source implementation for a kind.
func (r *Registry) Register(kind string, src ports.ContentSource) {
	if r.sources == nil {
		r.sources = map[string]ports.ContentSource{}
	}
	r.sources[kind] = src
}

// ForChannel resolves the content source serving the given channel.
// Unconfigured channels fall back to the default kind so ad hoc syncs
// against new channels still work.
func (r *Registry) ForChannel(channel string) (ports.ContentSource, error) {
	kind, ok := r.channels[channel]
	if !ok {
		kind = DefaultKind
	}

	src, ok := r.sources[kind]
	if !ok {
		return nil, fmt.Errorf("source kind %s is not registered", kind)
	}
	return src, nil
}
