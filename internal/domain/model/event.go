// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// Source identifies the ingestion adapter that produced an event.
type Source string

// Known event sources.
const (
	SourceEmail    Source = "email"
	SourceMessage  Source = "message"
	SourceCalendar Source = "calendar"
)

// Entity is a typed entity extracted from event content, e.g. a person,
// a project, or a topic.
type Entity struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Key returns a stable identity for deduplication and cache keying.
func (e Entity) Key() string {
	return e.Kind + ":" + strings.ToLower(strings.TrimSpace(e.Value))
}

// PerceivedEvent is the normalized input produced by an ingestion adapter.
// It is immutable: derived variants are built with the With* helpers.
type PerceivedEvent struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	Entities   []Entity  `json:"entities"`
	Content    string    `json:"content"`
	Ephemeral  bool      `json:"ephemeral"`   // set upstream, e.g. newsletter/notification detection
	HighStakes bool      `json:"high_stakes"` // set upstream by the stakes classifier
	ReceivedAt time.Time `json:"received_at"`
}

// NewPerceivedEvent builds an event with entities deduplicated and sorted
// by key so two adapters extracting the same entities produce equal values.
func NewPerceivedEvent(id string, source Source, content string, entities []Entity) PerceivedEvent {
	return PerceivedEvent{
		ID:         id,
		Source:     source,
		Content:    content,
		Entities:   dedupeEntities(entities),
		ReceivedAt: time.Now().UTC(),
	}
}

// WithFlags returns a copy with the upstream classifier flags applied.
func (p PerceivedEvent) WithFlags(ephemeral, highStakes bool) PerceivedEvent {
	p.Ephemeral = ephemeral
	p.HighStakes = highStakes
	p.Entities = append([]Entity(nil), p.Entities...)
	return p
}

// WithEntities returns a copy carrying the given entities, deduplicated.
func (p PerceivedEvent) WithEntities(entities []Entity) PerceivedEvent {
	p.Entities = dedupeEntities(entities)
	return p
}

func dedupeEntities(entities []Entity) []Entity {
	if len(entities) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
