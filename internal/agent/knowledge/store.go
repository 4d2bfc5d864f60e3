// Package knowledge loads the FAQ corpus and ranks it against user queries.
package knowledge

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/etkin-ai/webchat/internal/agent/model"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// Store is the immutable in-memory knowledge corpus. It is safe for
// concurrent reads.
type Store struct {
	entries []model.KnowledgeEntry
	source  string
}

// Defaults returns the built-in corpus used when no source is available.
func Defaults() []model.KnowledgeEntry {
	return []model.KnowledgeEntry{
		{Topic: "iade", Text: "İade politikası: 14 gün içinde iade hakkınız bulunmaktadır."},
		{Topic: "kargo", Text: "Kargo süresi: Ortalama teslimat 2-4 iş günüdür."},
		{Topic: "ödeme", Text: "Ödeme seçenekleri: Kredi kartı, banka kartı veya kapıda ödeme."},
		{Topic: "politika", Text: "Politikalarımız müşteri memnuniyeti odaklıdır."},
	}
}

// NewStore builds a store from entries, skipping those without text.
func NewStore(entries []model.KnowledgeEntry) *Store {
	kept := make([]model.KnowledgeEntry, 0, len(entries))
	for _, e := range entries {
		e.Topic = strings.TrimSpace(e.Topic)
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			continue
		}
		kept = append(kept, e)
	}
	return &Store{entries: kept, source: "inline"}
}

// Load reads the corpus from path. A missing, unreadable, malformed or
// empty source is never fatal: the built-in defaults are used instead.
func Load(path string) *Store {
	if strings.TrimSpace(path) == "" {
		return defaultStore("no path configured")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("Knowledge source unavailable, using built-in defaults")
		return defaultStore(path)
	}
	entries, err := Parse(raw)
	if err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("Knowledge source malformed, using built-in defaults")
		return defaultStore(path)
	}
	s := NewStore(entries)
	if s.Len() == 0 {
		logx.Warn().Str("path", path).Msg("Knowledge source empty, using built-in defaults")
		return defaultStore(path)
	}
	s.source = path
	logx.Info().Str("path", path).Int("entries", s.Len()).Msg("Knowledge base loaded")
	return s
}

func defaultStore(reason string) *Store {
	s := NewStore(Defaults())
	s.source = "defaults"
	logx.Debug().Str("reason", reason).Int("entries", s.Len()).Msg("Knowledge base defaults loaded")
	return s
}

// Parse decodes a JSON or YAML knowledge document. Accepted shapes:
//
//	{"topic": "text", ...}              mapping, order preserved
//	["text", ...]                       list of plain texts
//	[{"topic": "...", "text": "..."}]   list of entries
func Parse(raw []byte) ([]model.KnowledgeEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("decode knowledge: empty document")
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.MappingNode:
		entries := make([]model.KnowledgeEntry, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("decode knowledge: value of %q is not text (line %d)", k.Value, v.Line)
			}
			entries = append(entries, model.KnowledgeEntry{Topic: k.Value, Text: v.Value})
		}
		return entries, nil
	case yaml.SequenceNode:
		entries := make([]model.KnowledgeEntry, 0, len(root.Content))
		for _, item := range root.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				entries = append(entries, model.KnowledgeEntry{Text: item.Value})
			case yaml.MappingNode:
				var e model.KnowledgeEntry
				if err := item.Decode(&e); err != nil {
					return nil, fmt.Errorf("decode knowledge entry (line %d): %w", item.Line, err)
				}
				entries = append(entries, e)
			default:
				return nil, fmt.Errorf("decode knowledge: unsupported item at line %d", item.Line)
			}
		}
		return entries, nil
	}
	return nil, fmt.Errorf("decode knowledge: top level must be a mapping or a list")
}

// Entries returns a copy of the corpus in load order.
func (s *Store) Entries() []model.KnowledgeEntry {
	return slices.Clone(s.entries)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Source names where the corpus came from ("defaults", "inline" or a path).
func (s *Store) Source() string {
	return s.source
}
