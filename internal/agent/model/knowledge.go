package model

// KnowledgeEntry is one topic/text pair of the knowledge corpus.
type KnowledgeEntry struct {
	Topic string `json:"topic" yaml:"topic"`
	Text  string `json:"text" yaml:"text"`
}
