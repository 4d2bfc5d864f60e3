package knowledge

import (
	"cmp"
	"context"
	"iter"
	"slices"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/agent/text"
)

// DefaultTopK is the number of snippets returned when no k is configured.
const DefaultTopK = 2

type scored struct {
	entry model.KnowledgeEntry
	score int
}

// Score counts the query tokens, with multiplicity, that occur in the
// entry's token set. Both sides are normalized first.
func Score(queryTokens []string, entry model.KnowledgeEntry) int {
	set := make(map[string]struct{})
	for _, tok := range text.Tokens(entry.Topic + " " + entry.Text) {
		set[tok] = struct{}{}
	}
	n := 0
	for _, q := range queryTokens {
		if _, ok := set[q]; ok {
			n++
		}
	}
	return n
}

// Search ranks entries against query and yields at most k entry texts with
// a positive score, best first. Equal scores keep corpus order. The
// sequence recomputes on every iteration, so it can be ranged repeatedly.
func Search(query string, entries []model.KnowledgeEntry, k int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, s := range rank(query, entries, k) {
			if !yield(s.entry.Text) {
				return
			}
		}
	}
}

// TopK collects Search into a slice.
func TopK(query string, entries []model.KnowledgeEntry, k int) []string {
	out := slices.Collect(Search(query, entries, k))
	if out == nil {
		out = []string{}
	}
	return out
}

func rank(query string, entries []model.KnowledgeEntry, k int) []scored {
	if k <= 0 {
		return nil
	}
	tokens := text.Tokens(query)
	if len(tokens) == 0 {
		return nil
	}
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		if sc := Score(tokens, e); sc > 0 {
			ranked = append(ranked, scored{entry: e, score: sc})
		}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Retriever exposes the store through eino's retriever interface.
type Retriever struct {
	store *Store
	topK  int
}

var _ retriever.Retriever = (*Retriever)(nil)

// NewRetriever returns a retriever over store. topK <= 0 uses DefaultTopK.
func NewRetriever(store *Store, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve returns the ranked snippets as documents carrying their score and topic.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := r.topK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &topK}, opts...)
	if options.TopK != nil {
		topK = *options.TopK
	}

	ranked := rank(query, r.store.entries, topK)
	docs := make([]*schema.Document, 0, len(ranked))
	for _, s := range ranked {
		doc := &schema.Document{
			Content:  s.entry.Text,
			MetaData: map[string]any{"topic": s.entry.Topic},
		}
		docs = append(docs, doc.WithScore(float64(s.score)))
	}
	return docs, nil
}

// Texts extracts document contents in order.
func Texts(docs []*schema.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, d.Content)
		}
	}
	return out
}
