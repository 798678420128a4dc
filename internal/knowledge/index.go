package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/auto-analyst/internal/embeddings"
)

const (
	collectionName = "knowledge"
	indexFile      = "knowledge.gob.gz"
)

// Index is a semantic search over local knowledge notes, stored in chromem-go.
type Index struct {
	db            *chromem.DB
	collection    *chromem.Collection
	embedFunc     chromem.EmbeddingFunc
	limit         int
	minSimilarity float32
}

// IndexOptions tunes result selection.
type IndexOptions struct {
	Limit         int     // results per query, default 8
	MinSimilarity float32 // results below this similarity are dropped
}

// NewIndex creates an empty in-memory index.
func NewIndex(embedder embeddings.Embedder, opts IndexOptions) (*Index, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)
	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	return &Index{db: db, collection: col, embedFunc: ef, limit: opts.Limit, minSimilarity: opts.MinSimilarity}, nil
}

func (x *Index) Name() string { return "index" }

// Count returns the number of indexed notes.
func (x *Index) Count() int { return x.collection.Count() }

// Add indexes notes, replacing notes with the same ID.
func (x *Index) Add(ctx context.Context, notes []Note) error {
	if len(notes) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(notes))
	for i, n := range notes {
		docs[i] = chromem.Document{
			ID:       n.ID,
			Content:  strings.TrimSpace(n.Title + "\n" + n.Summary + "\n" + strings.Join(n.Topics, " ") + "\n" + n.Body),
			Metadata: noteMetadata(n),
		}
	}
	return x.collection.AddDocuments(ctx, docs, 1)
}

func (x *Index) Search(ctx context.Context, query string) ([]Result, error) {
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}
	limit := min(x.limit, count)

	hits, err := x.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var out []Result
	for _, h := range hits {
		if h.Similarity < x.minSimilarity {
			continue
		}
		r := resultFromMetadata(h.Metadata)
		r.Similarity = h.Similarity
		out = append(out, r)
	}
	return out, nil
}

// Persist writes the index to dir.
func (x *Index) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}
	return x.db.ExportToFile(filepath.Join(dir, indexFile), true, "")
}

// Load replaces the index contents with what Persist wrote to dir.
// A missing index file leaves the index empty.
func (x *Index) Load(dir string) error {
	path := filepath.Join(dir, indexFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := x.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}
	col := x.db.GetCollection(collectionName, x.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	x.collection = col
	return nil
}

const tradeoffSeparator = "\x1f"

func noteMetadata(n Note) map[string]string {
	md := map[string]string{
		"summary":   n.Summary,
		"rationale": n.Rationale,
		"source":    n.Source,
		"tradeoffs": strings.Join(n.Tradeoffs, tradeoffSeparator),
	}
	if !n.Published.IsZero() {
		md["published"] = n.Published.UTC().Format(time.RFC3339)
	}
	return md
}

func resultFromMetadata(md map[string]string) Result {
	r := Result{
		Summary:   md["summary"],
		Rationale: md["rationale"],
		SourceRef: md["source"],
	}
	if t := md["tradeoffs"]; t != "" {
		r.Tradeoffs = strings.Split(t, tradeoffSeparator)
	}
	if p, err := time.Parse(time.RFC3339, md["published"]); err == nil {
		r.PublishedAt = p
	}
	return r
}
