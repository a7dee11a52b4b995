// Package corpus holds the document set the engine retrieves over.
package corpus

import "time"

// Document is one ingested text document. Content is immutable except
// through explicit edit operations, which bump UpdatedAt.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Summary describes the corpus for routing decisions: how big it is and
// what vocabulary it covers.
type Summary struct {
	DocumentCount int
	TotalBytes    int
	Titles        []string
}

// Summarize builds a Summary over the given documents.
func Summarize(docs []Document) Summary {
	s := Summary{DocumentCount: len(docs)}
	for _, d := range docs {
		s.TotalBytes += len(d.Content)
		s.Titles = append(s.Titles, d.Title)
	}
	return s
}
