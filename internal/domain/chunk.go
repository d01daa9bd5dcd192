package domain

import "unicode/utf8"

// Origin identifies which ranked list a chunk came from.
type Origin string

const (
	OriginDense  Origin = "dense"
	OriginSparse Origin = "sparse"
	OriginBoth   Origin = "both"
)

// Chunk is a retrieved document fragment with its fused relevance score.
// Ordering by fused rank is significant: citation indices are assigned
// from it and must stay stable for the lifetime of a run.
type Chunk struct {
	id       string
	document string
	section  string
	text     string
	score    float64
	origin   Origin
}

// NewChunk creates a retrieved chunk.
func NewChunk(id, document, section, text string, score float64, origin Origin) Chunk {
	return Chunk{id: id, document: document, section: section, text: text, score: score, origin: origin}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// Document returns the source document identifier.
func (c *Chunk) Document() string { return c.document }

// Section returns the section label within the source document.
func (c *Chunk) Section() string { return c.section }

// Text returns the chunk content.
func (c *Chunk) Text() string { return c.text }

// Score returns the relevance score in [0,1].
func (c *Chunk) Score() float64 { return c.score }

// Origin returns the originating ranked list.
func (c *Chunk) Origin() Origin { return c.origin }

// WithScore returns a copy with a replaced relevance score.
func (c Chunk) WithScore(score float64) Chunk {
	c.score = score
	return c
}

// WithOrigin returns a copy with a replaced origin.
func (c Chunk) WithOrigin(origin Origin) Chunk {
	c.origin = origin
	return c
}

// Citation binds a 1-based source index to a chunk for one workflow run.
// The same chunk keeps the same index across regeneration attempts.
type Citation struct {
	Index     int
	ChunkID   string
	Document  string
	Section   string
	Relevance float64
	Excerpt   string
}

const excerptLen = 200

// CitationsFor assigns 1-based citation indices to fused chunks in order.
func CitationsFor(chunks []Chunk) []Citation {
	citations := make([]Citation, 0, len(chunks))
	for i, c := range chunks {
		excerpt := c.Text()
		if len(excerpt) > excerptLen {
			// Back off to a rune boundary so the cut never splits a multi-byte character.
			cut := excerptLen
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut] + "..."
		}
		citations = append(citations, Citation{
			Index:     i + 1,
			ChunkID:   c.ID(),
			Document:  c.Document(),
			Section:   c.Section(),
			Relevance: c.Score(),
			Excerpt:   excerpt,
		})
	}
	return citations
}
