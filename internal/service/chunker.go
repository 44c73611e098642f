package service

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/silkworks-ai/docrag/internal/domain"
)

// charsPerToken is the character-count approximation the splitter uses;
// exact token counts are recomputed with the tokenizer after splitting.
const charsPerToken = 4

// tokenizerEncoding is the cl100k_base subword encoding, the same tokenizer
// family as the downstream generation model, so counts are predictive of
// prompt budget.
const tokenizerEncoding = "cl100k_base"

// chunkSeparators is the ordered cascade the splitter tries, coarsest first:
// major headings, subheadings, fenced code boundaries, paragraphs, lines,
// sentences, words, and finally raw characters. Trying code fences before
// paragraph breaks keeps fenced blocks intact whenever a coarser boundary
// can satisfy the size constraint.
var chunkSeparators = []string{
	"\n## ",
	"\n### ",
	"\n#### ",
	"\n```",
	"\n\n",
	"\n",
	". ",
	" ",
	"",
}

// ChunkConfig controls document chunking. All sizes are in tokens.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// DefaultChunkConfig provides sane defaults for technical documentation.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    512,
		ChunkOverlap: 50,
		MinChunkSize: 100,
	}
}

// Chunker splits documents into retrieval-sized passages along semantic
// boundaries. The tokenizer is loaded once; construction is expensive.
type Chunker struct {
	cfg       ChunkConfig
	sizeChars int
	overlap   int
	encoder   *tiktoken.Tiktoken
}

// NewChunker creates a Chunker with the given configuration.
func NewChunker(cfg ChunkConfig) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}

	encoder, err := tiktoken.GetEncoding(tokenizerEncoding)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to load tokenizer", err)
	}

	return &Chunker{
		cfg:       cfg,
		sizeChars: cfg.ChunkSize * charsPerToken,
		overlap:   cfg.ChunkOverlap * charsPerToken,
		encoder:   encoder,
	}, nil
}

// CountTokens returns the exact token count of text.
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// ChunkDocument splits one document into passages stamped with provenance
// metadata. Candidates under MinChunkSize tokens are dropped silently;
// TotalChunks always reflects the raw candidate count, so surviving
// ChunkIndex values may have gaps.
func (c *Chunker) ChunkDocument(doc domain.Document) []domain.Chunk {
	candidates := c.splitText(strings.TrimSpace(doc.Content), chunkSeparators)

	chunks := make([]domain.Chunk, 0, len(candidates))
	for i, candidate := range candidates {
		tokenCount := c.CountTokens(candidate)
		if tokenCount < c.cfg.MinChunkSize {
			continue
		}

		chunks = append(chunks, domain.Chunk{
			Content: strings.TrimSpace(candidate),
			Metadata: domain.ChunkMetadata{
				SourceURL:   doc.URL,
				SourceType:  doc.SourceType,
				Section:     doc.Section,
				Title:       doc.Title,
				Version:     doc.Version,
				ChunkIndex:  i,
				TotalChunks: len(candidates),
			},
			TokenCount: tokenCount,
		})
	}

	return chunks
}

// ChunkAllDocuments chunks a batch of documents, preserving per-document
// order and never interleaving passages from different documents.
func (c *Chunker) ChunkAllDocuments(docs []domain.Document) []domain.Chunk {
	var all []domain.Chunk
	dropped := 0

	for _, doc := range docs {
		chunks := c.ChunkDocument(doc)
		if len(chunks) > 0 {
			dropped += chunks[0].Metadata.TotalChunks - len(chunks)
		}
		all = append(all, chunks...)
	}

	log.Printf("chunked %d documents into %d chunks (%d undersized candidates dropped)",
		len(docs), len(all), dropped)
	return all
}

// splitText recursively splits text on the first separator from seps that
// occurs in it, keeping separators attached to the head of the following
// piece, then greedily merges the pieces back into chunks of at most
// sizeChars characters with overlap characters of tail duplication.
func (c *Chunker) splitText(text string, seps []string) []string {
	if text == "" {
		return nil
	}

	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	splits := splitKeepSeparator(text, sep)

	var final []string
	var good []string
	for _, s := range splits {
		if utf8.RuneCountInString(s) < c.sizeChars {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.mergeSplits(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, s)
		} else {
			final = append(final, c.splitText(s, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.mergeSplits(good)...)
	}

	return final
}

// mergeSplits combines adjacent splits into chunks near the target size.
// When a chunk is emitted the tail splits totalling up to the overlap stay
// in the window and open the next chunk.
func (c *Chunker) mergeSplits(splits []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, s := range splits {
		l := utf8.RuneCountInString(s)
		if total+l > c.sizeChars && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > c.overlap || (total+l > c.sizeChars && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, s)
		total += l
	}

	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// splitKeepSeparator splits text on sep, prefixing each piece after the
// first with the separator. The empty separator splits into single runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
