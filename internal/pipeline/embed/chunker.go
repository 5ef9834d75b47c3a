package embed

import (
	"strings"

	"github.com/brightloop/geoscore-backend/internal/types"
)

const (
	chunkWindowWords  = 200
	chunkOverlapWords = 40
	minChunkWords     = 10
)

// BuildChunks slices one normalized entry into embeddable units: one chunk
// for the title, one per heading, overlapping word windows over the main
// content, and one per claim. Chunk indexes are contiguous per entry.
func BuildChunks(entry *types.ContentEntry, claims []*types.ContentClaim) []*types.ContentChunk {
	var chunks []*types.ContentChunk
	idx := 0
	add := func(chunkType, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, &types.ContentChunk{
			EntryID:    entry.ID,
			BrandID:    entry.BrandID,
			ChunkIndex: idx,
			ChunkType:  chunkType,
			Text:       text,
			TokenCount: len(strings.Fields(text)),
		})
		idx++
	}

	add(types.ChunkTypeTitle, entry.Title)
	if entry.Description != "" {
		add(types.ChunkTypeMetadata, entry.Description)
	}
	var headings []string
	if err := types.JSONInto(entry.Headings, &headings); err == nil {
		for _, h := range headings {
			add(types.ChunkTypeHeading, h)
		}
	}
	for _, window := range windows(entry.MainContent, chunkWindowWords, chunkOverlapWords) {
		add(types.ChunkTypeParagraph, window)
	}
	for _, claim := range claims {
		add(types.ChunkTypeClaim, claim.Text)
	}
	return chunks
}

// windows splits text into word windows of the given size with the given
// overlap. A trailing window shorter than minChunkWords is merged into the
// previous one by simply being dropped (its words already appear there).
func windows(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}
	step := size - overlap
	if step < 1 {
		step = 1
	}
	var out []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		if start > 0 && end-start < minChunkWords {
			break
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}
