package embed

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/geoscore-backend/internal/types"
)

func testEntry(words int) *types.ContentEntry {
	content := strings.TrimSpace(strings.Repeat("word ", words))
	return &types.ContentEntry{
		ID:          uuid.New(),
		BrandID:     uuid.New(),
		Title:       "Acme Widgets",
		Description: "Widgets for every occasion",
		Headings:    types.MustJSON([]string{"Our Services", "Contact"}),
		MainContent: content,
	}
}

func TestBuildChunksStructure(t *testing.T) {
	entry := testEntry(50)
	claims := []*types.ContentClaim{
		{Text: "Acme provides widgets"},
		{Text: "Email: hi@acme.com"},
	}
	chunks := BuildChunks(entry, claims)

	// title + metadata + 2 headings + 1 content window + 2 claims
	if len(chunks) != 7 {
		t.Fatalf("expected 7 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if chunk.EntryID != entry.ID || chunk.BrandID != entry.BrandID {
			t.Fatalf("chunk %d has wrong ownership", i)
		}
		if chunk.TokenCount != len(strings.Fields(chunk.Text)) {
			t.Fatalf("chunk %d token count mismatch", i)
		}
	}
	if chunks[0].ChunkType != types.ChunkTypeTitle {
		t.Fatalf("first chunk must be the title, got %s", chunks[0].ChunkType)
	}
	if chunks[len(chunks)-1].ChunkType != types.ChunkTypeClaim {
		t.Fatalf("claims must come last, got %s", chunks[len(chunks)-1].ChunkType)
	}
}

func TestBuildChunksSkipsEmptyFields(t *testing.T) {
	entry := &types.ContentEntry{ID: uuid.New(), BrandID: uuid.New()}
	if chunks := BuildChunks(entry, nil); len(chunks) != 0 {
		t.Fatalf("empty entry must produce no chunks, got %d", len(chunks))
	}
}

func TestWindowsShortText(t *testing.T) {
	out := windows("one two three", 200, 40)
	if len(out) != 1 || out[0] != "one two three" {
		t.Fatalf("short text must be a single window: %v", out)
	}
	if windows("", 200, 40) != nil {
		t.Fatalf("empty text must produce no windows")
	}
}

func TestWindowsOverlap(t *testing.T) {
	words := make([]string, 500)
	for i := range words {
		words[i] = strings.Repeat("w", 1+i%5)
	}
	text := strings.Join(words, " ")

	out := windows(text, 200, 40)
	if len(out) < 3 {
		t.Fatalf("expected at least 3 windows for 500 words, got %d", len(out))
	}
	first := strings.Fields(out[0])
	second := strings.Fields(out[1])
	if len(first) != 200 {
		t.Fatalf("first window should hold 200 words, got %d", len(first))
	}
	// step is size-overlap, so the second window starts 160 words in and
	// repeats the first window's last 40 words
	for i := 0; i < 40; i++ {
		if first[160+i] != second[i] {
			t.Fatalf("overlap mismatch at word %d", i)
		}
	}

	// every source word must appear in some window
	total := 0
	for _, w := range out {
		total += len(strings.Fields(w))
	}
	if total < 500 {
		t.Fatalf("windows lost words: %d < 500", total)
	}
}
