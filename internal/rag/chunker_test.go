package rag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSplitTextRejectsBadConfig(t *testing.T) {
	if _, err := SplitText("d1", "hello", 0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("size 0: got %v, want ErrInvalidArgument", err)
	}
	if _, err := SplitText("d1", "hello", 100, 100); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("overlap == size: got %v, want ErrInvalidArgument", err)
	}
	if _, err := SplitText("d1", "hello", 100, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative overlap: got %v, want ErrInvalidArgument", err)
	}
}

func TestSplitTextEmptyInput(t *testing.T) {
	chunks, err := SplitText("d1", "   \n\t  ", 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks for whitespace-only text, want 0", len(chunks))
	}
}

func TestSplitTextShortDocument(t *testing.T) {
	chunks, err := SplitText("d1", "  a short document  ", 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != "a short document" {
		t.Errorf("text not trimmed: %q", c.Text)
	}
	if c.Position != 0 || c.DocumentID != "d1" || c.ID == "" {
		t.Errorf("bad chunk metadata: %+v", c)
	}
}

func TestSplitTextCoversEveryWord(t *testing.T) {
	var words []string
	for i := 0; i < 200; i++ {
		words = append(words, fmt.Sprintf("word%03d", i))
	}
	text := strings.Join(words, " ")

	chunks, err := SplitText("d1", text, 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var all strings.Builder
	for i, c := range chunks {
		if c.Position != i {
			t.Errorf("chunk %d has position %d", i, c.Position)
		}
		if len([]rune(c.Text)) > 100 {
			t.Errorf("chunk %d exceeds size: %d runes", i, len([]rune(c.Text)))
		}
		all.WriteString(c.Text)
		all.WriteString(" ")
	}
	for _, w := range words {
		if !strings.Contains(all.String(), w) {
			t.Fatalf("word %q lost during chunking", w)
		}
	}
}

func TestSplitTextOverlapSharesText(t *testing.T) {
	var words []string
	for i := 0; i < 60; i++ {
		words = append(words, fmt.Sprintf("w%02d", i))
	}
	chunks, err := SplitText("d1", strings.Join(words, " "), 80, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevTail := strings.Fields(chunks[i-1].Text)
		head := strings.Fields(chunks[i].Text)[0]
		shared := false
		for _, w := range prevTail {
			if w == head {
				shared = true
				break
			}
		}
		if !shared {
			t.Errorf("chunks %d and %d share no text: %q | %q", i-1, i, chunks[i-1].Text, chunks[i].Text)
		}
	}
}

func TestSplitTextKeepsWordsWhole(t *testing.T) {
	var words []string
	for i := 0; i < 80; i++ {
		words = append(words, fmt.Sprintf("token%02d", i))
	}
	chunks, err := SplitText("d1", strings.Join(words, " "), 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	valid := map[string]bool{}
	for _, w := range words {
		valid[w] = true
	}
	for _, c := range chunks {
		for _, w := range strings.Fields(c.Text) {
			if !valid[w] {
				t.Fatalf("chunk cut a word mid-way: %q in %q", w, c.Text)
			}
		}
	}
}

func TestWordCount(t *testing.T) {
	if n := WordCount("  one  two\nthree\t"); n != 3 {
		t.Fatalf("got %d, want 3", n)
	}
	if n := WordCount(""); n != 0 {
		t.Fatalf("got %d, want 0", n)
	}
}
