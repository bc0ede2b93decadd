package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromFilePlainText(t *testing.T) {
	content := []byte("First line.  \n\n\n\nSecond line.\n")
	res, err := FromFile("notes.txt", content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "First line.\n\nSecond line." {
		t.Errorf("whitespace not normalized: %q", res.Text)
	}
	if res.WordCount != 4 {
		t.Errorf("got %d words, want 4", res.WordCount)
	}
	if res.Title != "notes.txt" {
		t.Errorf("got title %q", res.Title)
	}
}

func TestFromFileMarkdown(t *testing.T) {
	res, err := FromFile("README.md", []byte("# Heading\n\nBody text here."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, "Body text here.") {
		t.Errorf("markdown body lost: %q", res.Text)
	}
}

func TestFromFileRejectsUnsupported(t *testing.T) {
	if _, err := FromFile("sheet.xlsx", []byte("data")); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if _, err := FromFile("empty.txt", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := FromFile("bin.txt", []byte{0xff, 0xfe, 0x00, 0x80}); err == nil {
		t.Fatal("expected error for non-utf8 content")
	}
}

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Feline Facts</title></head>
<body>
  <nav>Home About Contact and plenty of navigation noise to ignore entirely here</nav>
  <main>
    Cats purr when they feel safe and content. The purr is produced by rapid
    vibration of muscles within the larynx, producing sound during both
    inhalation and exhalation of breath.
  </main>
  <footer>Copyright footer text that should never appear in the output body</footer>
</body>
</html>`

func TestFromURLExtractsMainContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	res, err := FromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "Feline Facts" {
		t.Errorf("got title %q", res.Title)
	}
	if !strings.Contains(res.Text, "Cats purr when they feel safe") {
		t.Errorf("main content missing: %q", res.Text)
	}
	if strings.Contains(res.Text, "navigation noise") || strings.Contains(res.Text, "Copyright footer") {
		t.Errorf("boilerplate leaked into content: %q", res.Text)
	}
	if res.WordCount == 0 {
		t.Error("word count not computed")
	}
}

func TestFromURLPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Plain document body."))
	}))
	defer srv.Close()

	res, err := FromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Plain document body." {
		t.Errorf("got %q", res.Text)
	}
}

func TestFromURLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := FromURL(context.Background(), srv.URL); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("got %v, want a 403 error", err)
	}
	if _, err := FromURL(context.Background(), "ftp://example.com/doc"); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
	if _, err := FromURL(context.Background(), "https://"); err == nil {
		t.Fatal("expected error for missing host")
	}
}
