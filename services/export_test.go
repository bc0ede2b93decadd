package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"rag-docqa-platform/models"
)

func TestExportHistoryExcel(t *testing.T) {
	conversations := []models.Conversation{
		{
			Question:   "Why do cats purr?",
			Answer:     "Cats purr using their larynx muscles.",
			Strategy:   "basic",
			DurationMS: 1200,
			AskedAt:    time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
			Sources: []models.AnswerSource{
				{ChunkID: "doc-1:0", Position: 0, Excerpt: "Cats purr...", Score: 0.91},
			},
		},
		{
			Question:   "How do dogs communicate?",
			Answer:     "Dogs bark and use body language.",
			Strategy:   "multi_query",
			DurationMS: 3400,
			AskedAt:    time.Date(2025, 3, 10, 14, 35, 0, 0, time.UTC),
			Warnings:   []string{"query transformation degraded"},
		},
	}

	buf, err := ExportHistoryExcel("user-1:default", conversations)
	if err != nil {
		t.Fatalf("ExportHistoryExcel failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("generated workbook does not open: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Q&A History", "B2")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != "Why do cats purr?" {
		t.Errorf("B2 = %q, want first question", got)
	}

	got, _ = f.GetCellValue("Q&A History", "D3")
	if got != "multi_query" {
		t.Errorf("D3 = %q, want multi_query", got)
	}

	got, _ = f.GetCellValue("Q&A History", "F3")
	if got != "query transformation degraded" {
		t.Errorf("F3 = %q, want warning text", got)
	}

	got, _ = f.GetCellValue("Summary", "B1")
	if got != "user-1:default" {
		t.Errorf("summary session id = %q", got)
	}
	got, _ = f.GetCellValue("Summary", "B2")
	if got != "2" {
		t.Errorf("summary total = %q, want 2", got)
	}
}

func TestFormatSources(t *testing.T) {
	got := formatSources([]models.AnswerSource{
		{Position: 0, Score: 0.912},
		{Position: 4, Score: 0.507},
	})
	want := "chunk 0 (0.912); chunk 4 (0.507)"
	if got != want {
		t.Errorf("formatSources = %q, want %q", got, want)
	}

	if got := formatSources(nil); got != "" {
		t.Errorf("formatSources(nil) = %q, want empty", got)
	}
}
