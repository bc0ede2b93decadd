package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"rag-docqa-platform/models"
)

// ExportHistoryExcel renders a session's conversation history as an Excel
// workbook with a Q&A sheet and a small summary sheet.
func ExportHistoryExcel(sessionID string, conversations []models.Conversation) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Q&A History"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Asked At", "Question", "Answer", "Strategy", "Sources", "Warnings", "Duration (ms)",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	strategyCounts := map[string]int{}
	for rowIdx, conv := range conversations {
		row := rowIdx + 2

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), conv.AskedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), conv.Question)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), conv.Answer)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), conv.Strategy)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), formatSources(conv.Sources))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), strings.Join(conv.Warnings, "; "))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), conv.DurationMS)

		strategyCounts[conv.Strategy]++
	}

	for i := range headers {
		col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
		width := 18.0
		if i == 1 || i == 2 {
			width = 60.0
		}
		f.SetColWidth(sheetName, col, col, width)
	}

	summaryName := "Summary"
	if _, err := f.NewSheet(summaryName); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetCellValue(summaryName, "A1", "Session ID")
	f.SetCellValue(summaryName, "B1", sessionID)
	f.SetCellValue(summaryName, "A2", "Total Questions")
	f.SetCellValue(summaryName, "B2", len(conversations))
	row := 4
	f.SetCellValue(summaryName, fmt.Sprintf("A%d", row), "Questions by Strategy")
	for _, strategy := range []string{"basic", "multi_query", "fusion", "decomposition", "stepback", "hyde"} {
		if count, ok := strategyCounts[strategy]; ok {
			row++
			f.SetCellValue(summaryName, fmt.Sprintf("A%d", row), strategy)
			f.SetCellValue(summaryName, fmt.Sprintf("B%d", row), count)
		}
	}

	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func formatSources(sources []models.AnswerSource) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("chunk %d (%.3f)", src.Position, src.Score)
	}
	return strings.Join(parts, "; ")
}
