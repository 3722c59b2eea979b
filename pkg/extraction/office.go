package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// OfficeParser handles OOXML word-processing and spreadsheet files.
type OfficeParser struct{}

// DOCX returns the paragraph text of word/document.xml.
func (OfficeParser) DOCX(_ context.Context, data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	for _, file := range zipReader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}
		return collapseBlankLines(paragraphText(content)), nil
	}
	return "", fmt.Errorf("invalid DOCX: missing word/document.xml")
}

func paragraphText(xmlContent []byte) string {
	var textBuilder strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(xmlContent))

	inParagraph := false
	paragraph := strings.Builder{}

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" && t.Name.Space == wordNamespace {
				inParagraph = true
				paragraph.Reset()
			}
		case xml.EndElement:
			if t.Name.Local == "p" && t.Name.Space == wordNamespace {
				if inParagraph && paragraph.Len() > 0 {
					textBuilder.WriteString(paragraph.String())
					textBuilder.WriteString("\n")
				}
				inParagraph = false
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" && inParagraph {
				if paragraph.Len() > 0 {
					paragraph.WriteString(" ")
				}
				paragraph.WriteString(text)
			}
		}
	}
	return textBuilder.String()
}

// XLSX renders every sheet as "Sheet: name" followed by pipe-separated rows.
func (OfficeParser) XLSX(_ context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Sheet: %s\n", sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " | "))
			if strings.Trim(line, "| ") == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return collapseBlankLines(sb.String()), nil
}

func collapseBlankLines(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
