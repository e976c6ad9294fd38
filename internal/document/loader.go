package document

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

// Normalized content types produced by Load.
const (
	TypePDF      = "pdf"
	TypeMarkdown = "markdown"
	TypeText     = "text"
	TypeHTML     = "html"
)

// Load extracts plain text from raw document bytes.
// The format is chosen from the filename extension:
//
//	.pdf            -> PDF text extraction, page by page
//	.md, .markdown  -> raw text (structure kept for the FAQ heuristic)
//	.txt, .text     -> raw text
//	.html, .htm     -> readability extraction of the main article body
//
// Returns ErrUnsupportedFormat for anything else and ErrEmptyDocument
// when no text survives extraction.
func Load(filename string, data []byte) (text, contentType string, err error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = extractPDF(data)
		contentType = TypePDF
	case ".md", ".markdown":
		// Markdown is kept verbatim: the FAQ classifier and splitter
		// both key off "## " headers.
		text = string(data)
		contentType = TypeMarkdown
	case ".txt", ".text":
		text = string(data)
		contentType = TypeText
	case ".html", ".htm":
		text, err = extractHTML(data)
		contentType = TypeHTML
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return "", "", err
	}

	if isBlank(text) {
		return "", "", fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	return text, contentType, nil
}

// extractPDF pulls plain text from every page of a PDF.
// Pages that fail extraction are skipped rather than failing the whole
// document; scanned PDFs commonly have a few unreadable pages.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}
	return sb.String(), nil
}

// extractHTML extracts the main readable content from an HTML page,
// discarding navigation, ads and boilerplate.
func extractHTML(data []byte) (string, error) {
	// readability needs a base URL to resolve relative links; uploads
	// have none, so use a placeholder.
	base, err := url.Parse("https://localhost/")
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	_, text, err := ExtractWebPage(data, base)
	return text, err
}

// ExtractWebPage extracts the title and main readable content from a fetched
// HTML page. The base URL is used to resolve relative links during
// extraction.
func ExtractWebPage(data []byte, base *url.URL) (title, text string, err error) {
	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", "", fmt.Errorf("extracting html content: %w", err)
	}
	return article.Title, article.TextContent, nil
}
