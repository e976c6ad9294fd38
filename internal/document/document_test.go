package document

import (
	"errors"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		data         string
		wantType     string
		wantText     string
		wantErr      error
		wantContains string
	}{
		{
			name:     "markdown kept verbatim",
			filename: "faq.md",
			data:     "# FAQ\n\n## How?\n\nLike this.",
			wantType: TypeMarkdown,
			wantText: "# FAQ\n\n## How?\n\nLike this.",
		},
		{
			name:     "markdown long extension",
			filename: "notes.markdown",
			data:     "notes",
			wantType: TypeMarkdown,
			wantText: "notes",
		},
		{
			name:     "plain text",
			filename: "readme.txt",
			data:     "hello world",
			wantType: TypeText,
			wantText: "hello world",
		},
		{
			name:     "extension case insensitive",
			filename: "README.TXT",
			data:     "upper case extension",
			wantType: TypeText,
			wantText: "upper case extension",
		},
		{
			name:         "html readability extraction",
			filename:     "page.html",
			data:         `<html><head><title>T</title></head><body><article><p>Shipping takes three days in most regions, and tracking numbers are emailed on dispatch.</p><p>Returns are accepted within thirty days of delivery for a full refund.</p></article></body></html>`,
			wantType:     TypeHTML,
			wantContains: "Shipping takes three days",
		},
		{
			name:     "unsupported extension",
			filename: "archive.zip",
			data:     "binary",
			wantErr:  ErrUnsupportedFormat,
		},
		{
			name:     "no extension",
			filename: "Makefile",
			data:     "all: build",
			wantErr:  ErrUnsupportedFormat,
		},
		{
			name:     "empty text file",
			filename: "empty.txt",
			data:     "   \n\t\n",
			wantErr:  ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, contentType, err := Load(tt.filename, []byte(tt.data))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if contentType != tt.wantType {
				t.Errorf("contentType = %q, want %q", contentType, tt.wantType)
			}
			if tt.wantText != "" && text != tt.wantText {
				t.Errorf("text = %q, want %q", text, tt.wantText)
			}
			if tt.wantContains != "" && !strings.Contains(text, tt.wantContains) {
				t.Errorf("text should contain %q, got %q", tt.wantContains, text)
			}
		})
	}
}

func TestLoad_InvalidPDF(t *testing.T) {
	_, _, err := Load("broken.pdf", []byte("definitely not a pdf"))
	if err == nil {
		t.Error("expected error for invalid PDF bytes")
	}
}

func TestNewProcessor_InvalidConfig(t *testing.T) {
	if _, err := NewProcessor(0, 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewProcessor(100, 100); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestProcessor_Process_FAQ(t *testing.T) {
	p, err := NewProcessor(1000, 200)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	content := "# Frequently Asked Questions\n\n" +
		"## How do I reset my password?\n\nUse the forgot password link.\n\n" +
		"## How do I contact support?\n\nEmail support@example.com."

	processed, err := p.Process("faq.md", []byte(content))
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if !processed.IsFAQ {
		t.Error("expected document to be classified as FAQ")
	}
	if processed.ContentType != TypeMarkdown {
		t.Errorf("ContentType = %q, want %q", processed.ContentType, TypeMarkdown)
	}
	if len(processed.Chunks) == 0 {
		t.Fatal("expected chunks")
	}

	// Question and answer must share a chunk
	for _, chunk := range processed.Chunks {
		if strings.Contains(chunk, "reset my password?") && !strings.Contains(chunk, "forgot password link") {
			t.Error("FAQ chunking separated a question from its answer")
		}
	}
}

func TestProcessor_Process_Prose(t *testing.T) {
	p, err := NewProcessor(50, 10)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	content := strings.Repeat("Plain prose without any signal words at all. ", 10)

	processed, err := p.Process("doc.txt", []byte(content))
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if processed.IsFAQ {
		t.Error("plain prose should not be classified as FAQ")
	}
	if len(processed.Chunks) < 2 {
		t.Errorf("expected sliding-window split to produce multiple chunks, got %d", len(processed.Chunks))
	}
	for i, chunk := range processed.Chunks {
		if n := len([]rune(chunk)); n > 50 {
			t.Errorf("chunk %d has %d runes, max 50", i, n)
		}
	}
}

func TestProcessor_ProcessText(t *testing.T) {
	p, err := NewProcessor(1000, 200)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	processed, err := p.ProcessText("Extracted web page text about shipping policies.", TypeHTML)
	if err != nil {
		t.Fatalf("ProcessText() failed: %v", err)
	}
	if processed.ContentType != TypeHTML {
		t.Errorf("ContentType = %q, want %q", processed.ContentType, TypeHTML)
	}
	if len(processed.Chunks) != 1 {
		t.Errorf("expected single chunk, got %d", len(processed.Chunks))
	}

	if _, err := p.ProcessText("   \n ", TypeHTML); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument for blank text, got %v", err)
	}
}
