// Package document turns raw uploads into retrieval-ready chunks.
//
// Processing pipeline:
//  1. Load: decode the raw bytes into plain text based on file extension
//     (PDF, Markdown, plain text, HTML).
//  2. Classify: score the text against FAQ structural patterns.
//  3. Split: FAQ documents are split along question sections to keep each
//     question with its answer; everything else goes through the
//     sliding-window splitter.
//
// The package is pure text processing: no storage, no embedding, no network
// (HTML extraction operates on bytes already fetched by the caller).
package document

import "errors"

var (
	// ErrUnsupportedFormat indicates the file extension has no registered loader.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument indicates the document contained no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrInvalidConfig indicates the splitter was configured with an
	// impossible chunk geometry.
	ErrInvalidConfig = errors.New("invalid splitter configuration")
)

// Processed is the result of running a document through the processor.
type Processed struct {
	// Text is the full extracted plain text.
	Text string

	// ContentType is the normalized type derived from the filename
	// extension ("pdf", "markdown", "text", "html").
	ContentType string

	// IsFAQ reports whether the FAQ heuristic classified the document.
	IsFAQ bool

	// Chunks holds the split text in document order.
	Chunks []string
}

// Processor loads, classifies and splits documents.
type Processor struct {
	splitter *Splitter
}

// NewProcessor creates a processor with the given chunk geometry.
// Returns ErrInvalidConfig when chunkSize < 1 or overlap is not in [0, chunkSize).
func NewProcessor(chunkSize, chunkOverlap int) (*Processor, error) {
	splitter, err := NewSplitter(chunkSize, chunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Processor{splitter: splitter}, nil
}

// Process extracts text from data, classifies it and splits it into chunks.
// The filename is only used for extension-based format detection.
func (p *Processor) Process(filename string, data []byte) (*Processed, error) {
	text, contentType, err := Load(filename, data)
	if err != nil {
		return nil, err
	}

	return p.process(text, contentType)
}

// ProcessText runs classification and splitting on already-extracted text.
// Used for URL ingestion where extraction happens upstream.
func (p *Processor) ProcessText(text, contentType string) (*Processed, error) {
	if isBlank(text) {
		return nil, ErrEmptyDocument
	}
	return p.process(text, contentType)
}

func (p *Processor) process(text, contentType string) (*Processed, error) {
	isFAQ := IsFAQ(text)

	var chunks []string
	if isFAQ {
		chunks = SplitFAQ(text, p.splitter.chunkSize)
		// FAQ splitting can come up empty on degenerate section structure;
		// fall back to the sliding window so no text is lost.
		if len(chunks) == 0 {
			chunks = p.splitter.Split(text)
		}
	} else {
		chunks = p.splitter.Split(text)
	}

	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	return &Processed{
		Text:        text,
		ContentType: contentType,
		IsFAQ:       isFAQ,
		Chunks:      chunks,
	}, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
