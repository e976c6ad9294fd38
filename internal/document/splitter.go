package document

import "fmt"

// Splitter cuts text into fixed-size windows with overlap.
// Sizes are measured in runes so multi-byte text never splits mid-character.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter validates the chunk geometry.
// Overlap must be in [0, chunkSize) so every step makes forward progress.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got overlap=%d size=%d",
			ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split cuts text into overlapping windows.
// The union of all chunks covers the input exactly; consecutive chunks share
// chunkOverlap runes. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	step := s.chunkSize - s.chunkOverlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
