package rag

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"github.com/kynahq/kyna/internal/log"
)

// defaultPromptTemplate is used when no prompt file is configured. The
// grounding instruction is what keeps answers inside the ingested corpus:
// when retrieval comes back empty the model is still called, so the refusal
// wording here is the refusal the user sees.
const defaultPromptTemplate = `Use the following context to answer the question. Answer using only the information in the context. Detect the language of the context and question and answer in that same language. If the context does not contain the information needed to answer, say that you don't know based on the available documents, in that same language. Do not use outside knowledge.

Context:
{{.Context}}

Question: {{.Question}}

Answer:`

// promptData is the input to the answer prompt template.
type promptData struct {
	Context  string
	Question string
}

// loadPrompt parses the prompt template at path. An empty path or a file
// that does not exist falls back to the built-in default; a file that
// exists but cannot be read or parsed is an error. The template may
// reference {{.Context}} and {{.Question}}.
func loadPrompt(path string, logger log.Logger) (*template.Template, error) {
	text := defaultPromptTemplate
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("prompt template file not found, using built-in default", "path", path)
		case err != nil:
			return nil, fmt.Errorf("reading prompt template: %w", err)
		default:
			text = strings.TrimSpace(string(raw))
		}
	}

	tmpl, err := template.New("answer").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	return tmpl, nil
}
