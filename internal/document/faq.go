package document

import (
	"regexp"
	"strings"
)

// FAQ detection scores the text against structural patterns commonly found
// in FAQ documents. Classification threshold is 3, so a single keyword hit
// ("FAQ", "Q:", "Answer 2:") is enough on its own.
var faqStructuralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)FAQ`),
	regexp.MustCompile(`(?i)Frequently Asked Questions`),
	regexp.MustCompile(`(?i)Q\s*\d*\s*[:.]`),
	regexp.MustCompile(`(?i)Question\s*\d*\s*[:.]`),
	regexp.MustCompile(`(?i)A\s*\d*\s*[:.]`),
	regexp.MustCompile(`(?i)Answer\s*\d*\s*[:.]`),
}

var (
	questionHeaderRe = regexp.MustCompile(`(?m)^##\s*.*\?`)
	qaPairRe         = regexp.MustCompile(`(?s)##.*\?\s*\n+[^#]`)
	sectionHeaderRe  = regexp.MustCompile(`(?m)^##\s+`)
	paragraphRe      = regexp.MustCompile(`\n\n+`)
)

// IsFAQ reports whether content looks like an FAQ document.
//
// Scoring:
//   - each structural keyword pattern present: +3
//   - two or more "## ...?" headers: + header count
//   - three or more question marks anywhere: +1
//   - two or more header/answer pairs: + pair count * 2
//
// Classified as FAQ when the total reaches 3.
func IsFAQ(content string) bool {
	score := 0

	for _, pattern := range faqStructuralPatterns {
		if pattern.MatchString(content) {
			score += 3
		}
	}

	questionHeaders := len(questionHeaderRe.FindAllString(content, -1))
	if questionHeaders >= 2 {
		score += questionHeaders
	}

	if strings.Count(content, "?") >= 3 {
		score++
	}

	qaPairs := len(qaPairRe.FindAllString(content, -1))
	if qaPairs >= 2 {
		score += qaPairs * 2
	}

	return score >= 3
}

// SplitFAQ splits FAQ content into chunks along "## " section headers,
// keeping each question together with its answer. Sections are allowed to
// exceed chunkSize up to twice its value before being packed paragraph by
// paragraph; oversize continuation chunks carry the question header so the
// answer text keeps its context.
func SplitFAQ(content string, chunkSize int) []string {
	var chunks []string

	for _, section := range splitSections(content) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		lines := nonEmptyLines(section)
		if len(lines) < 2 {
			// A header with no body (or vice versa) carries no Q&A pair.
			continue
		}

		maxFAQChunk := chunkSize * 2
		if len([]rune(section)) <= maxFAQChunk {
			chunks = append(chunks, section)
			continue
		}

		var questionLine string
		if strings.HasPrefix(lines[0], "##") {
			questionLine = lines[0]
		}

		var current string
		flush := func() {
			if current == "" {
				return
			}
			chunk := current
			if questionLine != "" && !strings.HasPrefix(chunk, "##") {
				chunk = questionLine + "\n\n" + chunk
			}
			chunks = append(chunks, chunk)
		}

		for _, paragraph := range paragraphRe.Split(section, -1) {
			candidate := paragraph
			if current != "" {
				candidate = current + "\n\n" + paragraph
			}
			if len([]rune(candidate)) <= maxFAQChunk {
				current = candidate
				continue
			}
			flush()
			current = paragraph
		}
		flush()
	}

	return chunks
}

// splitSections cuts content at every line starting with "## ", keeping the
// header with the text that follows it.
func splitSections(content string) []string {
	starts := sectionHeaderRe.FindAllStringIndex(content, -1)
	if len(starts) == 0 {
		return []string{content}
	}

	var sections []string
	prev := 0
	for _, loc := range starts {
		if loc[0] > prev {
			sections = append(sections, content[prev:loc[0]])
		}
		prev = loc[0]
	}
	sections = append(sections, content[prev:])
	return sections
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
