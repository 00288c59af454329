package recognition

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// TextEngine reads plain-text documents. Form feeds separate pages and each
// non-blank line becomes one block with full confidence.
type TextEngine struct{}

func (TextEngine) Name() string { return "text" }

func (TextEngine) Supports(format Format) bool { return format == FormatText }

func (TextEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	if in.Format != FormatText {
		return Result{}, fmt.Errorf("%w: text engine cannot read %s", ErrUnsupportedInput, in.Format)
	}
	if !utf8.Valid(in.Data) {
		return Result{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrUnsupportedInput, in.Name)
	}

	raw := strings.ReplaceAll(string(in.Data), "\r\n", "\n")
	chunks := strings.Split(raw, "\f")
	if len(chunks) > 1 && strings.TrimSpace(chunks[len(chunks)-1]) == "" {
		chunks = chunks[:len(chunks)-1]
	}

	pages := make([]Page, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := Page{Number: i + 1, Blocks: []Block{}}
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lines = append(lines, line)
			page.Blocks = append(page.Blocks, Block{Text: line, Confidence: 1})
		}
		page.Text = strings.Join(lines, "\n")
		pages = append(pages, page)
	}
	return Result{Engine: "text", Pages: pages}, nil
}
