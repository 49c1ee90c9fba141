package ocr

import "strings"

// AssembleText rebuilds the plain text of a result from its structure,
// pages separated by form feeds. Used when a result arrives without its
// flattened text field.
func AssembleText(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		parts = append(parts, assemblePage(page))
	}
	return strings.Join(parts, "\f")
}

func assemblePage(page Page) string {
	if len(page.Blocks) == 0 {
		return page.Text
	}

	var b strings.Builder
	for i, block := range page.Blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if len(block.Lines) == 0 {
			b.WriteString(block.Text)
			continue
		}
		for j, line := range block.Lines {
			if j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(line.Text)
		}
	}
	return b.String()
}
