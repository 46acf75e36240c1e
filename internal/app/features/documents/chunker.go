// internal/app/features/documents/chunker.go
package documents

import "strings"

const (
	chunkSize    = 2000
	chunkOverlap = 200
)

// chunkText splits extracted document text into overlapping windows
// sized for embedding. Splits prefer whitespace near the boundary so
// words survive intact.
func chunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		// Back up to the nearest whitespace, within reason.
		cut := end
		for cut > start+chunkSize/2 && !isSpace(runes[cut-1]) {
			cut--
		}
		if cut == start+chunkSize/2 {
			cut = end
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - chunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
