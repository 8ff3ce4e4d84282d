package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidChunking reports unusable chunking parameters. This is a
// configuration error, not an input error.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// ChunkText splits text into overlapping segments of at most size
// characters. Each segment starts size-overlap characters after the
// previous one, so consecutive full segments share an overlap-character
// region. Cuts prefer sentence ends, then whitespace, inside the
// overlap zone; otherwise the cut is a hard character cut so
// segmentation always makes progress. The final segment is shorter,
// never padded, and empty segments are never emitted.
func ChunkText(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d for chunk size %d", ErrInvalidChunking, overlap, size)
	}

	runes := []rune(text)
	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		last := end >= len(runes)
		if last {
			end = len(runes)
		} else {
			end = cutPoint(runes, end, overlap)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if last {
			break
		}
	}
	return chunks, nil
}

// cutPoint moves a hard cut backwards to the nearest sentence end, or
// failing that the nearest whitespace. It never looks back further than
// the overlap, so no text falls between consecutive segments.
func cutPoint(runes []rune, end, overlap int) int {
	sentenceBack := min(overlap, 80)
	for i := end - 1; i >= end-sentenceBack && i > 0; i-- {
		if isSentenceEnd(runes[i]) && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			return i + 1
		}
	}
	spaceBack := min(overlap, 40)
	for i := end - 1; i >= end-spaceBack && i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
