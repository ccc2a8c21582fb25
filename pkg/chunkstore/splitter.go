package chunkstore

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Piece is a chunk of source text before embedding
type Piece struct {
	Text   string
	Offset int // rune offset in the source text
}

// separators are tried from coarse to fine. "" splits into single characters.
var separators = []string{"\n\n", "\n", " ", ""}

// span is a byte range [start, end) of the source text
type span struct {
	start, end int
}

// Split cuts text into overlapping windows of at most size characters,
// preferring paragraph, then line, then word boundaries. Consecutive windows
// share up to overlap characters of context.
func Split(text string, size, overlap int) []Piece {
	if size <= 0 || text == "" {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	spans := splitRecursive(text, span{0, len(text)}, separators, size, overlap)

	pieces := make([]Piece, 0, len(spans))
	for _, sp := range spans {
		sp = trimSpan(text, sp)
		if sp.start >= sp.end {
			continue
		}
		pieces = append(pieces, Piece{
			Text:   text[sp.start:sp.end],
			Offset: utf8.RuneCountInString(text[:sp.start]),
		})
	}
	return pieces
}

func splitRecursive(text string, whole span, seps []string, size, overlap int) []span {
	sep, rest := pickSeparator(text[whole.start:whole.end], seps)

	var (
		final []span
		good  []span
	)

	for _, sp := range splitSpan(text, whole, sep) {
		if runeLen(text, sp) < size {
			good = append(good, sp)
			continue
		}

		if len(good) > 0 {
			final = append(final, mergeSpans(text, good, size, overlap)...)
			good = nil
		}

		if len(rest) == 0 {
			final = append(final, sp)
		} else {
			final = append(final, splitRecursive(text, sp, rest, size, overlap)...)
		}
	}

	if len(good) > 0 {
		final = append(final, mergeSpans(text, good, size, overlap)...)
	}

	return final
}

// pickSeparator returns the first separator present in s and the finer ones after it
func pickSeparator(s string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(s, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// splitSpan splits whole by sep, dropping empty parts
func splitSpan(text string, whole span, sep string) []span {
	var out []span

	if sep == "" {
		for i := whole.start; i < whole.end; {
			_, w := utf8.DecodeRuneInString(text[i:whole.end])
			out = append(out, span{i, i + w})
			i += w
		}
		return out
	}

	start := whole.start
	for {
		idx := strings.Index(text[start:whole.end], sep)
		if idx < 0 {
			break
		}
		if idx > 0 {
			out = append(out, span{start, start + idx})
		}
		start += idx + len(sep)
	}
	if start < whole.end {
		out = append(out, span{start, whole.end})
	}
	return out
}

// mergeSpans greedily joins adjacent small spans into windows of at most size
// characters, carrying up to overlap characters into the next window. The
// separators between spans count toward the window length as they appear in
// text, including runs that splitSpan dropped.
func mergeSpans(text string, spans []span, size, overlap int) []span {
	var (
		out   []span
		cur   []span
		total int
	)

	gapBefore := func(next span) int {
		if len(cur) == 0 {
			return 0
		}
		return runeLen(text, span{cur[len(cur)-1].end, next.start})
	}

	for _, sp := range spans {
		l := runeLen(text, sp)

		if len(cur) > 0 && total+gapBefore(sp)+l > size {
			out = append(out, span{cur[0].start, cur[len(cur)-1].end})

			for len(cur) > 0 && (total > overlap || total+gapBefore(sp)+l > size) {
				removed := runeLen(text, cur[0])
				if len(cur) > 1 {
					removed += runeLen(text, span{cur[0].end, cur[1].start})
				}
				total -= removed
				cur = cur[1:]
			}
		}

		total += gapBefore(sp) + l
		cur = append(cur, sp)
	}

	if len(cur) > 0 {
		out = append(out, span{cur[0].start, cur[len(cur)-1].end})
	}
	return out
}

func trimSpan(text string, sp span) span {
	s := text[sp.start:sp.end]
	left := len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
	right := len(s) - len(strings.TrimRightFunc(s, unicode.IsSpace))
	if left+right >= len(s) {
		return span{sp.start, sp.start}
	}
	return span{sp.start + left, sp.end - right}
}

func runeLen(text string, sp span) int {
	return utf8.RuneCountInString(text[sp.start:sp.end])
}
