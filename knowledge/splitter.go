package knowledge

import "strings"

// Splitter breaks text into spans of at most Size runes, preferring to cut at
// the first separator (in order) that still occurs in the text, and carrying up
// to Overlap runes of trailing context into the next span.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// DefaultSeparators split on paragraphs, then lines, then words, then runes.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// NewSplitter returns a splitter with the given size and overlap. Non-positive
// sizes fall back to 500 and overlaps are clamped below size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

// Split returns the spans for text. Whitespace-only input yields no spans.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

func (s *Splitter) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitRunes(text)
	} else {
		pieces = strings.Split(text, sep)
	}

	var (
		out     []string
		pending []string
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, s.merge(pending, sep)...)
		pending = nil
	}

	for _, p := range pieces {
		if p == "" {
			continue
		}
		if runeLen(p) <= s.Size {
			pending = append(pending, p)
			continue
		}
		flush()
		if len(rest) == 0 {
			out = append(out, hardWrap(p, s.Size)...)
			continue
		}
		out = append(out, s.split(p, rest)...)
	}
	flush()

	return out
}

// merge greedily joins small pieces into spans bounded by Size, keeping a tail
// of at most Overlap runes from the previous span.
func (s *Splitter) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)

	var (
		out    []string
		window []string
		total  int
	)
	emit := func() {
		if len(window) == 0 {
			return
		}
		if doc := strings.TrimSpace(strings.Join(window, sep)); doc != "" {
			out = append(out, doc)
		}
	}

	for _, p := range pieces {
		pl := runeLen(p)
		extra := pl
		if len(window) > 0 {
			extra += sepLen
		}
		if total+extra > s.Size && len(window) > 0 {
			emit()
			for len(window) > 0 && (total > s.Overlap || total+pl+sepLen > s.Size) {
				total -= runeLen(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, p)
		total += pl
	}
	emit()

	return out
}

func splitRunes(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func hardWrap(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func runeLen(s string) int { return len([]rune(s)) }
