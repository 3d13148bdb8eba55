package score

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/maastricht-university/chatrisk/model"
)

var ErrMissingStopWords = errors.New("stop-word list not found")

// StopWords is a case-folded, read-only word set.
type StopWords map[string]struct{}

// ReadStopWords reads one word per line. Blank lines are ignored.
func ReadStopWords(r io.Reader) (StopWords, error) {
	sw := StopWords{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" {
			continue
		}
		sw[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stop words: %w", err)
	}
	return sw, nil
}

func LoadStopWords(path string) (StopWords, error) {
	if path == "" {
		return nil, fmt.Errorf("stop words: no path configured: %w", ErrMissingStopWords)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stop words %s: %w", path, ErrMissingStopWords)
		}
		return nil, fmt.Errorf("open stop words: %w", err)
	}
	defer f.Close()
	return ReadStopWords(f)
}

func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// FilterKeywords lower-cases every term and drops stop words. Relevance and
// relative order of the survivors are preserved.
func FilterKeywords(kws []model.Keyword, stop StopWords) []model.Keyword {
	out := make([]model.Keyword, 0, len(kws))
	for _, kw := range kws {
		term := strings.ToLower(kw.Term)
		if stop.Contains(term) {
			continue
		}
		out = append(out, model.Keyword{Term: term, Relevance: kw.Relevance})
	}
	return out
}
