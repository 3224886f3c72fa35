// FILENAME: internal/payload/source.go
package payload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Slots is the number of wordlists a run can configure.
const Slots = 3

// Source exposes the configured wordlists, numbered 1 to 3.
type Source struct {
	lists [Slots][]string
}

// NewSource builds a source from up to three wordlists. Extra lists are ignored.
func NewSource(wordlists ...[]string) *Source {
	s := &Source{}
	for i := 0; i < len(wordlists) && i < Slots; i++ {
		s.lists[i] = wordlists[i]
	}
	return s
}

// Wordlist returns a copy of list n (1-based). Unknown or unset slots
// return an empty list.
func (s *Source) Wordlist(n int) []string {
	if s == nil || n < 1 || n > Slots || s.lists[n-1] == nil {
		return []string{}
	}
	return slices.Clone(s.lists[n-1])
}

// All concatenates the three lists in order.
func (s *Source) All() []string {
	var out []string
	for n := 1; n <= Slots; n++ {
		out = append(out, s.Wordlist(n)...)
	}
	return out
}

// Lists returns the three slots in order, unset ones as empty lists.
func (s *Source) Lists() [][]string {
	out := make([][]string, Slots)
	for n := 1; n <= Slots; n++ {
		out[n-1] = s.Wordlist(n)
	}
	return out
}

// ReadWordlist reads one entry per line. Blank lines are skipped and a
// trailing carriage return is stripped.
func ReadWordlist(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read wordlist: %w", err)
	}
	return out, nil
}

// LoadWordlist reads a wordlist file from disk.
func LoadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadWordlist(f)
}

// Templates is the ordered list of captured exchanges a run was started with.
type Templates struct {
	items []models.Exchange
}

func NewTemplates(items ...models.Exchange) *Templates {
	return &Templates{items: items}
}

// Get returns exchange i (1-based). ok is false when i is out of range.
func (t *Templates) Get(i int) (models.Exchange, bool) {
	if t == nil || i < 1 || i > len(t.items) {
		return models.Exchange{}, false
	}
	return t.items[i-1], true
}

// All returns every exchange in insertion order.
func (t *Templates) All() []models.Exchange {
	if t == nil {
		return nil
	}
	out := make([]models.Exchange, len(t.items))
	copy(out, t.items)
	return out
}

func (t *Templates) Count() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}
