// FILENAME: internal/payload/source_test.go
package payload_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/payload"
)

func TestSource_Wordlists(t *testing.T) {
	src := payload.NewSource([]string{"a", "b"}, nil, []string{"c"})

	assert.Equal(t, []string{"a", "b"}, src.Wordlist(1))
	assert.Equal(t, []string{}, src.Wordlist(2))
	assert.Equal(t, []string{"c"}, src.Wordlist(3))
	assert.Equal(t, []string{}, src.Wordlist(0))
	assert.Equal(t, []string{}, src.Wordlist(4))
	assert.Equal(t, []string{"a", "b", "c"}, src.All())
	assert.Len(t, src.Lists(), payload.Slots)

	var nilSrc *payload.Source
	assert.Empty(t, nilSrc.All())
}

func TestSource_WordlistIsACopy(t *testing.T) {
	words := []string{"a", "b"}
	src := payload.NewSource(words)

	got := src.Wordlist(1)
	got[0] = "changed"
	src.Lists()[0][1] = "changed"

	assert.Equal(t, []string{"a", "b"}, src.Wordlist(1))
	assert.Equal(t, []string{"a", "b"}, src.All())
}

func TestReadWordlist(t *testing.T) {
	got, err := payload.ReadWordlist(strings.NewReader("admin\r\n\nlogin\n.git\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "login", ".git"}, got)
}

func TestLoadWordlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o600))

	got, err := payload.LoadWordlist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)

	_, err = payload.LoadWordlist(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	a := models.Exchange{Request: &models.CapturedRequest{URL: "http://a"}}
	b := models.Exchange{Request: &models.CapturedRequest{URL: "http://b"}}
	tpl := payload.NewTemplates(a, b)

	assert.Equal(t, 2, tpl.Count())

	got, ok := tpl.Get(1)
	require.True(t, ok)
	assert.Equal(t, "http://a", got.Request.URL)

	_, ok = tpl.Get(0)
	assert.False(t, ok)
	_, ok = tpl.Get(3)
	assert.False(t, ok)

	all := tpl.All()
	require.Len(t, all, 2)
	assert.Equal(t, "http://b", all[1].Request.URL)

	var empty *payload.Templates
	assert.Equal(t, 0, empty.Count())
}
