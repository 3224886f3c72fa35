// FILENAME: internal/config/campaign_test.go
package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/mutafuzz/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, config.DefaultThreads, c.Engine.Threads)
	assert.Equal(t, 7*time.Second, c.Engine.Timeout)
	assert.Equal(t, "default", c.Script)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, "campaign.yaml", `
target: https://example.com
script: numbers
wordlists: [a.txt, b.txt]
params:
  min: "1"
  max: "10"
engine:
  threads: 4
  timeout: 2s
  delay: 50ms
  protocol: h3
  quarantine_threshold: 5
case:
  uppercase: true
filters:
  status: [200, 302]
  interesting: true
  min_length: 10
output:
  formats: [json, sqlite]
`)

	c, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "https://example.com", c.Target)
	assert.Equal(t, "numbers", c.Script)
	assert.Equal(t, "10", c.Params["max"])
	assert.Equal(t, 4, c.Engine.Threads)
	assert.Equal(t, 2*time.Second, c.Engine.Timeout)
	assert.Equal(t, 50*time.Millisecond, c.Engine.Delay)
	assert.Equal(t, config.DefaultRetries, c.Engine.Retries, "unset keys keep defaults")
	assert.True(t, c.Case.Upper)
	assert.Equal(t, []int{200, 302}, c.Filters.Status)
	require.NotNil(t, c.Filters.MinLength)
	assert.Equal(t, 10, *c.Filters.MinLength)
	assert.Nil(t, c.Filters.MaxLength)
	assert.Equal(t, []string{"json", "sqlite"}, c.Output.Formats)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeFile(t, "bad.yaml", "engine: [unclosed"))
	assert.Error(t, err)
}

func TestValidate_CollectsProblems(t *testing.T) {
	c := config.Default()
	c.Engine.Threads = 0
	c.Engine.Protocol = "gopher"
	c.Wordlists = []string{"1", "2", "3", "4"}
	c.Output.Formats = []string{"xml"}

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"threads", "gopher", "wordlists", "xml"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestResolveTemplate(t *testing.T) {
	c := config.Default()
	c.Template = "GET /%s HTTP/1.1\n\n"
	got, err := c.ResolveTemplate()
	require.NoError(t, err)
	assert.Equal(t, c.Template, got)

	c = config.Default()
	c.TemplateFile = writeFile(t, "req.txt", "POST / HTTP/1.1\n\n%s")
	got, err = c.ResolveTemplate()
	require.NoError(t, err)
	assert.Equal(t, "POST / HTTP/1.1\n\n%s", got)

	c.TemplateFile = filepath.Join(t.TempDir(), "nope.txt")
	_, err = c.ResolveTemplate()
	assert.Error(t, err)
}
