package shell

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"":                      "''",
		"ps":                    "ps",
		"--format":              "--format",
		"{{json .}}":            "'{{json .}}'",
		"type=container":        "type=container",
		"it's":                  `'it'\''s'`,
		"/usr/local/bin/docker": "/usr/local/bin/docker",
	}
	for in, want := range cases {
		assert.Equal(t, Quote(in), want, "input %q", in)
	}
}

func TestJoin(t *testing.T) {
	got := Join("docker", "ps", "-a", "--format", "{{.ID}},{{.Names}},{{.State}}")
	assert.Equal(t, got, "docker ps -a --format '{{.ID}},{{.Names}},{{.State}}'")
}
