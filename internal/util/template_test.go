package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	t.Run("no markers", func(t *testing.T) {
		out, err := RenderTemplate("plain <text> & more", nil)
		require.NoError(t, err)
		assert.Equal(t, "plain <text> & more", out)
	})

	t.Run("no html escaping", func(t *testing.T) {
		out, err := RenderTemplate("Q: {{.Question}}", map[string]any{"Question": "a < b & c"})
		require.NoError(t, err)
		assert.Equal(t, "Q: a < b & c", out)
	})

	t.Run("helpers", func(t *testing.T) {
		out, err := RenderTemplate(`{{default "none" .Missing}} {{upper .A}} {{truncate 3 .B}} {{percent .S}}`,
			map[string]any{"A": "kb", "B": "abcdef", "S": 0.853})
		require.NoError(t, err)
		assert.Equal(t, "none KB abc... 85%", out)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := RenderTemplate("{{.Broken", nil)
		assert.Error(t, err)
	})
}

func TestMustParseTemplate(t *testing.T) {
	tmpl := MustParseTemplate("t", "{{range .}}[{{.}}]{{end}}")
	out, err := tmpl.Render([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "[a][b]", out)

	assert.Panics(t, func() { MustParseTemplate("bad", "{{") })
}
