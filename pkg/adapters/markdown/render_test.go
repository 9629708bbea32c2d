package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := New()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Heading", "# Plan", "<h1>Plan</h1>"},
		{"Emphasis", "some *text*", "<p>some <em>text</em></p>"},
		{"Strikethrough", "~~done~~", "<p><del>done</del></p>"},
		{"Empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_Sanitizes(t *testing.T) {
	got, err := New().Render("hi <script>alert(1)</script>\n\n[x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, got, "<script")
	assert.NotContains(t, got, "javascript:")
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("notes/today.md"))
	assert.True(t, IsMarkdown("README.MARKDOWN"))
	assert.False(t, IsMarkdown("page.html"))
	assert.False(t, IsMarkdown("md"))
}
