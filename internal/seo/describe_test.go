package seo

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDescribeStripsMarkup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain tags", "<p>Hello <strong>world</strong></p>", "Hello world"},
		{"script bodies dropped", "<script>var x = 1;</script><p>Visible</p>", "Visible"},
		{"style bodies dropped", "<style>p { color: red }</style>Text", "Text"},
		{"whitespace collapsed", "a  b\n\n\tc", "a b c"},
		{"nested markup", "<div><h2>Title</h2><p>Body <em>text</em>.</p></div>", "Title Body text ."},
		{"empty input", "", ""},
		{"markup only", "<p></p><br>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.body, 0))
		})
	}
}

func TestDescribeTruncation(t *testing.T) {
	const sentence = "The quick brown fox jumps over the lazy dog"

	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, sentence, Describe(sentence, 160))
	})

	t.Run("exact limit untouched", func(t *testing.T) {
		text := strings.Repeat("a", 20)
		assert.Equal(t, text, Describe(text, 20))
	})

	t.Run("cut at word boundary", func(t *testing.T) {
		assert.Equal(t, "The quick brown fox…", Describe(sentence, 20))
		assert.Equal(t, "The quick brown…", Describe(sentence, 16))
	})

	t.Run("unbroken word cut hard", func(t *testing.T) {
		assert.Equal(t, "abcdefghi…", Describe("abcdefghijklmnopqrstuvwxyz", 10))
	})

	t.Run("never exceeds limit", func(t *testing.T) {
		for limit := 5; limit <= 30; limit += 5 {
			got := Describe(sentence, limit)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), limit, "limit %d", limit)
		}
	})

	t.Run("rune aware", func(t *testing.T) {
		got := Describe("héllo wörld"+strings.Repeat(" padding", 40), 11)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 11)
		assert.True(t, strings.HasSuffix(got, "…"))
	})
}
