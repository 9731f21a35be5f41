package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogview/internal/seo"
)

const testShell = `<!DOCTYPE html>
<html>
<head><title>Placeholder</title><meta charset="utf-8"></head>
<body><div id="app"></div><script src="/client.js"></script></body>
</html>`

func testMeta() seo.Meta {
	return seo.Meta{
		Title:     "Hello | Acme",
		Canonical: "https://blog.acme.com/post/hello",
		SiteName:  "Acme",
		OGType:    "website",
	}
}

func TestAssembleRemovesShellTitle(t *testing.T) {
	out := NewAssembler(nil).Assemble(testShell, "<p>x</p>", nil, testMeta())

	assert.Equal(t, 1, strings.Count(out, "<title>"))
	assert.NotContains(t, out, "Placeholder")
	assert.Contains(t, out, "<title>Hello | Acme</title>")
}

func TestAssembleMountsMarkup(t *testing.T) {
	out := NewAssembler(nil).Assemble(testShell, "<article>Post body</article>", nil, testMeta())

	assert.Contains(t, out, `<div id="app"><article>Post body</article></div>`)
	// Head metadata lands inside the head element.
	head := out[:strings.Index(out, "</head>")]
	assert.Contains(t, head, `<link rel="canonical"`)
}

func TestAssembleHydrationState(t *testing.T) {
	state := map[string]any{
		"post": map[string]any{"title": `</script><script>alert(1)</script>`},
	}
	out := NewAssembler(nil).Assemble(testShell, "<p>x</p>", state, testMeta())

	require.Contains(t, out, "window.__BV_STATE__ = ")
	// The payload must not be able to close the script element.
	assert.NotContains(t, out, "</script><script>alert")
	assert.Contains(t, out, `</script>`)

	script := strings.Index(out, "window.__BV_STATE__")
	body := strings.Index(out, "</body>")
	assert.Less(t, script, body)
}

func TestAssembleWithoutMountPoint(t *testing.T) {
	shell := `<html><head></head><body><main>static</main></body></html>`
	out := NewAssembler(nil).Assemble(shell, "<p>rendered</p>", nil, testMeta())

	assert.Contains(t, out, "<p>rendered</p>")
	assert.Less(t, strings.Index(out, "<p>rendered</p>"), strings.Index(out, "</body>"))
}

func TestAssembleCaseInsensitiveAnchors(t *testing.T) {
	shell := `<HTML><HEAD></HEAD><BODY><div id="app"></div></BODY></HTML>`
	out := NewAssembler(nil).Assemble(shell, "<p>x</p>", map[string]any{"a": 1}, testMeta())

	assert.Less(t, strings.Index(out, "<title>"), strings.Index(out, "</HEAD>"))
	assert.Less(t, strings.Index(out, "window.__BV_STATE__"), strings.Index(out, "</BODY>"))
}

func TestAssembleEmptyState(t *testing.T) {
	out := NewAssembler(nil).Assemble(testShell, "<p>x</p>", nil, testMeta())
	assert.NotContains(t, out, "__BV_STATE__")
}
