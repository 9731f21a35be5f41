// Package routing turns normalized request paths into route decisions.
// Everything here is pure string work: no I/O, no clocks, so the whole
// decision table is exhaustively testable.
package routing

import "strings"

// NormalizePath strips the tenant's base path prefix and collapses
// trailing slashes. The result always starts with "/" and never ends
// with one, except for the bare root "/". basePath must already be in
// canonical form (leading slash, no trailing slash, or empty).
func NormalizePath(rawPath, basePath string) string {
	p := rawPath
	if p == "" {
		return "/"
	}

	if basePath != "" && strings.HasPrefix(p, basePath) {
		rest := p[len(basePath):]
		switch {
		case rest == "":
			p = "/"
		case strings.HasPrefix(rest, "/"):
			p = rest
		}
		// Anything else means the prefix match split a segment
		// ("/blogging" under "/blog"); leave the path alone.
	}

	if p != "/" {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
