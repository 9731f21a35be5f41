// check-proxy simulates what a tenant's reverse proxy sends and reports
// how a running instance answers. Run it against staging before handing
// a customer their proxy snippet.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"blogview/internal/resolve"
)

func main() {
	reader := bufio.NewScanner(os.Stdin)

	fmt.Println("Proxy configuration check")

	fmt.Println("Platform URL to request (e.g. https://render.blogview.app/about):")
	reader.Scan()
	target := strings.TrimSpace(reader.Text())
	if target == "" {
		fmt.Println("A URL is required. Exiting.")
		return
	}

	fmt.Println("Visitor hostname the proxy forwards (e.g. www.example.com):")
	reader.Scan()
	visitorHost := strings.TrimSpace(reader.Text())

	fmt.Println("Shared proxy secret (hidden, empty to send none):")
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Println("Failed to read secret:", err)
		return
	}
	secret := string(secretBytes)
	fmt.Println()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		fmt.Println("Bad URL:", err)
		return
	}
	if visitorHost != "" {
		req.Header.Set(resolve.HeaderVisitorHost, visitorHost)
	}
	if secret != "" {
		req.Header.Set(resolve.HeaderProxySecret, secret)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		// Redirects are part of the answer being checked.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Request failed:", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	fmt.Println("Status:", resp.Status)
	printHeader(resp, "Location")
	printHeader(resp, "Content-Language")
	printHeader(resp, "X-Cache")
	printHeader(resp, "X-Request-ID")

	switch {
	case resp.StatusCode == http.StatusPermanentRedirect:
		fmt.Println("Result: canonical redirect. The proxy must follow redirects or preserve paths as sent.")
	case resp.Header.Get("X-Robots-Tag") == "noindex":
		fmt.Println("Result: no tenant matched. Check the visitor hostname, the trust allowlist, and the secret.")
	case resp.StatusCode == http.StatusOK:
		fmt.Printf("Result: tenant page served (%d bytes).\n", len(body))
		if title := extractTitle(string(body)); title != "" {
			fmt.Println("Title:", title)
		}
	default:
		fmt.Println("Result: unexpected response.")
	}
}

func printHeader(resp *http.Response, name string) {
	if v := resp.Header.Get(name); v != "" {
		fmt.Printf("%s: %s\n", name, v)
	}
}

func extractTitle(body string) string {
	lower := strings.ToLower(body)
	start := strings.Index(lower, "<title>")
	if start < 0 {
		return ""
	}
	start += len("<title>")
	end := strings.Index(lower[start:], "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(body[start : start+end])
}
