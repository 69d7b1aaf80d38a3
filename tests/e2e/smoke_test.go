//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
)

const defaultBaseURL = "http://mdtree-e2e:8080"

func baseURL() string {
	if v := os.Getenv("E2E_BASE_URL"); v != "" {
		return v
	}
	return defaultBaseURL
}

func newPage(t *testing.T) playwright.Page {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := waitForHTTP(ctx, baseURL()); err != nil {
		t.Fatalf("base url not reachable: %v", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("playwright run: %v", err)
	}
	t.Cleanup(func() { _ = pw.Stop() })

	browser, err := pw.Chromium.Launch()
	if err != nil {
		t.Fatalf("launch chromium: %v", err)
	}
	t.Cleanup(func() { _ = browser.Close() })

	page, err := browser.NewPage()
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	return page
}

func TestHomeSmoke(t *testing.T) {
	page := newPage(t)
	if _, err := page.Goto(baseURL(), playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}); err != nil {
		t.Fatalf("goto home: %v", err)
	}
	if err := page.Locator("h1").First().WaitFor(); err != nil {
		t.Fatalf("home heading missing: %v", err)
	}
}

func TestOpenFirstPost(t *testing.T) {
	page := newPage(t)
	if _, err := page.Goto(baseURL(), playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}); err != nil {
		t.Fatalf("goto home: %v", err)
	}

	links := page.Locator("a.post-link")
	count, err := links.Count()
	if err != nil {
		t.Fatalf("count post links: %v", err)
	}
	if count == 0 {
		t.Skip("no posts available to open")
	}
	linkedTitle, err := links.First().TextContent()
	if err != nil {
		t.Fatalf("first post title: %v", err)
	}
	if err := links.First().Click(); err != nil {
		t.Fatalf("click first post: %v", err)
	}
	if err := page.Locator(".post-body").WaitFor(); err != nil {
		t.Fatalf("post body missing: %v", err)
	}
	title, err := page.Title()
	if err != nil {
		t.Fatalf("page title: %v", err)
	}
	if linked := strings.TrimSpace(linkedTitle); linked != "" && !strings.HasPrefix(title, linked) {
		t.Fatalf("title mismatch: list=%q page=%q", linked, title)
	}

	sections := page.Locator(".post-body .section")
	if n, err := sections.Count(); err == nil && n > 0 {
		if err := sections.First().WaitFor(); err != nil {
			t.Fatalf("section not rendered: %v", err)
		}
	}
}

func TestAssembleAPI(t *testing.T) {
	resp, err := http.Post(baseURL()+"/api/assemble", "text/markdown", strings.NewReader("# Smoke\ntext\n"))
	if err != nil {
		t.Fatalf("post assemble: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		t.Skip("server requires auth")
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func waitForHTTP(ctx context.Context, rawURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 500 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
