package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mdtree/internal/auth"
	"mdtree/internal/config"
	"mdtree/internal/markup"
	"mdtree/internal/storage/fs"
	"mdtree/internal/store"
)

const samplePost = `---
id: post-1
title: Camping
tags:
  - outdoor: Outdoor
---
# Camping
intro line
## Gear
![tent](tent.jpg)
<ad>
`

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, config.Config) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "2024"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "2024", "camping.md"), []byte(samplePost), 0o644); err != nil {
		t.Fatalf("write post: %v", err)
	}
	cfg := config.Config{
		ContentPath:   root,
		DataPath:      filepath.Join(root, ".mdtree"),
		AssetPrefix:   "/assets/posts",
		CodeStyle:     "github",
		DBBusyTimeout: time.Second,
		CacheMax:      8,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	st, err := store.Open(filepath.Join(cfg.DataPath, "cache.db"), cfg.DBBusyTimeout)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	srv, err := NewServer(cfg, st)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, cfg
}

func TestAPIPostAssemblesAndCaches(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/posts/2024/camping", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID    string            `json:"id"`
		Title string            `json:"title"`
		Tags  []string          `json:"tags"`
		Tree  []json.RawMessage `json:"tree"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "post-1" || resp.Title != "Camping" || len(resp.Tags) != 1 || resp.Tags[0] != "Outdoor" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Tree) != 1 {
		t.Fatalf("expected one root node, got %d", len(resp.Tree))
	}

	entry, err := srv.store.Get(context.Background(), "2024/camping")
	if err != nil {
		t.Fatalf("expected stored entry: %v", err)
	}
	if entry.PostID != "post-1" {
		t.Fatalf("unexpected stored id %s", entry.PostID)
	}
	if srv.recent.len() != 1 {
		t.Fatalf("expected entry in memory cache")
	}
}

func TestAPIPostReassemblesChangedContent(t *testing.T) {
	srv, cfg := newTestServer(t, nil)
	h := srv.Handler()
	get := func() markup.Document {
		t.Helper()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/2024/camping", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Tree markup.Document `json:"tree"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.Tree
	}
	first := get()
	path := filepath.Join(cfg.ContentPath, "2024", "camping.md")
	if err := os.WriteFile(path, []byte("# Other\n# Second\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	second := get()
	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("expected tree to follow content, got %d then %d roots", len(first), len(second))
	}
}

func TestAPIPostErrors(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if _, _, err := srv.loadTree(context.Background(), "../secret"); !errors.Is(err, fs.ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	rec = httptest.NewRecorder()
	writeError(rec, fs.ErrUnsafePath)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostPreviewAndHome(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/2024/camping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Camping · mdtree</title>",
		`<div class="section h1">`,
		`src="/assets/posts/2024/camping/tent.jpg"`,
		`<div class="ad"></div>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in preview:\n%s", want, body)
		}
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<a class="post-link" href="/posts/2024/camping">Camping</a>`) {
		t.Fatalf("expected cached title on home:\n%s", rec.Body.String())
	}
}

func TestAssembleEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/assemble", strings.NewReader("# A\n## B\ntext")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	doc, err := markup.DecodeDocument(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc) != 1 || doc.Count() != 3 {
		t.Fatalf("unexpected tree with %d roots and %d nodes", len(doc), doc.Count())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/assemble?sanitize=1", strings.NewReader(`hi <script>alert(1)</script>`)))
	clean, err := markup.DecodeDocument(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("decode sanitized: %v", err)
	}
	if p := clean[0].(*markup.Plain); strings.Contains(p.HTML, "script") || !strings.Contains(p.HTML, "hi") {
		t.Fatalf("expected script stripped, got %q", p.HTML)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assemble", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	authFile := filepath.Join(t.TempDir(), "auth.txt")
	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := auth.UpsertFile(authFile, "alice", hash); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.AuthFile = authFile
		cfg.AuthUser = "bot"
		cfg.AuthPass = "token"
	})
	h := srv.Handler()

	cases := []struct {
		user, pass string
		want       int
	}{
		{"", "", http.StatusUnauthorized},
		{"alice", "wrong", http.StatusUnauthorized},
		{"alice", "secret", http.StatusOK},
		{"bot", "token", http.StatusOK},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.user != "" {
			req.SetBasicAuth(c.user, c.pass)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Fatalf("%s: expected %d, got %d", c.user, c.want, rec.Code)
		}
	}
}

func TestNewServerRejectsHalfCredentials(t *testing.T) {
	_, err := newAuth(config.Config{AuthUser: "only"})
	if err == nil {
		t.Fatal("expected error for user without password")
	}
}

func TestTreeCacheEvicts(t *testing.T) {
	c := newTreeCache(2)
	for _, slug := range []string{"a", "b", "c"} {
		c.put(&store.Entry{Slug: slug, Hash: "h"})
	}
	if c.len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.len())
	}
	if _, ok := c.get("a", "h"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := c.get("c", "other"); ok {
		t.Fatalf("expected hash mismatch to miss")
	}
	if _, ok := c.get("c", "h"); ok {
		t.Fatalf("expected stale entry dropped on mismatch")
	}
}
