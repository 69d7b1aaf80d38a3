package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"mdtree/internal/markup"
	"mdtree/internal/post"
	"mdtree/internal/storage/fs"
	"mdtree/internal/store"
)

const maxAssembleBody = 4 << 20

type postResponse struct {
	ID    string          `json:"id"`
	Slug  string          `json:"slug"`
	Title string          `json:"title"`
	Tags  []string        `json:"tags"`
	Tree  markup.Document `json:"tree"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	slugs, err := post.List(s.cfg.ContentPath)
	if err != nil {
		writeError(w, err)
		return
	}
	cached, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	bySlug := make(map[string]store.Summary, len(cached))
	for _, c := range cached {
		bySlug[c.Slug] = c
	}
	cards := make([]PostCard, 0, len(slugs))
	for _, slug := range slugs {
		card := PostCard{Slug: slug, Title: slug}
		if c, ok := bySlug[slug]; ok {
			card.Cached = true
			card.UpdatedAt = c.UpdatedAt
			if c.Title != "" {
				card.Title = c.Title
			}
		}
		cards = append(cards, card)
	}
	s.views.RenderPage(w, ViewData{Title: "Posts", ContentTemplate: "home", Posts: cards})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	p, entry, err := s.loadTree(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	tree, err := s.preview.HTML(entry.Slug, entry.Tree)
	if err != nil {
		writeError(w, err)
		return
	}
	title := entry.Title
	if title == "" {
		title = entry.Slug
	}
	s.views.RenderPage(w, ViewData{
		Title:           title,
		ContentTemplate: "post",
		Post:            PostCard{Slug: entry.Slug, Title: title, Tags: p.Meta.TagNames(), Cached: true, UpdatedAt: entry.UpdatedAt},
		TreeHTML:        tree,
	})
}

func (s *Server) handleAPIPost(w http.ResponseWriter, r *http.Request) {
	p, entry, err := s.loadTree(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	tags := p.Meta.TagNames()
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, postResponse{
		ID:    entry.PostID,
		Slug:  entry.Slug,
		Title: entry.Title,
		Tags:  tags,
		Tree:  entry.Tree,
	})
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAssembleBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	doc := s.assembler.Assemble(string(body))
	if r.URL.Query().Get("sanitize") == "1" {
		sanitizeTree(doc)
	}
	writeJSON(w, http.StatusOK, doc)
}

// loadTree returns the post and its assembled tree, assembling and caching
// it when the stored tree is missing or stale.
func (s *Server) loadTree(ctx context.Context, slug string) (*post.Post, *store.Entry, error) {
	clean, err := fs.NormalizeSlug(slug)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locker.Lock(clean)
	defer unlock()

	p, err := post.Load(s.cfg.ContentPath, clean)
	if err != nil {
		return nil, nil, err
	}
	hash := store.ContentHash(p.Raw)
	if entry, ok := s.recent.get(clean, hash); ok {
		return p, entry, nil
	}
	entry, ok, err := s.store.Lookup(ctx, clean, hash)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		tree := s.assembler.Assemble(p.Body)
		entry, err = s.store.Put(ctx, store.Entry{
			Slug:   clean,
			PostID: p.Meta.ID,
			Title:  p.Meta.Title,
			Hash:   hash,
			Tree:   tree,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("post assembled", "slug", clean, "nodes", tree.Count())
	}
	s.recent.put(entry)
	return p, entry, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, post.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, fs.ErrUnsafePath):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
