package post

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	storagefs "mdtree/internal/storage/fs"
)

var ErrNotFound = errors.New("post not found")

// Meta is the optional YAML frontmatter of a post.
type Meta struct {
	ID         string              `yaml:"id,omitempty" json:"id,omitempty"`
	Title      string              `yaml:"title,omitempty" json:"title,omitempty"`
	CreateDate string              `yaml:"createdate,omitempty" json:"createdate,omitempty"`
	UpdateDate string              `yaml:"updatedate,omitempty" json:"updatedate,omitempty"`
	Thumbnail  string              `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Tags       []map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

type Post struct {
	Slug string
	Meta Meta
	Body string
	Raw  []byte
}

// TagNames flattens the tag maps into their values, in order.
func (m Meta) TagNames() []string {
	var out []string
	for _, tag := range m.Tags {
		keys := make([]string, 0, len(tag))
		for k := range tag {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, tag[k])
		}
	}
	return out
}

// Parse splits raw into frontmatter and body. Without a frontmatter block
// the whole input is the body. The title falls back to the first h1.
func Parse(raw string) (Meta, string, error) {
	var meta Meta
	fmLines, body, ok := splitFrontmatterLines(raw)
	if ok {
		if err := yaml.Unmarshal([]byte(strings.Join(fmLines, "\n")), &meta); err != nil {
			return Meta{}, "", fmt.Errorf("parse frontmatter: %w", err)
		}
	}
	if meta.Title == "" {
		meta.Title = firstHeading(body)
	}
	return meta, body, nil
}

func splitFrontmatterLines(input string) ([]string, string, bool) {
	lines := strings.Split(input, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, input, false
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, input, false
	}
	return lines[1:end], strings.Join(lines[end+1:], "\n"), true
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

func Load(contentPath, slug string) (*Post, error) {
	clean, err := storagefs.NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	full, err := storagefs.PostFilePath(contentPath, clean)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return nil, fmt.Errorf("read post: %w", err)
	}
	meta, body, err := Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", clean, err)
	}
	return &Post{Slug: clean, Meta: meta, Body: body, Raw: raw}, nil
}

// List returns the slugs of every post under contentPath, sorted. Hidden
// directories are skipped.
func List(contentPath string) ([]string, error) {
	var slugs []string
	err := filepath.WalkDir(contentPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != contentPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !storagefs.IsPostFile(d.Name()) {
			return nil
		}
		slug, err := storagefs.SlugFromPath(contentPath, path)
		if err != nil {
			return nil
		}
		slugs = append(slugs, slug)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	sort.Strings(slugs)
	return slugs, nil
}
