package fs

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("unsafe path")

const postExt = ".md"

// NormalizeSlug cleans a slash separated post slug and rejects anything that
// could escape the content root.
func NormalizeSlug(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", ErrUnsafePath
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return "", ErrUnsafePath
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrUnsafePath
	}
	return strings.TrimSuffix(clean, postExt), nil
}

// PostFilePath maps a slug to <contentPath>/<slug>.md.
func PostFilePath(contentPath, slug string) (string, error) {
	clean, err := NormalizeSlug(slug)
	if err != nil {
		return "", err
	}
	root := filepath.Clean(contentPath)
	full := filepath.Join(root, filepath.FromSlash(clean)+postExt)
	rel, err := filepath.Rel(root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrUnsafePath
	}
	return full, nil
}

// SlugFromPath is the inverse of PostFilePath for files under contentPath.
func SlugFromPath(contentPath, full string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(contentPath), full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrUnsafePath
	}
	if !IsPostFile(rel) {
		return "", ErrUnsafePath
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), postExt), nil
}

func IsPostFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), postExt)
}
