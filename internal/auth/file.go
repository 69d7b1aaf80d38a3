package auth

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mdtree/internal/storage/fs"
)

// LoadFile reads "user:hash" lines. Blank lines and # comments are skipped.
func LoadFile(path string) (map[string]*Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open auth file: %w", err)
	}
	defer f.Close()

	users := make(map[string]*Hash)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, hash, ok := strings.Cut(line, ":")
		user, hash = strings.TrimSpace(user), strings.TrimSpace(hash)
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("invalid auth line %d: expected user:hash", lineNum)
		}
		if _, exists := users[user]; exists {
			return nil, fmt.Errorf("duplicate user %q in auth file", user)
		}
		if !strings.HasPrefix(hash, hashPrefix) {
			return nil, fmt.Errorf("invalid auth line %d: expected argon2id hash", lineNum)
		}
		parsed, err := ParseHash(hash)
		if err != nil {
			return nil, fmt.Errorf("invalid auth line %d: %w", lineNum, err)
		}
		users[user] = parsed
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read auth file: %w", err)
	}
	return users, nil
}

// UpsertFile sets the hash for user, keeping every other line as is.
func UpsertFile(path, user, hash string) error {
	if user == "" || strings.Contains(user, ":") {
		return fmt.Errorf("invalid user name %q", user)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create auth dir: %w", err)
	}

	var lines []string
	updated := false
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read auth file: %w", err)
	}
	if len(data) > 0 {
		for i, raw := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			trim := strings.TrimSpace(raw)
			if trim == "" || strings.HasPrefix(trim, "#") {
				lines = append(lines, raw)
				continue
			}
			name, _, ok := strings.Cut(trim, ":")
			if !ok {
				return fmt.Errorf("invalid auth line %d: expected user:hash", i+1)
			}
			if name == user {
				lines = append(lines, user+":"+hash)
				updated = true
				continue
			}
			lines = append(lines, raw)
		}
	}
	if !updated {
		lines = append(lines, user+":"+hash)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := fs.WriteFileAtomic(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write auth file: %w", err)
	}
	return nil
}

// RemoveFile drops user from the auth file. It reports whether a line was
// removed.
func RemoveFile(path, user string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read auth file: %w", err)
	}
	var lines []string
	removed := false
	for _, raw := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		name, _, ok := strings.Cut(strings.TrimSpace(raw), ":")
		if ok && name == user {
			removed = true
			continue
		}
		lines = append(lines, raw)
	}
	if !removed {
		return false, nil
	}
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := fs.WriteFileAtomic(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write auth file: %w", err)
	}
	return true, nil
}
