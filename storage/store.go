package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// ErrNotFound is returned when no artifact of the requested kind exists
var ErrNotFound = errors.New("artifact not found")

// DateLayout is the date embedded in dated artifact names
const DateLayout = "2006-01-02"

// Kind describes one family of artifact files
type Kind struct {
	Name        string
	Ext         string
	Dated       bool
	ContentType string
}

var (
	// Articles is the single, overwritten collection of ranked articles
	Articles = Kind{Name: "articles", Ext: ".json", ContentType: "application/json"}
	// Summaries are dated summary collections
	Summaries = Kind{Name: "summaries", Ext: ".json", Dated: true, ContentType: "application/json"}
	// Script is the dated rendered report
	Script = Kind{Name: "script", Ext: ".md", Dated: true, ContentType: "text/markdown; charset=utf-8"}
)

// FileName returns the artifact file name for date
func (k Kind) FileName(date time.Time) string {
	if !k.Dated {
		return k.Name + k.Ext
	}
	return fmt.Sprintf("%s_%s%s", k.Name, date.Format(DateLayout), k.Ext)
}

func (k Kind) pattern() *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(k.Name) + `_(\d{4}-\d{2}-\d{2})` + regexp.QuoteMeta(k.Ext) + `$`)
}

// Artifact is one file found on disk
type Artifact struct {
	Path string    `json:"path"`
	Date time.Time `json:"date"`
}

// Mirror receives a copy of every saved artifact
type Mirror interface {
	Upload(ctx context.Context, name string, body []byte, contentType string) error
}

// Store persists pipeline artifacts as files on disk
type Store struct {
	mirror Mirror
	log    *slog.Logger
}

// NewStore creates a Store. mirror may be nil.
func NewStore(mirror Mirror, log *slog.Logger) *Store {
	return &Store{mirror: mirror, log: log}
}

// SaveJSON writes v as indented UTF-8 JSON and returns the file path
func (s *Store) SaveJSON(ctx context.Context, dir string, kind Kind, date time.Time, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encoding %s: %w", kind.Name, err)
	}
	return s.save(ctx, dir, kind, date, buf.Bytes())
}

// SaveText writes text verbatim and returns the file path
func (s *Store) SaveText(ctx context.Context, dir string, kind Kind, date time.Time, text string) (string, error) {
	return s.save(ctx, dir, kind, date, []byte(text))
}

func (s *Store) save(ctx context.Context, dir string, kind Kind, date time.Time, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	name := kind.FileName(date)
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(dir, path, data); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, name, data, kind.ContentType); err != nil {
			s.log.Warn("Mirror upload failed", "file", name, "error", err)
		} else {
			s.log.Debug("Mirrored artifact", "file", name)
		}
	}
	return path, nil
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// List returns the artifacts of kind in dir, newest first. Files whose
// name does not match or whose date does not parse are ignored.
func (s *Store) List(dir string, kind Kind) ([]Artifact, error) {
	if !kind.Dated {
		path := filepath.Join(dir, kind.FileName(time.Time{}))
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []Artifact{{Path: path, Date: info.ModTime()}}, nil
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	re := kind.pattern()
	var out []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		d, err := time.Parse(DateLayout, m[1])
		if err != nil {
			continue
		}
		out = append(out, Artifact{Path: filepath.Join(dir, e.Name()), Date: d})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// LatestPath returns the newest artifact of kind by embedded date
func (s *Store) LatestPath(dir string, kind Kind) (Artifact, error) {
	all, err := s.List(dir, kind)
	if err != nil {
		return Artifact{}, err
	}
	if len(all) == 0 {
		return Artifact{}, fmt.Errorf("no %s file in %s: %w", kind.Name, dir, ErrNotFound)
	}
	return all[0], nil
}

// LoadLatestJSON decodes the newest artifact of kind into v
func (s *Store) LoadLatestJSON(dir string, kind Kind, v any) (string, error) {
	a, err := s.LatestPath(dir, kind)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", a.Path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return "", fmt.Errorf("decoding %s: %w", a.Path, err)
	}
	return a.Path, nil
}

// LoadLatestText returns the newest artifact of kind as text
func (s *Store) LoadLatestText(dir string, kind Kind) (string, string, error) {
	a, err := s.LatestPath(dir, kind)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", a.Path, err)
	}
	return a.Path, string(data), nil
}
