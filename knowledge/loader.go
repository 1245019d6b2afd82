package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungalgo/eliza"
)

var (
	// ErrSourceRequired is returned when a knowledge source has neither a
	// path nor inline content.
	ErrSourceRequired = errors.New("knowledge source requires a path or inline content")
	// ErrUnsupportedContent is returned for content types no loader can
	// turn into text.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Source declares where knowledge content comes from: inline text, or a
// path resolved by the environment's loader (a file below the knowledge
// root, or a URL for the remote loader).
type Source struct {
	Path     string            `json:"path,omitempty"`
	Content  string            `json:"content,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is materialized knowledge content ready for ingestion.
type Document struct {
	Text   string
	Source string
	Type   eliza.MIMEType
}

// Loader materializes declared knowledge sources. Two environments are
// expected, local filesystem and remote fetch, both satisfying this
// contract.
type Loader interface {
	Load(ctx context.Context, source Source) (*Document, error)
	Exists(path string) (bool, error)
}

// sanitizePath strips parent-directory traversal sequences so a declared
// path can never escape the knowledge root.
func sanitizePath(path string) string {
	cleaned := filepath.ToSlash(path)
	cleaned = strings.ReplaceAll(cleaned, "..", "")
	return filepath.Clean("/" + cleaned)[1:]
}

// mimeForPath maps a file extension to the content type ingestion expects.
func mimeForPath(path string) eliza.MIMEType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return eliza.MIMEMarkdown
	case ".txt", ".text":
		return eliza.MIMEText
	case ".html", ".htm":
		return eliza.MIMEHTML
	case ".pdf":
		return eliza.MIMEPDF
	default:
		return eliza.MIMEText
	}
}

// FileLoader materializes knowledge from the local filesystem, scoped to a
// root directory.
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader rooted at the given directory.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{root: root}
}

// Load returns the source's content: inline content verbatim, otherwise
// the file at the sanitized path joined to the knowledge root. PDF content
// has no text extractor here and is rejected as unsupported.
func (l *FileLoader) Load(ctx context.Context, source Source) (*Document, error) {
	if source.Content != "" {
		return &Document{Text: source.Content, Source: "inline", Type: eliza.MIMEText}, nil
	}
	if source.Path == "" {
		return nil, ErrSourceRequired
	}
	path := filepath.Join(l.root, sanitizePath(source.Path))
	contentType := mimeForPath(path)
	if !contentType.IsText() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge file: %w", err)
	}
	return &Document{Text: string(data), Source: source.Path, Type: contentType}, nil
}

// List walks the directory below the knowledge root and returns the
// root-relative paths of every ingestable file (markdown, text, PDF).
func (l *FileLoader) List(dir string) ([]string, error) {
	var paths []string
	base := filepath.Join(l.root, sanitizePath(dir))
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt", ".text", ".pdf":
			rel, err := filepath.Rel(l.root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return nil
	})
	return paths, err
}

// Exists reports whether the file is present below the knowledge root.
func (l *FileLoader) Exists(path string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.root, sanitizePath(path)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// HTTPLoader materializes knowledge from remote URLs, for environments
// without a local filesystem.
type HTTPLoader struct {
	client *http.Client
}

// NewHTTPLoader creates a remote loader. A nil client uses
// http.DefaultClient.
func NewHTTPLoader(client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{client: client}
}

// Load fetches the source URL and returns its body as text.
func (l *HTTPLoader) Load(ctx context.Context, source Source) (*Document, error) {
	if source.Content != "" {
		return &Document{Text: source.Content, Source: "inline", Type: eliza.MIMEText}, nil
	}
	if source.Path == "" {
		return nil, ErrSourceRequired
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching knowledge url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching knowledge url %s: status %d", source.Path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Document{Text: string(body), Source: source.Path, Type: eliza.MIMEText}, nil
}

// Exists reports whether the URL answers a HEAD request.
func (l *HTTPLoader) Exists(path string) (bool, error) {
	resp, err := l.client.Head(path)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
