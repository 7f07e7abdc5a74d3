package puzzle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// DefaultURL is the published puzzle document.
const DefaultURL = "https://raw.githubusercontent.com/odm7341/wikipedle/main/test.json"

// Source supplies the puzzle document.
type Source interface {
	Load(ctx context.Context) (Document, error)
}

// NewSource returns an HTTPSource for http(s) locations and a FileSource otherwise.
// An empty location uses DefaultURL.
func NewSource(location string, client *http.Client) Source {
	switch {
	case location == "":
		return &HTTPSource{URL: DefaultURL, Client: client}
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return &HTTPSource{URL: location, Client: client}
	default:
		return &FileSource{Path: strings.TrimPrefix(location, "file://")}
	}
}

// HTTPSource fetches the document over HTTP.
type HTTPSource struct {
	URL    string
	Client *http.Client // nil uses http.DefaultClient
}

// Load fetches and decodes the document. Non-2xx responses are errors.
func (s *HTTPSource) Load(ctx context.Context) (Document, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("puzzle: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("puzzle: fetch %s: %w", s.URL, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, fmt.Errorf("puzzle: fetch %s: status %d", s.URL, res.StatusCode)
	}
	return decode(res.Body)
}

// FileSource reads the document from a local JSON file.
type FileSource struct {
	Path string
}

// Load reads and decodes the file.
func (s *FileSource) Load(_ context.Context) (Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("puzzle: open %s: %w", s.Path, err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("puzzle: decode document: %w", err)
	}
	return doc, nil
}
