package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
	"github.com/iota-uz/orgcascade/pkg/configuration"
)

var ErrNoSource = errors.New("org source is not configured")

// maxDocumentBytes caps the org document read from any source.
const maxDocumentBytes = 32 << 20

// Source produces the canonical hierarchy from one upstream document.
type Source interface {
	Name() string
	Load(ctx context.Context) (*hierarchy.Hierarchy, error)
}

type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(rawURL string, timeout time.Duration) (*HTTPSource, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrNoSource
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid org source url: %q", rawURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		url:    u.String(),
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) Load(ctx context.Context) (*hierarchy.Hierarchy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build org request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", s.url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("fetch %s: status=%d", s.url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.url)
	}
	h, err := NormalizeStrict(body)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.url)
	}
	return h, nil
}

type FileSource struct {
	path string
}

func NewFileSource(path string) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoSource
	}
	return &FileSource{path: path}, nil
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(_ context.Context) (*hierarchy.Hierarchy, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	defer func() { _ = f.Close() }()

	body, err := io.ReadAll(io.LimitReader(f, maxDocumentBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	h, err := NormalizeStrict(body)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.path)
	}
	return h, nil
}

// NewSourceFromOptions picks the single configured source.
func NewSourceFromOptions(opts configuration.OrgOptions) (Source, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(ErrNoSource, err.Error())
	}
	switch {
	case opts.SourceURL != "":
		return NewHTTPSource(opts.SourceURL, opts.FetchTimeout)
	case opts.SourceFile != "":
		return NewFileSource(opts.SourceFile)
	default:
		return NewXLSXSource(opts.SourceXLSX)
	}
}
