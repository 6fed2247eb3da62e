package source

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/pkg/plan"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// HTTPSource reads plan documents from a directory served over HTTP, e.g.
// "http://localhost:8000/.state".
type HTTPSource struct {
	client     *http.Client
	baseURL    string
	knownFiles []string
}

func NewHTTPSource(ctx context.Context, cfg config.Source) (*HTTPSource, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid source base url %q", cfg.BaseURL)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.OAuth.TokenURL != "" {
		oauthConfig := &clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientId,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		// The token endpoint is called with the same timeout as the documents.
		client = oauthConfig.Client(context.WithValue(ctx, oauth2.HTTPClient, client))
		client.Timeout = cfg.Timeout
		log.Infof("Plan source uses client credentials from %s", cfg.OAuth.TokenURL)
	}

	return &HTTPSource{
		client:     client,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		knownFiles: cfg.KnownFiles,
	}, nil
}

// Discover reads the directory listing of the base URL. When the server does
// not answer with an HTML listing, each known file is probed with HEAD.
func (s *HTTPSource) Discover(ctx context.Context) ([]plan.Ref, error) {
	names, err := s.listDirectory(ctx)
	if err == nil {
		return refsFromFilenames(names), nil
	}
	log.Debugf("Directory listing unavailable, probing known files: %v", err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found []string
	for _, name := range s.knownFiles {
		ok, err := s.exists(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debugf("Probe of %s failed: %v", name, err)
			continue
		}
		if ok {
			found = append(found, name)
		}
	}
	return refsFromFilenames(found), nil
}

func (s *HTTPSource) listDirectory(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory listing returned status %d", resp.StatusCode)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/html" {
		return nil, fmt.Errorf("directory listing has content type %q", mediaType)
	}

	return parseListing(resp.Body)
}

func (s *HTTPSource) exists(ctx context.Context, filename string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.fileURL(filename), nil)
	if err != nil {
		return false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// Fetch downloads one document. Any status other than 200 is an error.
func (s *HTTPSource) Fetch(ctx context.Context, ref plan.Ref) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.fileURL(ref.Filename), nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Errorf("Failed to fetch %s: %v", ref.Filename, err)
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", ref.Filename, ErrNotFound)
	default:
		err := fmt.Errorf("fetching %s returned status %d", ref.Filename, resp.StatusCode)
		log.Error(err)
		return nil, err
	}

	return io.ReadAll(resp.Body)
}

func (s *HTTPSource) fileURL(filename string) string {
	return s.baseURL + "/" + url.PathEscape(filename)
}
