package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ruteri/storageitem-service/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubBackend implements a read-only storage backend over the GitHub contents API.
// Item paths are paths within the repository at a fixed ref.
type GitHubBackend struct {
	owner       string
	repo        string
	ref         string
	token       string
	apiURL      string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// GitHubContent is a file entry returned by the contents API.
type GitHubContent struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// NewGitHubBackend creates a backend reading from owner/repo at ref.
// An empty ref reads the default branch.
func NewGitHubBackend(owner, repo, ref, token string, log *slog.Logger) *GitHubBackend {
	locationURI := fmt.Sprintf("github://%s/%s", owner, repo)
	if ref != "" {
		locationURI += "?ref=" + url.QueryEscape(ref)
	}
	return &GitHubBackend{
		owner:       owner,
		repo:        repo,
		ref:         ref,
		token:       token,
		apiURL:      defaultGitHubAPI,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: locationURI,
	}
}

// WithAPIURL points the backend at a GitHub Enterprise or test server.
func (b *GitHubBackend) WithAPIURL(apiURL string) *GitHubBackend {
	b.apiURL = strings.TrimSuffix(apiURL, "/")
	return b
}

// Fetch retrieves the file at itemPath.
func (b *GitHubBackend) Fetch(ctx context.Context, itemPath string) (io.ReadCloser, error) {
	repoPath, err := cleanRepoPath(itemPath)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiURL, b.owner, b.repo, escapeKey(repoPath))
	if b.ref != "" {
		endpoint += "?ref=" + url.QueryEscape(b.ref)
	}

	resp, err := b.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrContentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	var content GitHubContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		// Directories are returned as JSON arrays.
		return nil, fmt.Errorf("%w: %s is not a file", interfaces.ErrContentNotFound, repoPath)
	}
	if content.Type != "file" {
		return nil, fmt.Errorf("%w: %s is a %s", interfaces.ErrContentNotFound, repoPath, content.Type)
	}
	if content.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding: %s", content.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}

	b.log.Debug("Fetched content from GitHub",
		slog.String("path", repoPath),
		slog.String("sha", content.SHA),
		slog.Int("size", len(data)))

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Store is not supported by this read-only backend.
func (b *GitHubBackend) Store(ctx context.Context, itemPath string, data io.Reader, info interfaces.ObjectInfo) error {
	return fmt.Errorf("%w: %s", interfaces.ErrReadOnlyBackend, b.locationURI)
}

// Available checks if the repository is accessible.
func (b *GitHubBackend) Available(ctx context.Context) bool {
	resp, err := b.get(ctx, fmt.Sprintf("%s/repos/%s/%s", b.apiURL, b.owner, b.repo))
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub backend unavailable", slog.String("status", resp.Status))
		return false
	}
	return true
}

func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

func (b *GitHubBackend) LocationURI() string {
	return b.locationURI
}

// PublicURL returns the raw file URL on github.com.
func (b *GitHubBackend) PublicURL(itemPath string) string {
	repoPath, err := cleanRepoPath(itemPath)
	if err != nil || b.apiURL != defaultGitHubAPI {
		return ""
	}
	ref := b.ref
	if ref == "" {
		ref = "HEAD"
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", b.owner, b.repo, ref, escapeKey(repoPath))
}

func (b *GitHubBackend) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func cleanRepoPath(itemPath string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(itemPath))
	if cleaned == "/" || strings.TrimSpace(itemPath) == "" {
		return "", fmt.Errorf("%w: %q", interfaces.ErrInvalidPath, itemPath)
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}
