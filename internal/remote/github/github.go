// Package github resolves the latest plugin release through the GitHub REST API.
package github

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/skript-action/internal/domain/release"
	"github.com/oshokin/skript-action/internal/remote"
)

var (
	// ErrEmptyRelease is returned when the index answers without a release tag.
	ErrEmptyRelease = errors.New("latest release is empty")
	// ErrNoDownloadURL is returned when the release has no downloadable jar.
	ErrNoDownloadURL = errors.New("release has no jar download url")
)

const (
	digestPrefix   = "sha256:"
	jarAssetSuffix = ".jar"
)

// Client reads releases of a single repository.
type Client struct {
	api        *remote.Client
	repository string
}

type releaseResponse struct {
	TagName string          `json:"tag_name"`
	HTMLURL string          `json:"html_url"`
	Assets  []assetResponse `json:"assets"`
}

type assetResponse struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Digest             string `json:"digest"`
}

// New creates a client for repository ("owner/name") under the API at baseURL.
// A non-empty token is sent as a bearer token.
func New(baseURL, repository, token string, opts ...remote.Option) (*Client, error) {
	opts = append(opts, remote.WithHeader("X-GitHub-Api-Version", "2022-11-28"))
	if token != "" {
		opts = append(opts, remote.WithHeader("Authorization", "Bearer "+token))
	}

	api, err := remote.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		api:        api,
		repository: repository,
	}, nil
}

// LatestRelease returns the latest published release and its jar asset.
func (c *Client) LatestRelease(ctx context.Context) (*release.Info, error) {
	owner, name, _ := strings.Cut(c.repository, "/")

	var resp releaseResponse
	if err := c.api.GetJSON(ctx, c.api.URL("repos", owner, name, "releases", "latest"), &resp); err != nil {
		return nil, fmt.Errorf("fetch latest release of %s: %w", c.repository, err)
	}

	if resp.TagName == "" {
		return nil, fmt.Errorf("%s: %w", c.repository, ErrEmptyRelease)
	}

	asset := pickJarAsset(resp.Assets)
	if asset == nil || asset.BrowserDownloadURL == "" {
		return nil, fmt.Errorf("%s %s: %w", c.repository, resp.TagName, ErrNoDownloadURL)
	}

	return &release.Info{
		Tag:         resp.TagName,
		DownloadURL: asset.BrowserDownloadURL,
		HTMLURL:     resp.HTMLURL,
		SHA256:      parseDigest(asset.Digest),
	}, nil
}

// Download opens the jar asset of info.
func (c *Client) Download(ctx context.Context, info *release.Info) (io.ReadCloser, error) {
	return c.api.Open(ctx, info.DownloadURL, "application/octet-stream")
}

// pickJarAsset returns the first jar asset, or the first asset if none is named *.jar.
func pickJarAsset(assets []assetResponse) *assetResponse {
	for i := range assets {
		if strings.HasSuffix(strings.ToLower(assets[i].Name), jarAssetSuffix) {
			return &assets[i]
		}
	}

	if len(assets) > 0 {
		return &assets[0]
	}

	return nil
}

// parseDigest decodes "sha256:<hex>", returning nil for anything else.
func parseDigest(digest string) []byte {
	hexSum, ok := strings.CutPrefix(digest, digestPrefix)
	if !ok {
		return nil
	}

	sum, err := hex.DecodeString(hexSum)
	if err != nil {
		return nil
	}

	return sum
}
