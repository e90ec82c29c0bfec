// Package papermc resolves the newest server runtime build through the PaperMC v2 API.
//
// Resolution takes two requests: the project's version list, whose last entry
// is taken as the newest version, then that version's build list, whose last
// entry is taken as the newest build. The download URL is derived from both.
package papermc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/oshokin/skript-action/internal/domain/release"
	"github.com/oshokin/skript-action/internal/remote"
)

var (
	// ErrNoVersions is returned when the project lists no versions.
	ErrNoVersions = errors.New("project has no versions")
	// ErrNoBuilds is returned when the version lists no builds.
	ErrNoBuilds = errors.New("version has no builds")
)

// Client reads builds of a single project.
type Client struct {
	api     *remote.Client
	project string
}

type projectResponse struct {
	Versions []string `json:"versions"`
}

type versionResponse struct {
	Builds []int `json:"builds"`
}

// New creates a client for project under the API at baseURL.
func New(baseURL, project string, opts ...remote.Option) (*Client, error) {
	api, err := remote.New(baseURL, opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		api:     api,
		project: project,
	}, nil
}

// LatestVersion returns the last version of the project list.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	var resp projectResponse
	if err := c.api.GetJSON(ctx, c.api.URL("projects", c.project), &resp); err != nil {
		return "", fmt.Errorf("fetch %s versions: %w", c.project, err)
	}

	if len(resp.Versions) == 0 {
		return "", fmt.Errorf("%s: %w", c.project, ErrNoVersions)
	}

	return resp.Versions[len(resp.Versions)-1], nil
}

// LatestBuild returns the last build of version.
func (c *Client) LatestBuild(ctx context.Context, version string) (*release.Build, error) {
	var resp versionResponse
	if err := c.api.GetJSON(ctx, c.api.URL("projects", c.project, "versions", version), &resp); err != nil {
		return nil, fmt.Errorf("fetch %s %s builds: %w", c.project, version, err)
	}

	if len(resp.Builds) == 0 {
		return nil, fmt.Errorf("%s %s: %w", c.project, version, ErrNoBuilds)
	}

	build := &release.Build{
		Project: c.project,
		Version: version,
		Number:  resp.Builds[len(resp.Builds)-1],
	}
	build.DownloadURL = c.downloadURL(build)

	return build, nil
}

// Latest resolves the newest build of the newest version.
func (c *Client) Latest(ctx context.Context) (*release.Build, error) {
	version, err := c.LatestVersion(ctx)
	if err != nil {
		return nil, err
	}

	return c.LatestBuild(ctx, version)
}

// Download opens the jar of build.
func (c *Client) Download(ctx context.Context, build *release.Build) (io.ReadCloser, error) {
	return c.api.Open(ctx, build.DownloadURL, "application/java-archive")
}

func (c *Client) downloadURL(build *release.Build) string {
	return c.api.URL(
		"projects", build.Project,
		"versions", build.Version,
		"builds", strconv.Itoa(build.Number),
		"downloads", build.JarName(),
	)
}
