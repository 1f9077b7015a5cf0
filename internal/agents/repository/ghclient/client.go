// Package ghclient wraps the subset of the GitHub API the Repository
// Processor needs: create a repository, seed its README, and file
// initial issues. Grounded on the nickmisasi-mattermost-plugin-cursor
// pack repo's server/ghclient package (a thin Client interface over
// *github.Client, swappable in tests via NewClientWithGitHub).
package ghclient

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// Client is the external code-hosting surface the Repository Processor
// calls. A real implementation wraps *github.Client; tests inject one
// pointed at an httptest server via NewClientWithGitHub, or a fake
// satisfying this interface directly.
type Client interface {
	// GetRepository looks up a repository by owner and name. Returns
	// nil, nil if it does not exist.
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)

	// CreateRepository creates a repository under the authenticated
	// user's account. owner is ignored for personal accounts; pass "" in
	// that case.
	CreateRepository(ctx context.Context, owner, name, description string, private bool) (*Repository, error)

	// CreateReadme creates (or overwrites) README.md in the repository.
	CreateReadme(ctx context.Context, owner, name, markdown string) error

	// CreateIssue files an issue in the repository.
	CreateIssue(ctx context.Context, owner, name, title, body string) error
}

// Repository is the subset of github.Repository this processor needs.
type Repository struct {
	Name    string
	HTMLURL string
}

type clientImpl struct {
	gh *github.Client
}

// NewClient creates a Client authenticated with the given personal
// access token. Returns nil if token is empty.
func NewClient(token string) Client {
	if token == "" {
		return nil
	}
	return &clientImpl{gh: github.NewClient(nil).WithAuthToken(token)}
}

// NewClientWithGitHub builds a Client from an existing *github.Client,
// used in tests to point at an httptest server.
func NewClientWithGitHub(gh *github.Client) Client {
	return &clientImpl{gh: gh}
}

func (c *clientImpl) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, nil
		}
		return nil, err
	}
	return &Repository{Name: repo.GetName(), HTMLURL: repo.GetHTMLURL()}, nil
}

func (c *clientImpl) CreateRepository(ctx context.Context, owner, name, description string, private bool) (*Repository, error) {
	repo, _, err := c.gh.Repositories.Create(ctx, owner, &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(description),
		Private:     github.Ptr(private),
		AutoInit:    github.Ptr(true),
	})
	if err != nil {
		return nil, err
	}
	return &Repository{Name: repo.GetName(), HTMLURL: repo.GetHTMLURL()}, nil
}

func (c *clientImpl) CreateReadme(ctx context.Context, owner, name, markdown string) error {
	existing, _, err := c.gh.Repositories.GetContents(ctx, owner, name, "README.md", nil)
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr("Seed README"),
		Content: []byte(markdown),
	}
	if err == nil && existing != nil {
		opts.SHA = existing.SHA
		_, _, err = c.gh.Repositories.UpdateFile(ctx, owner, name, "README.md", opts)
	} else {
		_, _, err = c.gh.Repositories.CreateFile(ctx, owner, name, "README.md", opts)
	}
	if err != nil {
		return fmt.Errorf("ghclient: create readme: %w", err)
	}
	return nil
}

func (c *clientImpl) CreateIssue(ctx context.Context, owner, name, title, body string) error {
	_, _, err := c.gh.Issues.Create(ctx, owner, name, &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("ghclient: create issue: %w", err)
	}
	return nil
}
