// Package fake provides an in-memory ghclient.Client for tests in other
// packages, grounded on the teacher's hand-rolled in-memory fakes
// (jobs.MemoryStore, artifacts.MemoryRepository).
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/fieldnote/transcript-router/internal/agents/repository/ghclient"
)

// Client is an in-memory ghclient.Client. NameCollisions lists repo
// names that should report as already-existing on the first
// CreateRepository attempt, to exercise the collision-retry path.
type Client struct {
	mu             sync.Mutex
	repos          map[string]*ghclient.Repository
	readmes        map[string]string
	issues         map[string][]string
	NameCollisions map[string]bool
	CreateErr      error
}

func New() *Client {
	return &Client{
		repos:   make(map[string]*ghclient.Repository),
		readmes: make(map[string]string),
		issues:  make(map[string][]string),
	}
}

func (c *Client) GetRepository(_ context.Context, _, name string) (*ghclient.Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repos[name], nil
}

func (c *Client) CreateRepository(_ context.Context, _, name, _ string, _ bool) (*ghclient.Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.CreateErr != nil {
		return nil, c.CreateErr
	}
	if c.NameCollisions[name] {
		delete(c.NameCollisions, name)
		return nil, fmt.Errorf("name already exists")
	}

	repo := &ghclient.Repository{Name: name, HTMLURL: "https://github.example/fake/" + name}
	c.repos[name] = repo
	return repo, nil
}

func (c *Client) CreateReadme(_ context.Context, _, name, markdown string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readmes[name] = markdown
	return nil
}

func (c *Client) CreateIssue(_ context.Context, _, name, title, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues[name] = append(c.issues[name], title)
	return nil
}

func (c *Client) Readme(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readmes[name]
}

func (c *Client) Issues(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issues[name]
}
