// Package github mirrors conversation export files kept in a GitHub
// repository into a local staging directory, where the regular source
// discovery picks them up for ingestion.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v81/github"
)

// FetchedExport represents a conversation export file fetched from GitHub
type FetchedExport struct {
	Path    string // Relative path within the exports directory
	Content []byte // Raw file content
	SHA     string // File's Git blob SHA
	URL     string // GitHub raw URL
}

// isExportFile reports whether the file name looks like a conversation
// export the ingest pipeline can normalize.
func isExportFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".csv")
}

// Fetcher handles fetching conversation exports from GitHub repositories
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
}

// NewFetcher creates a new export fetcher rooted at basePath in the repository
func NewFetcher(client *Client, owner, repo, basePath string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
	}
}

// ListExports recursively lists all export files in the repository directory
func (f *Fetcher) ListExports(ctx context.Context) ([]string, error) {
	return f.listExportsRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listExportsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var exports []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if isExportFile(*item.Name) {
				exports = append(exports, itemRelPath)
			}

		case "dir":
			itemFullPath := path.Join(fullPath, *item.Name)
			subExports, err := f.listExportsRecursive(ctx, itemFullPath, itemRelPath)
			if err != nil {
				return nil, err
			}
			exports = append(exports, subExports...)
		}
	}

	return exports, nil
}

// FetchExport fetches the content of a specific export file
func (f *Fetcher) FetchExport(ctx context.Context, relativePath string) (*FetchedExport, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}

	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	rawURL := fmt.Sprintf(
		"https://raw.githubusercontent.com/%s/%s/main/%s",
		f.owner,
		f.repo,
		fullPath,
	)

	return &FetchedExport{
		Path:    relativePath,
		Content: content,
		SHA:     *fileContent.SHA,
		URL:     rawURL,
	}, nil
}

// MirrorTo downloads every export file into stagingDir, preserving the
// repository's relative layout so per-directory conventions (Discord's
// messages.csv folders, session chats/ directories) survive the copy.
// Returns the local paths of the mirrored files.
func (f *Fetcher) MirrorTo(ctx context.Context, stagingDir string) ([]string, error) {
	paths, err := f.ListExports(ctx)
	if err != nil {
		return nil, err
	}

	var local []string
	for _, rel := range paths {
		export, err := f.FetchExport(ctx, rel)
		if err != nil {
			return nil, err
		}

		dst := filepath.Join(stagingDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, export.Content, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		local = append(local, dst)
	}

	return local, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting
// the exports directory, used to skip mirroring when nothing changed.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.owner,
		f.repo,
		&github.CommitsListOptions{
			Path: f.basePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
