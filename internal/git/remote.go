package git

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/waabox/azdeck/internal/domain"
)

// Repository is the local checkout azdeck was started from.
type Repository struct {
	path string
	r    *git.Repository
}

// Open opens the git repository containing dir, searching parent directories.
func Open(dir string) (*Repository, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	return &Repository{path: dir, r: r}, nil
}

// Project returns the Azure DevOps project behind the origin remote.
func (g *Repository) Project() (domain.Project, error) {
	remote, err := g.r.Remote("origin")
	if err != nil {
		return domain.Project{}, fmt.Errorf("no origin remote in %s: %w", g.path, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return domain.Project{}, errors.New("origin remote has no URL")
	}
	return ParseRemoteURL(urls[0])
}

// CurrentBranch returns the full ref of the checked out branch, such as
// refs/heads/main. It returns an empty string when HEAD is detached.
// A branch without commits is still reported.
func (g *Repository) CurrentBranch() (string, error) {
	head, err := g.r.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("reading HEAD of %s: %w", g.path, err)
	}
	if head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		return head.Target().String(), nil
	}
	return "", nil
}

// ParseRemoteURL parses an Azure Repos remote URL and returns its Project.
// Supported forms:
//   - https://dev.azure.com/{org}/{project}/_git/{repo}
//   - https://{org}.visualstudio.com/[DefaultCollection/]{project}/_git/{repo}
//   - git@ssh.dev.azure.com:v3/{org}/{project}/{repo}
//   - {org}@vs-ssh.visualstudio.com:v3/{org}/{project}/{repo}
//
// The RemoteURL field in the returned Project preserves the original input URL unchanged.
func ParseRemoteURL(rawURL string) (domain.Project, error) {
	normalized := strings.TrimSuffix(strings.TrimSpace(rawURL), "/")

	// SCP-like SSH format: user@host:v3/org/project/repo
	if !strings.Contains(normalized, "://") {
		userHost, path, ok := strings.Cut(normalized, ":")
		if !ok {
			return domain.Project{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
		}
		_, host, _ := strings.Cut(userHost, "@")
		if host == "" {
			host = userHost
		}
		return parseSSH(rawURL, host, path)
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return domain.Project{}, fmt.Errorf("invalid remote URL %s: %w", rawURL, err)
	}
	if u.Scheme == "ssh" {
		return parseSSH(rawURL, u.Hostname(), strings.TrimPrefix(u.Path, "/"))
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return domain.Project{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
	}
	return parseHTTPS(rawURL, strings.ToLower(u.Hostname()), u.EscapedPath())
}

func parseSSH(rawURL, host, path string) (domain.Project, error) {
	host = strings.ToLower(host)
	if host != "ssh.dev.azure.com" && host != "vs-ssh.visualstudio.com" {
		return domain.Project{}, fmt.Errorf("not an Azure DevOps remote: %s", rawURL)
	}
	parts := strings.Split(strings.TrimPrefix(path, "v3/"), "/")
	if !strings.HasPrefix(path, "v3/") || len(parts) != 3 {
		return domain.Project{}, fmt.Errorf("invalid SSH remote URL path: %s", path)
	}
	return newProject(rawURL, parts[0], parts[1], parts[2])
}

func parseHTTPS(rawURL, host, path string) (domain.Project, error) {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	gitAt := -1
	for i, s := range segs {
		if s == "_git" {
			gitAt = i
			break
		}
	}
	if gitAt < 1 || gitAt != len(segs)-2 {
		return domain.Project{}, fmt.Errorf("invalid HTTPS remote URL: %s", rawURL)
	}
	repo := segs[gitAt+1]

	var org string
	var rest []string
	switch {
	case host == "dev.azure.com":
		org, rest = segs[0], segs[1:gitAt]
	case strings.HasSuffix(host, ".visualstudio.com"):
		org, rest = strings.TrimSuffix(host, ".visualstudio.com"), segs[:gitAt]
		if len(rest) > 0 && strings.EqualFold(rest[0], "DefaultCollection") {
			rest = rest[1:]
		}
	default:
		return domain.Project{}, fmt.Errorf("not an Azure DevOps remote: %s", rawURL)
	}

	// Without a project segment the repository shares the project's name.
	project := repo
	switch len(rest) {
	case 0:
	case 1:
		project = rest[0]
	default:
		return domain.Project{}, fmt.Errorf("invalid HTTPS remote URL: %s", rawURL)
	}
	return newProject(rawURL, org, project, repo)
}

func newProject(rawURL, org, project, repo string) (domain.Project, error) {
	var err error
	fields := []*string{&org, &project, &repo}
	for _, f := range fields {
		if *f, err = url.PathUnescape(*f); err != nil {
			return domain.Project{}, fmt.Errorf("invalid remote URL %s: %w", rawURL, err)
		}
		if *f == "" {
			return domain.Project{}, fmt.Errorf("invalid remote URL: %s", rawURL)
		}
	}
	return domain.Project{
		Org:       org,
		Name:      project,
		Repo:      strings.TrimSuffix(repo, ".git"),
		RemoteURL: rawURL,
	}, nil
}
