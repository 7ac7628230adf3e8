package domain

// Project identifies the organization and project whose pipelines are observed.
// Repo and RemoteURL are only set when the project was detected from a git remote.
type Project struct {
	Org       string
	Name      string
	Repo      string
	RemoteURL string
}
