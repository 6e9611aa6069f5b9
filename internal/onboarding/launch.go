package onboarding

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ProjectType names the two ways a project can be mounted.
type ProjectType string

const (
	ProjectGit      ProjectType = "git"
	ProjectTemplate ProjectType = "template"
)

// Source is the tagged union of project sources. The concrete types are
// GitSource and TemplateSource.
type Source interface {
	Type() ProjectType
	isSource()
}

// GitSource clones an existing repository.
type GitSource struct {
	RepoURL string
}

func (GitSource) Type() ProjectType { return ProjectGit }
func (GitSource) isSource()         {}

// TemplateSource starts from an official template.
type TemplateSource struct {
	TemplateID string
}

func (TemplateSource) Type() ProjectType { return ProjectTemplate }
func (TemplateSource) isSource()         {}

// Launch is the startup payload handed to the workbench once onboarding
// completes.
type Launch struct {
	Provider      string
	Source        Source
	IterationName string
	Intent        string
}

var (
	ErrMissingProvider  = errors.New("onboarding: provider is required")
	ErrMissingSource    = errors.New("onboarding: project source is required")
	ErrMissingRepoURL   = errors.New("onboarding: repository url is required")
	ErrMissingTemplate  = errors.New("onboarding: template is required")
	ErrMissingIteration = errors.New("onboarding: iteration name is required")
)

// Validate checks the fields each project type needs.
func (l Launch) Validate() error {
	if strings.TrimSpace(l.Provider) == "" {
		return ErrMissingProvider
	}
	switch src := l.Source.(type) {
	case GitSource:
		if strings.TrimSpace(src.RepoURL) == "" {
			return ErrMissingRepoURL
		}
	case TemplateSource:
		if strings.TrimSpace(src.TemplateID) == "" {
			return ErrMissingTemplate
		}
	case nil:
		return ErrMissingSource
	default:
		return fmt.Errorf("onboarding: unsupported source %T", src)
	}
	if strings.TrimSpace(l.IterationName) == "" {
		return ErrMissingIteration
	}
	return nil
}

// ProjectType reports the launch's project type, or "" without a source.
func (l Launch) ProjectType() ProjectType {
	if l.Source == nil {
		return ""
	}
	return l.Source.Type()
}

// RepoURL returns the clone URL: the given repository for git sources and
// the templates organisation for template sources.
func (l Launch) RepoURL() string {
	switch src := l.Source.(type) {
	case GitSource:
		return strings.TrimSpace(src.RepoURL)
	case TemplateSource:
		return fmt.Sprintf("git@github.com:templates/%s.git", RepoName(l))
	}
	return ""
}

var nonSlug = regexp.MustCompile(`\s+`)

// RepoName derives the working directory name: the last URL segment without
// .git, or the lower-cased, dashed template id.
func RepoName(l Launch) string {
	switch src := l.Source.(type) {
	case GitSource:
		trimmed := strings.TrimRight(strings.TrimSpace(src.RepoURL), "/")
		if idx := strings.LastIndexAny(trimmed, "/:"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		return strings.TrimSuffix(trimmed, ".git")
	case TemplateSource:
		return slug(src.TemplateID)
	}
	return ""
}

// Branch derives the feature branch from the iteration name.
func Branch(l Launch) string {
	return slug(l.IterationName)
}

func slug(value string) string {
	return nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
}
