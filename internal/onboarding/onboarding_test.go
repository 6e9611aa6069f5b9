package onboarding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWizardDefaults(t *testing.T) {
	w := NewWizard()
	assert.Equal(t, "anthropic", w.Provider)
	assert.Equal(t, "https://api.anthropic.com", w.BaseURL)
	assert.Equal(t, "claude-3-5-sonnet-20240620", w.Model)
	assert.Equal(t, ProjectGit, w.ProjectType)
	assert.Equal(t, DefaultRepoURL, w.RepoURL)
	assert.Equal(t, DefaultIteration, w.Iteration)
	assert.Equal(t, StageModel, w.Stage)
}

func TestSelectProviderResetsCredentials(t *testing.T) {
	w := NewWizard()
	w.APIKey = "sk-test"
	w.Model = "claude-3-opus-20240229"
	w.Connection = ConnectionVerified

	require.NoError(t, w.SelectProvider("ollama"))
	assert.Equal(t, "http://localhost:11434", w.BaseURL)
	assert.Equal(t, "llama3", w.Model)
	assert.Empty(t, w.APIKey)
	assert.Equal(t, ConnectionIdle, w.Connection)

	assert.Error(t, w.SelectProvider("nope"))
}

func TestConnectionTestNeedsKeyExceptOllama(t *testing.T) {
	w := NewWizard()
	assert.ErrorIs(t, w.BeginConnectionTest(), ErrMissingAPIKey)

	w.APIKey = "sk-test"
	require.NoError(t, w.BeginConnectionTest())
	assert.Equal(t, ConnectionTesting, w.Connection)
	w.FinishConnectionTest()
	assert.Equal(t, ConnectionVerified, w.Connection)

	require.NoError(t, w.SelectProvider("ollama"))
	assert.NoError(t, w.BeginConnectionTest())
}

func TestLaunchValidation(t *testing.T) {
	cases := []struct {
		name   string
		launch Launch
		want   error
	}{
		{"missing provider", Launch{Source: GitSource{RepoURL: "x"}, IterationName: "v1"}, ErrMissingProvider},
		{"missing source", Launch{Provider: "openai", IterationName: "v1"}, ErrMissingSource},
		{"git without url", Launch{Provider: "openai", Source: GitSource{}, IterationName: "v1"}, ErrMissingRepoURL},
		{"template without id", Launch{Provider: "openai", Source: TemplateSource{}, IterationName: "v1"}, ErrMissingTemplate},
		{"missing iteration", Launch{Provider: "openai", Source: GitSource{RepoURL: "x"}}, ErrMissingIteration},
		{"valid", Launch{Provider: "openai", Source: TemplateSource{TemplateID: "Next.js Blog"}, IterationName: "v1"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.launch.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestWizardLaunchBuildsSource(t *testing.T) {
	w := NewWizard()
	w.Intent = "  Add Feature: export  "
	l, err := w.Launch()
	require.NoError(t, err)
	assert.Equal(t, GitSource{RepoURL: DefaultRepoURL}, l.Source)
	assert.Equal(t, "Add Feature: export", l.Intent)

	w.ProjectType = ProjectTemplate
	_, err = w.Launch()
	assert.ErrorIs(t, err, ErrMissingTemplate)

	w.TemplateID = "Python FastAPI Service"
	l, err = w.Launch()
	require.NoError(t, err)
	assert.Equal(t, ProjectTemplate, l.ProjectType())
}

func TestRepoNameAndBranch(t *testing.T) {
	git := Launch{Source: GitSource{RepoURL: DefaultRepoURL}, IterationName: "MVP v1.0"}
	assert.Equal(t, "vue-admin-starter", RepoName(git))
	assert.Equal(t, DefaultRepoURL, git.RepoURL())
	assert.Equal(t, "mvp-v1.0", Branch(git))

	ssh := Launch{Source: GitSource{RepoURL: "git@github.com:acme/api.git"}}
	assert.Equal(t, "api", RepoName(ssh))

	tpl := Launch{Source: TemplateSource{TemplateID: "React SaaS Boilerplate"}, IterationName: "Feature: Auth V2"}
	assert.Equal(t, "react-saas-boilerplate", RepoName(tpl))
	assert.Equal(t, "git@github.com:templates/react-saas-boilerplate.git", tpl.RepoURL())
	assert.Equal(t, "feature:-auth-v2", Branch(tpl))
}

func TestAppendChip(t *testing.T) {
	assert.Equal(t, "Generate Tests: ", AppendChip("", "Generate Tests"))
	assert.Equal(t, "fix login\nAdd Feature: ", AppendChip("fix login", "Add Feature"))
}
