package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/kingrea/workbench/internal/onboarding"
)

// onboardingForm binds the first-run wizard to a huh form. Answers live in
// the struct until the form completes and apply copies them to the wizard.
type onboardingForm struct {
	form   *huh.Form
	wizard *onboarding.Wizard

	provider    string
	apiKey      string
	projectType string
	repoURL     string
	templateID  string
	iteration   string
	intent      string
	chips       []string
}

func newOnboardingForm(w *onboarding.Wizard) *onboardingForm {
	f := &onboardingForm{
		wizard:      w,
		provider:    w.Provider,
		apiKey:      w.APIKey,
		projectType: string(w.ProjectType),
		repoURL:     w.RepoURL,
		templateID:  w.TemplateID,
		iteration:   w.Iteration,
		intent:      w.Intent,
	}
	var providers []huh.Option[string]
	for _, p := range onboarding.Presets() {
		providers = append(providers, huh.NewOption(p.Name, p.ID))
	}
	var templates []huh.Option[string]
	for _, t := range onboarding.Templates() {
		templates = append(templates, huh.NewOption(t, t))
	}
	if f.templateID == "" && len(templates) > 0 {
		f.templateID = onboarding.Templates()[0]
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("provider").
				Title("Model provider").
				Options(providers...).
				Value(&f.provider),
			huh.NewInput().
				Key("api_key").
				Title("API key").
				Description("Not needed for local providers").
				EchoMode(huh.EchoModePassword).
				Value(&f.apiKey).
				Validate(f.validateKey),
		).Title(onboarding.StageModel.Label()),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("project_type").
				Title("Project").
				Options(
					huh.NewOption("Git repository", string(onboarding.ProjectGit)),
					huh.NewOption("Template", string(onboarding.ProjectTemplate)),
				).
				Value(&f.projectType),
			huh.NewInput().
				Key("iteration").
				Title("Iteration name").
				Value(&f.iteration).
				Validate(required("iteration name is required")),
		).Title(onboarding.StageProject.Label()),
		huh.NewGroup(
			huh.NewInput().
				Key("repo_url").
				Title("Repository URL").
				Value(&f.repoURL).
				Validate(required("repository url is required")),
		).WithHideFunc(func() bool { return f.projectType != string(onboarding.ProjectGit) }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("template").
				Title("Template").
				Options(templates...).
				Value(&f.templateID),
		).WithHideFunc(func() bool { return f.projectType != string(onboarding.ProjectTemplate) }),
		huh.NewGroup(
			huh.NewText().
				Key("intent").
				Title("What should we build first?").
				Value(&f.intent),
			huh.NewMultiSelect[string]().
				Key("chips").
				Title("Suggestions").
				Options(huh.NewOptions(onboarding.IntentChips()...)...).
				Value(&f.chips),
		).Title(onboarding.StageIntent.Label()),
	).WithShowHelp(true)
	return f
}

func (f *onboardingForm) validateKey(value string) error {
	p, ok := onboarding.LookupProvider(f.provider)
	if ok && p.RequiresKey && strings.TrimSpace(value) == "" {
		return onboarding.ErrMissingAPIKey
	}
	return nil
}

func required(message string) func(string) error {
	err := errors.New(message)
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return err
		}
		return nil
	}
}

// apply copies the answers onto the wizard. Selecting a provider resets its
// credentials, so the key is written afterwards.
func (f *onboardingForm) apply() error {
	if err := f.wizard.SelectProvider(f.provider); err != nil {
		return err
	}
	f.wizard.APIKey = f.apiKey
	f.wizard.ProjectType = onboarding.ProjectType(f.projectType)
	f.wizard.RepoURL = f.repoURL
	f.wizard.TemplateID = f.templateID
	f.wizard.Iteration = f.iteration
	intent := f.intent
	for _, chip := range f.chips {
		intent = onboarding.AppendChip(intent, chip)
	}
	f.wizard.Intent = intent
	for f.wizard.Stage < onboarding.StageIntent {
		f.wizard.Next()
	}
	return nil
}
