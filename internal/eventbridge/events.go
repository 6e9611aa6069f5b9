package eventbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/shell"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// RequestSchemaVersion is the currently supported navigate request version.
	RequestSchemaVersion = 1
	// TopicNavigate is the router topic carrying navigate commands.
	TopicNavigate = "navigate"
)

// NavigateRequest is the body of POST /navigate.
type NavigateRequest struct {
	Version   int          `json:"version,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Tab       string       `json:"tab"`
	Payload   *PayloadSpec `json:"payload,omitempty"`
}

// PayloadSpec is the wire form of a shell payload. Kind selects which of the
// remaining fields is read.
type PayloadSpec struct {
	Kind       string      `json:"kind"`
	Scope      *scope.View `json:"scope,omitempty"`
	Launch     *LaunchSpec `json:"launch,omitempty"`
	Intent     string      `json:"intent,omitempty"`
	WorkflowID string      `json:"workflow_id,omitempty"`
}

// LaunchSpec is the wire form of onboarding.Launch.
type LaunchSpec struct {
	Provider      string `json:"provider"`
	ProjectType   string `json:"project_type"`
	RepoURL       string `json:"repo_url,omitempty"`
	TemplateID    string `json:"template_id,omitempty"`
	IterationName string `json:"iteration_name"`
	Intent        string `json:"intent,omitempty"`
}

// Command is a validated navigate request ready for the update loop.
type Command struct {
	ID         string
	Topic      string
	Tab        shell.Tab
	Payload    shell.Payload
	ServerTime time.Time
}

// Normalize applies defaults and canonical formatting before validation.
func (r *NavigateRequest) Normalize() {
	if r == nil {
		return
	}
	if r.Version == 0 {
		r.Version = RequestSchemaVersion
	}
	r.RequestID = strings.TrimSpace(r.RequestID)
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	r.Tab = strings.ToLower(strings.TrimSpace(r.Tab))
	if r.Payload != nil {
		r.Payload.Kind = strings.ToLower(strings.TrimSpace(r.Payload.Kind))
		r.Payload.Intent = strings.TrimSpace(r.Payload.Intent)
		r.Payload.WorkflowID = strings.TrimSpace(r.Payload.WorkflowID)
	}
}

// Command validates r and converts it. Scope payloads always target the
// workbench, as do launches.
func (r NavigateRequest) Command(now time.Time) (Command, error) {
	if r.Version != RequestSchemaVersion {
		return Command{}, fmt.Errorf("version %d not supported", r.Version)
	}
	tab, err := shell.ParseTab(r.Tab)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{ID: r.RequestID, Topic: TopicNavigate, Tab: tab, ServerTime: now.UTC()}
	if r.Payload == nil {
		return cmd, nil
	}
	payload, err := r.Payload.decode()
	if err != nil {
		return Command{}, err
	}
	switch payload.(type) {
	case shell.ScopePayload, shell.LaunchPayload:
		if tab != shell.TabWorkbench {
			return Command{}, fmt.Errorf("%s payload must target the workbench tab", payload.Kind())
		}
	}
	cmd.Payload = payload
	return cmd, nil
}

func (p PayloadSpec) decode() (shell.Payload, error) {
	switch shell.PayloadKind(p.Kind) {
	case shell.KindScope:
		if p.Scope == nil {
			return nil, errors.New("payload.scope is required")
		}
		var sc scope.Scope
		if strings.TrimSpace(p.Scope.ID) == "" {
			sc = scope.New(p.Scope.Project, p.Scope.Name, p.Scope.Items)
		} else {
			sc = scope.Restore(p.Scope.ID, p.Scope.Project, p.Scope.Name, p.Scope.Items)
		}
		return shell.ScopePayload{Scope: sc}, nil
	case shell.KindLaunch:
		if p.Launch == nil {
			return nil, errors.New("payload.launch is required")
		}
		l, err := p.Launch.launch()
		if err != nil {
			return nil, err
		}
		return shell.LaunchPayload{Launch: l}, nil
	case shell.KindIntent:
		if p.Intent == "" {
			return nil, errors.New("payload.intent is required")
		}
		return shell.IntentPayload{Intent: p.Intent}, nil
	case shell.KindWorkflow:
		if p.WorkflowID == "" {
			return nil, errors.New("payload.workflow_id is required")
		}
		return shell.WorkflowPayload{WorkflowID: p.WorkflowID}, nil
	case "":
		return nil, errors.New("payload.kind is required")
	default:
		return nil, fmt.Errorf("payload.kind %q is not supported", p.Kind)
	}
}

func (s LaunchSpec) launch() (onboarding.Launch, error) {
	l := onboarding.Launch{
		Provider:      strings.TrimSpace(s.Provider),
		IterationName: strings.TrimSpace(s.IterationName),
		Intent:        strings.TrimSpace(s.Intent),
	}
	switch onboarding.ProjectType(strings.ToLower(strings.TrimSpace(s.ProjectType))) {
	case onboarding.ProjectGit:
		l.Source = onboarding.GitSource{RepoURL: strings.TrimSpace(s.RepoURL)}
	case onboarding.ProjectTemplate:
		l.Source = onboarding.TemplateSource{TemplateID: strings.TrimSpace(s.TemplateID)}
	case "":
	default:
		return onboarding.Launch{}, fmt.Errorf("launch.project_type %q is not supported", s.ProjectType)
	}
	if err := l.Validate(); err != nil {
		return onboarding.Launch{}, err
	}
	return l, nil
}

// CommandProcessor consumes validated commands.
type CommandProcessor interface {
	HandleCommand(Command) error
}

// CommandProcessorFunc adapts a function into a CommandProcessor.
type CommandProcessorFunc func(Command) error

// HandleCommand executes f(c).
func (f CommandProcessorFunc) HandleCommand(c Command) error {
	if f == nil {
		return nil
	}
	return f(c)
}

// StateSource exposes the shell snapshot served by GET /state.
type StateSource interface {
	Snapshot() shell.Snapshot
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type navigateResponse struct {
	Status     string    `json:"status"`
	RequestID  string    `json:"request_id"`
	ServerTime time.Time `json:"server_time"`
}
