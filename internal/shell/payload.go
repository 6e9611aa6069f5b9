package shell

import (
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/scope"
)

// Payload is the tagged union of transfer payloads a tab can receive.
// Consumers switch on the concrete type.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

// PayloadKind names a payload variant.
type PayloadKind string

const (
	KindScope    PayloadKind = "scope"
	KindLaunch   PayloadKind = "launch"
	KindIntent   PayloadKind = "intent"
	KindWorkflow PayloadKind = "workflow"
)

// ScopePayload carries a context scope selected in the context manager.
type ScopePayload struct {
	Scope scope.Scope
}

// LaunchPayload carries the onboarding result.
type LaunchPayload struct {
	Launch onboarding.Launch
}

// IntentPayload carries a bare intent string such as the onboarding demo.
type IntentPayload struct {
	Intent string
}

// WorkflowPayload opens a workflow definition in the studio.
type WorkflowPayload struct {
	WorkflowID string
}

// DemoIntent starts the short greeting exchange in the workbench.
const DemoIntent = "ONBOARDING_DEMO"

func (ScopePayload) Kind() PayloadKind    { return KindScope }
func (LaunchPayload) Kind() PayloadKind   { return KindLaunch }
func (IntentPayload) Kind() PayloadKind   { return KindIntent }
func (WorkflowPayload) Kind() PayloadKind { return KindWorkflow }

func (ScopePayload) isPayload()    {}
func (LaunchPayload) isPayload()   {}
func (IntentPayload) isPayload()   {}
func (WorkflowPayload) isPayload() {}
