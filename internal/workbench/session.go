// Package workbench is the code workbench session: chat messages, the
// terminal panel, the active scope and the execution plan, plus the scripted
// launch sequence that follows onboarding.
package workbench

import (
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/scope"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// MessageKind selects how a message renders.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessagePlan     MessageKind = "plan"
	MessageTerminal MessageKind = "terminal"
)

// Message is one chat entry.
type Message struct {
	ID        string      `yaml:"id" json:"id"`
	Sender    Sender      `yaml:"sender" json:"sender"`
	Kind      MessageKind `yaml:"kind" json:"kind"`
	Content   string      `yaml:"content" json:"content"`
	Timestamp string      `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
}

// FallbackProject names the scope when a launch yields no repository name.
const FallbackProject = "enterprise-admin"

// Fixture is the seed a session starts from.
type Fixture struct {
	Scope        scope.Scope
	Messages     []Message
	Plan         []plan.Step
	PlanTemplate []plan.Step
}

// Session is the workbench state for one view session.
type Session struct {
	messages     []Message
	terminal     []string
	plan         *plan.Plan
	scope        scope.Scope
	launch       *onboarding.Launch
	planTemplate []plan.Step
	generating   bool
	now          func() time.Time
	seq          int
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession starts a session from fx. Seeded plan statuses are kept as
// recorded.
func NewSession(fx Fixture, opts ...Option) *Session {
	s := &Session{
		messages:     append([]Message(nil), fx.Messages...),
		scope:        fx.Scope,
		planTemplate: append([]plan.Step(nil), fx.PlanTemplate...),
		now:          time.Now,
	}
	s.plan = &plan.Plan{}
	s.plan.Replace(fx.Plan)
	restoreStatuses(s.plan, fx.Plan)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func restoreStatuses(p *plan.Plan, steps []plan.Step) {
	running := -1
	completed := 0
	for i, step := range steps {
		switch step.Status {
		case plan.StatusRunning:
			running = i
		case plan.StatusCompleted:
			completed = i + 1
		}
	}
	switch {
	case running >= 0:
		p.Activate(running)
	case completed == len(steps) && completed > 0:
		p.Complete()
	}
}

// Messages returns the chat history.
func (s *Session) Messages() []Message { return append([]Message(nil), s.messages...) }

// Terminal returns the terminal panel lines.
func (s *Session) Terminal() []string { return append([]string(nil), s.terminal...) }

// Plan returns the current plan steps.
func (s *Session) Plan() []plan.Step { return s.plan.Snapshot() }

// PlanModel exposes the plan for sequenced advancement.
func (s *Session) PlanModel() *plan.Plan { return s.plan }

// Scope returns the session's active scope.
func (s *Session) Scope() scope.Scope { return s.scope }

// Launch returns the launch being played, if any.
func (s *Session) Launch() (onboarding.Launch, bool) {
	if s.launch == nil {
		return onboarding.Launch{}, false
	}
	return *s.launch, true
}

// Generating reports whether a plan is being generated.
func (s *Session) Generating() bool { return s.generating }

func (s *Session) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d-%d", prefix, s.now().UnixMilli(), s.seq)
}

func (s *Session) stamp() string { return s.now().Format("15:04") }

func (s *Session) post(prefix string, sender Sender, content string) Message {
	msg := Message{ID: s.nextID(prefix), Sender: sender, Kind: MessageText, Content: content, Timestamp: s.stamp()}
	s.messages = append(s.messages, msg)
	return msg
}

// ApplyScope mounts sc and announces the switch in the chat.
func (s *Session) ApplyScope(sc scope.Scope) Message {
	s.scope = sc
	return s.post("sys", SenderAI, fmt.Sprintf("Context switched to **%s / %s**.", sc.Project(), sc.Name()))
}

// Send posts a user message typed in the chat box.
func (s *Session) Send(text string) (Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false
	}
	return s.post("user", SenderUser, text), true
}

// Acknowledge posts the canned assistant reply to a chat message.
func (s *Session) Acknowledge(text string) Message {
	return s.post("ai", SenderAI, fmt.Sprintf("Working on _%q_ within **%s**.", strings.TrimSpace(text), s.scope.Label()))
}

// BeginDemo clears the chat for the onboarding greeting.
func (s *Session) BeginDemo() {
	s.messages = nil
	s.launch = nil
}

// DemoGreeting is the user half of the onboarding greeting.
func (s *Session) DemoGreeting() Message { return s.post("demo-user", SenderUser, "Hello") }

// DemoReply is the assistant half of the onboarding greeting.
func (s *Session) DemoReply() Message {
	return s.post("demo-ai", SenderAI, "Hello! I'm your AI coding assistant. The workspace is ready.")
}

// BeginLaunch clears messages, plan and terminal and returns the clone log to
// play.
func (s *Session) BeginLaunch(l onboarding.Launch) []string {
	s.messages = nil
	s.terminal = nil
	s.plan.Replace(nil)
	s.generating = false
	launch := l
	s.launch = &launch
	return CloneScript(l)
}

// AppendTerminal adds one line to the terminal panel.
func (s *Session) AppendTerminal(line string) {
	s.terminal = append(s.terminal, line)
}

// MountLaunchScope builds the repository scope once cloning finishes.
func (s *Session) MountLaunchScope() scope.Scope {
	l, _ := s.Launch()
	project := onboarding.RepoName(l)
	if project == "" {
		project = FallbackProject
	}
	s.scope = scope.NewAt(s.now(), project, l.IterationName, []scope.Item{{Kind: scope.KindTech, Title: "Repository Context"}})
	return s.scope
}

// PostIntent posts the launch intent as a user message.
func (s *Session) PostIntent() (Message, bool) {
	l, ok := s.Launch()
	if !ok || l.Intent == "" {
		return Message{}, false
	}
	return s.post("user", SenderUser, l.Intent), true
}

// PostAnalysis posts the assistant reply to the launch intent and marks the
// plan as generating.
func (s *Session) PostAnalysis() (Message, bool) {
	l, ok := s.Launch()
	if !ok || l.Intent == "" {
		return Message{}, false
	}
	s.generating = true
	content := fmt.Sprintf("I've analyzed the repository **%s**. Based on your request to _%q_, I'm creating a plan to execute this task.\n\nCreating execution plan...", s.scope.Project(), l.Intent)
	return s.post("ai", SenderAI, content), true
}

// RequestPlan marks a manual regeneration in flight.
func (s *Session) RequestPlan() { s.generating = true }

// GeneratePlan replaces the plan with a fresh pending copy of the template.
func (s *Session) GeneratePlan() []plan.Step {
	s.generating = false
	s.plan.Replace(s.planTemplate)
	return s.plan.Snapshot()
}

// PlanGeneratedMessage is shown once a plan is in place.
const PlanGeneratedMessage = "Plan generated from active context."

// CloneScript returns the terminal lines played while cloning.
func CloneScript(l onboarding.Launch) []string {
	repo := onboarding.RepoName(l)
	branch := onboarding.Branch(l)
	return []string{
		fmt.Sprintf("> git clone %s .", l.RepoURL()),
		"Cloning into '.'...",
		"remote: Enumerating objects: 124, done.",
		"remote: Counting objects: 100% (124/124), done.",
		"remote: Compressing objects: 100% (98/98), done.",
		"Receiving objects: 100% (124/124), 2.45 MiB | 5.23 MiB/s, done.",
		"Resolving deltas: 100% (45/45), done.",
		fmt.Sprintf("> cd %s", repo),
		fmt.Sprintf("> git checkout -b %q", branch),
		fmt.Sprintf("Switched to a new branch '%s'", branch),
	}
}

// RunCommand echoes a terminal command and returns the scripted output. The
// clear command empties the panel.
func (s *Session) RunCommand(cmd string) []string {
	cmd = strings.TrimSpace(cmd)
	s.terminal = append(s.terminal, "$ "+cmd)
	var out []string
	switch cmd {
	case "":
		return nil
	case "clear":
		s.terminal = nil
		return nil
	case "npm run test":
		out = []string{
			"> vitest",
			"",
			" ✓ src/tests/system/user.test.ts (3 tests)",
			" ✓ src/utils/validate.test.ts (5 tests)",
			"",
			" Test Files  2 passed (2)",
			"      Tests  8 passed (8)",
			"   Duration  1.42s",
		}
	default:
		out = []string{"zsh: command not found: " + cmd}
	}
	s.terminal = append(s.terminal, out...)
	return out
}
