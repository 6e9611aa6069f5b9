// Package deploy is the deployment center: deployment history, the simulated
// build log stream, and the status flip when a build finishes.
package deploy

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/workbench/internal/sequencer"
)

// Status is a deployment's state.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusBuilding Status = "building"
	StatusFailed   Status = "failed"
	StatusQueued   Status = "queued"
)

// Environment is a deploy target.
type Environment string

const (
	Production Environment = "Production"
	Staging    Environment = "Staging"
)

// ParseEnvironment accepts either target case-insensitively.
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "production", "prod":
		return Production, nil
	case "staging", "stage":
		return Staging, nil
	}
	return "", fmt.Errorf("deploy: unknown environment %q", value)
}

// Deployment is one entry in the history.
type Deployment struct {
	ID          string      `yaml:"id" json:"id"`
	Status      Status      `yaml:"status" json:"status"`
	Environment Environment `yaml:"environment" json:"environment"`
	Commit      string      `yaml:"commit" json:"commit"`
	Message     string      `yaml:"message" json:"message"`
	Author      string      `yaml:"author" json:"author"`
	Time        string      `yaml:"time" json:"time"`
	Duration    string      `yaml:"duration,omitempty" json:"duration,omitempty"`
	URL         string      `yaml:"url,omitempty" json:"url,omitempty"`
}

// FinishedDuration is reported on every simulated build.
const FinishedDuration = "42.3s"

// Center tracks deployments and the log of the build in flight. Methods are
// safe for concurrent use so that timer callbacks may drive it.
type Center struct {
	mu          sync.Mutex
	deployments []Deployment
	buildLog    []string
	logs        []string
	active      string
}

// NewCenter seeds the history and the log script played for each build.
func NewCenter(history []Deployment, buildLog []string) *Center {
	return &Center{
		deployments: append([]Deployment(nil), history...),
		buildLog:    append([]string(nil), buildLog...),
	}
}

// Deployments returns the history, newest first.
func (c *Center) Deployments() []Deployment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Deployment(nil), c.deployments...)
}

// Logs returns the lines streamed so far for the current build.
func (c *Center) Logs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.logs...)
}

// BuildLog returns the scripted build output.
func (c *Center) BuildLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.buildLog...)
}

// Building reports whether a build is in flight.
func (c *Center) Building() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != ""
}

// Begin prepends a building deployment for env and clears the log. A build
// already in flight is superseded and marked failed.
func (c *Center) Begin(env Environment) Deployment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != "" {
		c.setStatusLocked(c.active, StatusFailed, "")
	}
	d := Deployment{
		ID:          "d_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6],
		Status:      StatusBuilding,
		Environment: env,
		Commit:      "HEAD",
		Message:     "Manual deployment triggered",
		Author:      "user",
		Time:        "Just now",
	}
	c.deployments = append([]Deployment{d}, c.deployments...)
	c.logs = nil
	c.active = d.ID
	return d
}

// Append records a streamed log line for build id. Lines from a superseded
// build are dropped.
func (c *Center) Append(id, line string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.active {
		return false
	}
	c.logs = append(c.logs, line)
	return true
}

// Finish flips build id to success.
func (c *Center) Finish(id string) (Deployment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || id != c.active {
		return Deployment{}, false
	}
	c.active = ""
	return c.setStatusLocked(id, StatusSuccess, FinishedDuration)
}

// Abort marks the build in flight failed, e.g. when its view is torn down.
func (c *Center) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != "" {
		c.setStatusLocked(c.active, StatusFailed, "")
		c.active = ""
	}
}

func (c *Center) setStatusLocked(id string, status Status, duration string) (Deployment, bool) {
	for i := range c.deployments {
		if c.deployments[i].ID == id {
			c.deployments[i].Status = status
			if duration != "" {
				c.deployments[i].Duration = duration
			}
			return c.deployments[i], true
		}
	}
	return Deployment{}, false
}

// Trigger starts a build for env and streams the build log through seq.
// onLine and onDone may be nil.
func (c *Center) Trigger(seq *sequencer.Sequencer[string], env Environment, tick time.Duration, onLine func(string), onDone func(Deployment)) Deployment {
	seq.Cancel()
	d := c.Begin(env)
	seq.Run(c.BuildLog(), tick, func(_ int, line string) {
		if c.Append(d.ID, line) && onLine != nil {
			onLine(line)
		}
	}, func() {
		if finished, ok := c.Finish(d.ID); ok && onDone != nil {
			onDone(finished)
		}
	})
	return d
}
