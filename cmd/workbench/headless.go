package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/workbench/internal/catalog"
	"github.com/kingrea/workbench/internal/clock"
	"github.com/kingrea/workbench/internal/deploy"
	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/plan"
	"github.com/kingrea/workbench/internal/scope"
	"github.com/kingrea/workbench/internal/sequencer"
	"github.com/kingrea/workbench/internal/tui"
	"github.com/kingrea/workbench/internal/workbench"
)

func (c *cli) deployCmd() *cobra.Command {
	var env string
	var tick time.Duration
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Play a deployment build log and print the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := deploy.ParseEnvironment(env)
			if err != nil {
				return err
			}
			cfg, s, err := c.loadSeed()
			if err != nil {
				return err
			}
			logger := c.logger(cfg.ProjectDir)
			defer func() { _ = logger.Sync() }()
			if tick <= 0 {
				tick = cfg.Intervals().DeployTick
			}

			out := &lockedWriter{w: cmd.OutOrStdout()}
			center := deploy.NewCenter(s.Deployments, s.BuildLog)
			seq := sequencer.New[string](clock.Real())
			done := make(chan deploy.Deployment, 1)
			d := center.Trigger(seq, target, tick, func(line string) {
				fmt.Fprintln(out, line)
			}, func(finished deploy.Deployment) {
				done <- finished
			})
			logger.Info("deployment started", zap.String("id", d.ID), zap.String("env", string(target)))

			select {
			case <-cmd.Context().Done():
				seq.Cancel()
				center.Abort()
				return cmd.Context().Err()
			case finished := <-done:
				logger.Info("deployment finished", zap.String("id", finished.ID), zap.String("duration", finished.Duration))
			}
			fmt.Fprintln(out)
			renderDeployments(out, center.Deployments())
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", string(deploy.Production), "target environment (Production|Staging)")
	cmd.Flags().DurationVar(&tick, "tick", 0, "interval between log lines (defaults to the configured deploy tick)")
	return cmd
}

func (c *cli) cloneCmd() *cobra.Command {
	var repo, templateID, iteration, intent, provider string
	var tick time.Duration
	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Play a project launch and print the generated plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := onboarding.Launch{Provider: provider, IterationName: iteration, Intent: strings.TrimSpace(intent)}
			switch {
			case repo != "" && templateID != "":
				return fmt.Errorf("--repo and --template are mutually exclusive")
			case repo != "":
				l.Source = onboarding.GitSource{RepoURL: repo}
			case templateID != "":
				l.Source = onboarding.TemplateSource{TemplateID: templateID}
			}
			if err := l.Validate(); err != nil {
				return err
			}
			cfg, s, err := c.loadSeed()
			if err != nil {
				return err
			}
			logger := c.logger(cfg.ProjectDir)
			defer func() { _ = logger.Sync() }()

			timings := tui.TimingsFromConfig(cfg.Intervals()).Workbench
			if tick > 0 {
				timings = workbench.Timings{CloneTick: tick, ReplyDelay: tick, AnalyzeWait: 2 * tick, PlanDelay: tick, PlanTick: tick}
			}
			session := workbench.NewSession(s.Workbench.Fixture())
			runner := workbench.NewRunner(session, clock.Real(), timings)
			out := &lockedWriter{w: cmd.OutOrStdout()}
			done := make(chan struct{})
			runner.Launch(l, workbench.Hooks{
				OnTerminal: func(line string) { fmt.Fprintln(out, line) },
				OnScope: func(sc scope.Scope) {
					fmt.Fprintf(out, "\nScope mounted: %s\n", sc.Label())
				},
				OnMessage: func(msg workbench.Message) {
					fmt.Fprintf(out, "[%s] %s\n", msg.Sender, msg.Content)
				},
				OnDone: func() { close(done) },
			})
			logger.Info("launch started", zap.String("repo", onboarding.RepoName(l)), zap.String("iteration", l.IterationName))

			if err := wait(cmd.Context(), done, runner.Cancel); err != nil {
				return err
			}
			fmt.Fprintln(out)
			renderPlan(out, session.Plan())
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "git repository URL")
	cmd.Flags().StringVar(&templateID, "template", "", "project template id")
	cmd.Flags().StringVar(&iteration, "iteration", "", "iteration name")
	cmd.Flags().StringVar(&intent, "intent", "", "first request for the assistant")
	cmd.Flags().StringVar(&provider, "provider", "anthropic", "model provider id")
	cmd.Flags().DurationVar(&tick, "tick", 0, "use one interval for every step of the launch")
	return cmd
}

func (c *cli) resourcesCmd() *cobra.Command {
	var project, iteration string
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List context resources by project and iteration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := c.loadSeed()
			if err != nil {
				return err
			}
			cat := catalog.New(s.Resources)
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Project", "Iteration", "Type", "Title", "Source", "Status", "Updated"})
			for _, g := range cat.Group() {
				if project != "" && !strings.EqualFold(g.Project, project) {
					continue
				}
				for _, it := range g.Iterations {
					if iteration != "" && !strings.EqualFold(it.Name, iteration) {
						continue
					}
					for _, r := range it.Resources {
						tw.AppendRow(table.Row{g.Project, it.Name, r.Kind.Label(), r.Title, r.Source, r.Status, r.Updated})
					}
				}
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "only this project")
	cmd.Flags().StringVar(&iteration, "iteration", "", "only this iteration")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	sd := &cobra.Command{Use: "seed", Short: "Inspect the fixture data"}
	sd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective seed as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := c.loadSeed()
			if err != nil {
				return err
			}
			data, err := s.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return sd
}

// lockedWriter serializes writes from timer callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// wait blocks until done closes, calling cancel if ctx ends first.
func wait(ctx context.Context, done <-chan struct{}, cancel func()) error {
	select {
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case <-done:
		return nil
	}
}

func renderDeployments(out io.Writer, deployments []deploy.Deployment) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"ID", "Environment", "Status", "Commit", "Message", "Author", "Time", "Duration"})
	for _, d := range deployments {
		tw.AppendRow(table.Row{d.ID, d.Environment, d.Status, d.Commit, d.Message, d.Author, d.Time, d.Duration})
	}
	tw.Render()
}

func renderPlan(out io.Writer, steps []plan.Step) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Step", "Status", "Description"})
	for i, step := range steps {
		tw.AppendRow(table.Row{i + 1, step.Title, step.Status, step.Description})
	}
	tw.Render()
}
