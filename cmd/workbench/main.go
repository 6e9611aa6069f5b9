// cmd/workbench/main.go
//
// This is the entry point for the workbench CLI.
// Running `workbench` with no subcommand launches the TUI in the current
// project directory. The headless subcommands play the same scripted
// sequences on a real clock and print the result.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/logging"
	"github.com/kingrea/workbench/internal/seed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// cli carries the flag and env bindings shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:   "workbench",
		Short: "Terminal AI development workbench",
		Long: `Workbench is a terminal front end for an AI-assisted development workflow.
- Dashboard: project health and the onboarding wizard.
- Context manager: per-iteration resources packaged into a scope.
- Workbench: chat, generated plan and terminal for the active scope.
- Workflow, test and deploy views replay scripted runs.

Flags may also be set through WORKBENCH_* environment variables,
e.g. WORKBENCH_PROJECT_DIR, WORKBENCH_LOG_LEVEL or WORKBENCH_BRIDGE_PORT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context())
		},
	}
	c.initConfig()
	c.addPersistentFlags(root)
	root.AddCommand(
		c.tuiCmd(),
		c.initCmd(),
		c.deployCmd(),
		c.cloneCmd(),
		c.resourcesCmd(),
		c.seedCmd(),
	)
	return root
}

func (c *cli) initConfig() {
	c.v.SetEnvPrefix("WORKBENCH")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
}

func (c *cli) addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("project-dir", "C", "", "project directory (defaults to the working directory)")
	root.PersistentFlags().String("seed", "", "seed YAML overriding the embedded fixtures")
	root.PersistentFlags().String("log-level", "info", "diagnostic log level (debug|info|warn|error)")
	root.PersistentFlags().Bool("bridge-enabled", false, "serve the local HTTP event bridge")
	root.PersistentFlags().String("bridge-host", "", "event bridge listen host")
	root.PersistentFlags().Int("bridge-port", 0, "event bridge listen port")
	for _, name := range []string{"project-dir", "seed", "log-level", "bridge-enabled", "bridge-host", "bridge-port"} {
		_ = c.v.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}
}

func (c *cli) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context())
		},
	}
}

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .workbench directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.projectDir()
			if err != nil {
				return err
			}
			if err := config.InitWorkbenchDir(dir); err != nil {
				return fmt.Errorf("init %s: %w", config.WorkbenchDir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", filepath.Join(dir, config.WorkbenchDir))
			return nil
		},
	}
}

// projectDir resolves --project-dir, falling back to the working directory.
func (c *cli) projectDir() (string, error) {
	dir := strings.TrimSpace(c.v.GetString("project-dir"))
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = cwd
	}
	return filepath.Abs(dir)
}

// loadConfig reads the project config and applies the --seed override.
func (c *cli) loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, err
	}
	if path := strings.TrimSpace(c.v.GetString("seed")); path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve seed path: %w", err)
		}
		cfg.Project.SeedPath = abs
	}
	if err := c.applyBridgeOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyBridgeOverrides folds --bridge-* flags and WORKBENCH_BRIDGE_* env
// vars over the bridge section of the project config.
func (c *cli) applyBridgeOverrides(cfg *config.Config) error {
	bridge := cfg.Project.Bridge
	changed := false
	if c.v.IsSet("bridge-enabled") {
		bridge.Enabled = c.v.GetBool("bridge-enabled")
		changed = true
	}
	if c.v.IsSet("bridge-host") {
		bridge.Host = c.v.GetString("bridge-host")
		changed = true
	}
	if c.v.IsSet("bridge-port") {
		bridge.Port = c.v.GetInt("bridge-port")
		changed = true
	}
	if !changed {
		return nil
	}
	if err := cfg.OverrideBridge(bridge); err != nil {
		return fmt.Errorf("bridge override: %w", err)
	}
	return nil
}

func (c *cli) logger(dir string) *zap.Logger {
	logger, err := logging.NewOrNop(dir, c.v.GetString("log-level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: diagnostic log disabled: %v\n", err)
	}
	return logger
}

func loadStore(cfg *config.Config) (*seed.Store, error) {
	s, err := seed.Load(cfg.SeedPath())
	if err != nil {
		return nil, err
	}
	return seed.NewStore(s)
}

// loadSeed is the one-shot variant used by headless commands.
func (c *cli) loadSeed() (*config.Config, seed.Seed, error) {
	dir, err := c.projectDir()
	if err != nil {
		return nil, seed.Seed{}, err
	}
	cfg, err := c.loadConfig(dir)
	if err != nil {
		return nil, seed.Seed{}, err
	}
	s, err := seed.Load(cfg.SeedPath())
	if err != nil {
		return nil, seed.Seed{}, err
	}
	return cfg, s, nil
}
