package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/seed"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitCreatesWorkbenchDir(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--project-dir", dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, config.WorkbenchDir))
	_, err = os.Stat(filepath.Join(dir, config.WorkbenchDir, "config.yaml"))
	assert.NoError(t, err)
}

func TestResourcesFiltersByProject(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--project-dir", dir, "resources", "--project", "Global")
	require.NoError(t, err)
	assert.Contains(t, out, "TypeScript Strict Mode Standard")
	assert.Contains(t, out, "Global Standards")
	assert.NotContains(t, out, "PRD: System Management V1.0")
}

func TestProjectDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORKBENCH_PROJECT_DIR", dir)
	_, err := execute(t, "init")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, config.WorkbenchDir))
	assert.NoError(t, err)
}

func TestSeedDumpRoundTrips(t *testing.T) {
	out, err := execute(t, "--project-dir", t.TempDir(), "seed", "dump")
	require.NoError(t, err)
	s, err := seed.Parse([]byte(out))
	require.NoError(t, err)
	assert.Len(t, s.Deployments, len(seed.MustDefault().Deployments))
}

func TestSeedFlagOverridesFixtures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	override := "resources:\n  - {id: r1, title: Orders API, source: Swagger, type: api, updated: now, status: synced, project: shop, iteration: MVP}\n"
	require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

	out, err := execute(t, "--project-dir", dir, "--seed", path, "resources")
	require.NoError(t, err)
	assert.Contains(t, out, "Orders API")
	assert.NotContains(t, out, "TypeScript Strict Mode Standard")
}

func TestDeployPlaysBuildLog(t *testing.T) {
	out, err := execute(t, "--project-dir", t.TempDir(), "deploy", "--env", "staging", "--tick", "1ms")
	require.NoError(t, err)
	buildLog := seed.MustDefault().BuildLog
	last := buildLog[len(buildLog)-1]
	assert.Equal(t, 1, strings.Count(out, last))
	assert.Contains(t, out, "Staging")
	assert.Contains(t, out, "42.3s")
}

func TestDeployRejectsUnknownEnvironment(t *testing.T) {
	_, err := execute(t, "--project-dir", t.TempDir(), "deploy", "--env", "qa")
	assert.Error(t, err)
}

func TestCloneRequiresSource(t *testing.T) {
	_, err := execute(t, "--project-dir", t.TempDir(), "clone", "--iteration", "MVP")
	assert.Error(t, err)

	_, err = execute(t, "--project-dir", t.TempDir(), "clone", "--repo", "https://github.com/acme/shop.git", "--template", "vue", "--iteration", "MVP")
	assert.Error(t, err)
}

func TestClonePlaysLaunch(t *testing.T) {
	out, err := execute(t, "--project-dir", t.TempDir(),
		"clone", "--repo", "https://github.com/acme/shop.git", "--iteration", "MVP v1.0", "--intent", "Add login", "--tick", "1ms")
	require.NoError(t, err)
	assert.Contains(t, out, "> git clone https://github.com/acme/shop.git .")
	assert.Contains(t, out, "Scope mounted:")
	assert.Contains(t, out, "[user] Add login")
	for _, step := range seed.MustDefault().Workbench.PlanTemplate {
		assert.Contains(t, out, step.Title)
	}
	assert.Contains(t, out, "completed")
}

func TestBridgeOverridesFromEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.InitWorkbenchDir(dir))
	t.Setenv("WORKBENCH_BRIDGE_ENABLED", "true")
	t.Setenv("WORKBENCH_BRIDGE_PORT", "9001")

	c := &cli{v: viper.New()}
	c.initConfig()
	c.addPersistentFlags(&cobra.Command{Use: "workbench"})
	cfg, err := c.loadConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Project.Bridge.Enabled)
	assert.Equal(t, 9001, cfg.Project.Bridge.Port)
	assert.Equal(t, "127.0.0.1", cfg.Project.Bridge.Host)

	reloaded, err := config.NewConfig(dir)
	require.NoError(t, err)
	assert.False(t, reloaded.Project.Bridge.Enabled, "overrides stay out of config.yaml")
}

func TestBridgePortOutOfRange(t *testing.T) {
	_, err := execute(t, "--project-dir", t.TempDir(), "--bridge-port", "70000", "resources")
	assert.Error(t, err)
}
