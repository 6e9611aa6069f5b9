package eventbridge

import (
	"net"
	"strconv"
	"time"

	"github.com/kingrea/workbench/internal/config"
)

// Request limits applied to every bridge listener. The listen address and
// the on/off switch live in the bridge section of .workbench/config.yaml.
const (
	DefaultMaxBodyBytes int64 = 1 << 20
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultIdleTimeout        = 60 * time.Second
)

// Settings is the resolved listener configuration of the bridge.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SettingsFromConfig maps the project's bridge section onto Settings. Flag
// and WORKBENCH_BRIDGE_* overrides are already folded into cfg by the CLI.
// A nil cfg yields the defaults of a fresh config, which keep the bridge off.
func SettingsFromConfig(cfg *config.Config) Settings {
	bridge := config.DefaultBridge()
	if cfg != nil {
		bridge = cfg.Project.Bridge
	}
	return Settings{
		Enabled:      bridge.Enabled,
		Host:         bridge.Host,
		Port:         bridge.Port,
		MaxBodyBytes: DefaultMaxBodyBytes,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
	}
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}
