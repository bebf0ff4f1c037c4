package netcfg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Command is an argv with placeholders. {iface}, {server}, {prefix},
// {range_start} and {range_end} are substituted before execution.
type Command []string

// CommandConfig maps each configurator operation to hook commands.
type CommandConfig struct {
	InterfaceUp     []Command `yaml:"interface_up"`
	InterfaceDown   []Command `yaml:"interface_down"`
	ClearAddresses  []Command `yaml:"clear_addresses"`
	DHCPServerStart []Command `yaml:"dhcp_server_start"`
	DHCPServerStop  []Command `yaml:"dhcp_server_stop"`

	// DHCPClient runs until a lease is obtained. A "server=<ip>" line on
	// its standard output reports the DHCP server address.
	DHCPClient Command `yaml:"dhcp_client"`

	// Timeout bounds every command except DHCPClient.
	Timeout time.Duration `yaml:"timeout"`

	// ClientTimeout bounds the DHCP client.
	ClientTimeout time.Duration `yaml:"client_timeout"`
}

// DefaultCommandConfig uses iproute2, dnsmasq and busybox udhcpc.
func DefaultCommandConfig() CommandConfig {
	pid := "/run/p2pd-dnsmasq-{iface}.pid"
	return CommandConfig{
		InterfaceUp:    []Command{{"ip", "link", "set", "{iface}", "up"}},
		InterfaceDown:  []Command{{"ip", "link", "set", "{iface}", "down"}},
		ClearAddresses: []Command{{"ip", "addr", "flush", "dev", "{iface}"}},
		DHCPServerStart: []Command{
			{"ip", "addr", "add", "{server}/{prefix}", "dev", "{iface}"},
			{"dnsmasq", "--interface={iface}", "--bind-interfaces", "--except-interface=lo",
				"--dhcp-range={range_start},{range_end},1h", "--pid-file=" + pid},
		},
		DHCPServerStop: []Command{{"pkill", "-F", pid}},
		DHCPClient:     Command{"udhcpc", "-f", "-q", "-n", "-i", "{iface}", "-s", "/usr/share/p2pd/udhcpc.script"},
		Timeout:        5 * time.Second,
		ClientTimeout:  30 * time.Second,
	}
}

// Runner executes argv and returns its standard output.
type Runner func(ctx context.Context, argv []string) ([]byte, error)

// ExecRunner runs argv with os/exec.
func ExecRunner(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// CommandConfigurator implements Configurator with hook commands.
type CommandConfigurator struct {
	cfg    CommandConfig
	run    Runner
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]context.CancelFunc
}

// NewCommandConfigurator returns a configurator running commands with
// run. A nil run uses ExecRunner and a nil logger discards output.
func NewCommandConfigurator(cfg CommandConfig, run Runner, logger *slog.Logger) *CommandConfigurator {
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = 30 * time.Second
	}
	return &CommandConfigurator{cfg: cfg, run: run, logger: logger, clients: make(map[string]context.CancelFunc)}
}

func expand(c Command, iface string) []string {
	r := strings.NewReplacer(
		"{iface}", iface,
		"{server}", ServerAddress.String(),
		"{prefix}", fmt.Sprint(PrefixLen),
		"{range_start}", RangeStart.String(),
		"{range_end}", RangeEnd.String(),
	)
	out := make([]string, len(c))
	for i, a := range c {
		out[i] = r.Replace(a)
	}
	return out
}

func (c *CommandConfigurator) exec(ctx context.Context, cmd Command, iface string) ([]byte, error) {
	argv := expand(cmd, iface)
	c.logger.Debug("netcfg exec", "argv", strings.Join(argv, " "))
	out, err := c.run(ctx, argv)
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrCommandFailed, argv[0], err)
	}
	return out, nil
}

// sequence stops at the first failing command.
func (c *CommandConfigurator) sequence(cmds []Command, iface string) error {
	for _, cmd := range cmds {
		if len(cmd) == 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		_, err := c.exec(ctx, cmd, iface)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// teardown runs every command and combines the failures.
func (c *CommandConfigurator) teardown(cmds []Command, iface string) error {
	var errs error
	for _, cmd := range cmds {
		if len(cmd) == 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		_, err := c.exec(ctx, cmd, iface)
		cancel()
		errs = multierr.Append(errs, err)
	}
	return errs
}

// SetInterfaceUp brings iface up.
func (c *CommandConfigurator) SetInterfaceUp(iface string) error {
	return c.sequence(c.cfg.InterfaceUp, iface)
}

// SetInterfaceDown takes iface down.
func (c *CommandConfigurator) SetInterfaceDown(iface string) error {
	return c.teardown(c.cfg.InterfaceDown, iface)
}

// ClearAddresses removes every address from iface.
func (c *CommandConfigurator) ClearAddresses(iface string) error {
	return c.teardown(c.cfg.ClearAddresses, iface)
}

// StartDHCPServer assigns the owner address and starts serving leases.
func (c *CommandConfigurator) StartDHCPServer(iface string) error {
	return c.sequence(c.cfg.DHCPServerStart, iface)
}

// StopDHCPServer stops serving leases on iface.
func (c *CommandConfigurator) StopDHCPServer(iface string) error {
	return c.teardown(c.cfg.DHCPServerStop, iface)
}

// StartDHCPClient runs the client command in the background.
func (c *CommandConfigurator) StartDHCPClient(iface string, report func(Result)) error {
	if len(c.cfg.DHCPClient) == 0 {
		return ErrEmptyCommand
	}

	c.mu.Lock()
	if _, ok := c.clients[iface]; ok {
		c.mu.Unlock()
		return ErrClientRunning
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ClientTimeout)
	c.clients[iface] = cancel
	c.mu.Unlock()

	go func() {
		out, err := c.exec(ctx, c.cfg.DHCPClient, iface)
		stopped := errors.Is(ctx.Err(), context.Canceled)

		c.mu.Lock()
		if cur, ok := c.clients[iface]; ok && !stopped {
			cur()
			delete(c.clients, iface)
		}
		c.mu.Unlock()

		if stopped {
			return
		}
		res := Result{Interface: iface, Err: err}
		if err == nil {
			res.Server, res.Err = parseServer(out)
		}
		report(res)
	}()
	return nil
}

// StopDHCPClient cancels a running client. The report callback is not
// called afterwards.
func (c *CommandConfigurator) StopDHCPClient(iface string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cancel, ok := c.clients[iface]; ok {
		cancel()
		delete(c.clients, iface)
	}
	return nil
}

func parseServer(out []byte) (netip.Addr, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		v, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "server=")
		if !ok {
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: %q", ErrNoServer, v)
		}
		return addr, nil
	}
	return netip.Addr{}, ErrNoServer
}

var _ Configurator = (*CommandConfigurator)(nil)
