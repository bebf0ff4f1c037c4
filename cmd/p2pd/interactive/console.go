// Package interactive provides the interactive console of the p2pd
// daemon. The console is an in-process application session: it issues
// requests, receives service responses and answers consent prompts.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/p2pcoord/p2pcoord-go/pkg/discovery"
	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
	"github.com/p2pcoord/p2pcoord-go/pkg/service"
	"github.com/p2pcoord/p2pcoord-go/pkg/session"
)

const requestTimeout = 5 * time.Second

// Console handles interactive mode for p2pd.
type Console struct {
	rl     *readline.Instance
	client *session.ChanClient
	svc    *service.Service

	mu       sync.Mutex
	services []*nsd.ServiceInfo
	requests map[uint8]*nsd.ServiceRequest
}

// New creates a console. It must be attached to a service with Attach
// before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "p2p> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{
		rl:       rl,
		client:   session.NewChanClient(32),
		requests: make(map[uint8]*nsd.ServiceRequest),
	}, nil
}

// Attach binds the console to svc and registers its event handler.
func (c *Console) Attach(svc *service.Service) {
	c.svc = svc
	svc.OnEvent(c.handleEvent)
}

// Client is the console's application session.
func (c *Console) Client() session.Client { return c.client }

// IsForeground reports whether the session with id is the console. The
// console is the only session ever in the foreground.
func (c *Console) IsForeground(id string) bool {
	return id == c.client.ID()
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.rl.Stdout(), format, args...)
}

// PromptInvitation implements consent.Prompter.
func (c *Console) PromptInvitation(dev p2p.Device, cfg p2p.Config) {
	c.printf("\n[PROMPT] Connection request from %s (%s). Type 'accept%s' or 'reject'.\n",
		dev, cfg.Wps.Setup, pinHint(cfg))
}

// PromptJoin implements consent.Prompter.
func (c *Console) PromptJoin(dev p2p.Device, cfg p2p.Config) {
	c.printf("\n[PROMPT] %s wants to join the group (%s). Type 'accept%s' or 'reject'.\n",
		dev, cfg.Wps.Setup, pinHint(cfg))
}

// ShowPin implements consent.Prompter.
func (c *Console) ShowPin(peerName, pin string) {
	c.printf("\n[PIN] Enter %s on %s\n", pin, peerName)
}

func pinHint(cfg p2p.Config) string {
	if cfg.Wps.Setup == p2p.WpsKeypad && cfg.Wps.PIN == "" {
		return " <pin>"
	}
	return ""
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.client.Close()

	go c.receive(ctx)
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "enable":
			c.svc.Enable()
		case "disable":
			c.svc.Disable()

		case "find", "f":
			c.simple(ctx, service.OpDiscoverPeers)
		case "stop":
			c.simple(ctx, service.OpStopDiscovery)
		case "peers", "p":
			c.cmdPeers(ctx)

		case "connect", "c":
			c.cmdConnect(ctx, args)
		case "cancel":
			c.simple(ctx, service.OpCancelConnect)
		case "group", "g":
			c.cmdGroup(ctx, args)
		case "info", "i":
			c.cmdInfo(ctx)
		case "name":
			c.cmdName(ctx, args)

		case "service", "s":
			c.cmdService(ctx, args)
		case "sreq":
			c.cmdServiceRequest(ctx, args)
		case "discover", "d":
			c.simple(ctx, service.OpDiscoverServices)

		case "listener":
			c.cmdListener(ctx, args)
		case "accept", "a":
			pin := ""
			if len(args) > 0 {
				pin = args[0]
			}
			c.svc.Accept(pin)
		case "reject":
			c.svc.Reject()

		case "browse", "b":
			c.cmdBrowse(ctx, args)

		case "status":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			c.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
P2P Commands:
  Adapter:
    enable | disable        - Bring peer-to-peer up or down
    status                  - Show coordinator state

  Peers:
    find | stop             - Start or stop peer discovery
    peers                   - List discovered peers
    connect <addr> [pbc|display [pin]|keypad <pin>] [intent <n>]
    cancel                  - Abort a connection attempt

  Group:
    group                   - Show the active group
    group create            - Create an autonomous group
    group remove            - Leave or dissolve the group
    info                    - Show connection info
    name <name>             - Set the device name

  Services:
    service                 - List local services
    service add bonjour <instance> <type> [k=v...]
    service add upnp <uuid> <device> [service...]
    service rm <n> | clear  - Remove local services
    sreq [all|bonjour [type [instance]]|upnp [st]] - Add a service request
    sreq rm <txid> | clear  - Remove service requests
    discover                - Run service discovery
    browse <type> [secs]    - Browse mDNS on the group interface

  Consent:
    listener on|off         - Take or release the dialog listener
    accept [pin] | reject   - Answer a connection prompt

    quit                    - Exit`)
}

func (c *Console) do(ctx context.Context, req service.Request) (service.Reply, bool) {
	req.Client = c.client
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply, err := c.svc.Do(ctx, req)
	if err != nil {
		c.printf("%s failed: %v\n", req.Op, err)
		return reply, false
	}
	return reply, true
}

func (c *Console) simple(ctx context.Context, op service.Op) {
	if reply, ok := c.do(ctx, service.Request{Op: op}); ok {
		c.printf("%s: %s\n", op, reply.Status)
	}
}

func (c *Console) cmdPeers(ctx context.Context) {
	reply, ok := c.do(ctx, service.Request{Op: service.OpRequestPeers})
	if !ok {
		return
	}
	if len(reply.Peers) == 0 {
		c.printf("No peers\n")
		return
	}
	for _, d := range reply.Peers {
		owner := ""
		if d.IsGroupOwner() {
			owner = " GO"
		}
		c.printf("  %-17s  %-20s  %-11s%s\n", d.Address, d.Name, d.Status, owner)
	}
}

func (c *Console) cmdConnect(ctx context.Context, args []string) {
	cfg, err := parseConnect(args)
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	if reply, ok := c.do(ctx, service.Request{Op: service.OpConnect, Config: cfg}); ok {
		c.printf("CONNECT %s (%s): %s\n", cfg.DeviceAddress, cfg.Wps.Setup, reply.Status)
	}
}

func (c *Console) cmdGroup(ctx context.Context, args []string) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "create":
			c.simple(ctx, service.OpCreateGroup)
		case "remove", "rm":
			c.simple(ctx, service.OpRemoveGroup)
		default:
			c.printf("Usage: group [create|remove]\n")
		}
		return
	}

	reply, ok := c.do(ctx, service.Request{Op: service.OpRequestGroupInfo})
	if !ok {
		return
	}
	g := reply.Group
	if g == nil {
		c.printf("No group\n")
		return
	}
	role := "client"
	if g.IsOwner {
		role = "owner"
	}
	c.printf("Group %s on %s (%s)\n", g.NetworkName, g.Interface, role)
	c.printf("  Owner:   %s\n", g.Owner)
	if g.NetworkID >= 0 {
		c.printf("  Network: %d\n", g.NetworkID)
	}
	for _, d := range g.Clients() {
		c.printf("  Client:  %s\n", d.Address)
	}
}

func (c *Console) cmdInfo(ctx context.Context) {
	if reply, ok := c.do(ctx, service.Request{Op: service.OpRequestConnectionInfo}); ok && reply.Info != nil {
		c.printf("Connection: %s\n", reply.Info)
	}
}

func (c *Console) cmdName(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.printf("Usage: name <name>\n")
		return
	}
	name := strings.Join(args, " ")
	if reply, ok := c.do(ctx, service.Request{Op: service.OpSetDeviceName, DeviceName: name}); ok {
		c.printf("SET_DEVICE_NAME %q: %s\n", name, reply.Status)
	}
}

func (c *Console) cmdService(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(c.services) == 0 {
			c.printf("No local services\n")
		}
		for i, info := range c.services {
			c.printf("  %d: %s\n", i, info)
		}
		return
	}

	switch strings.ToLower(args[0]) {
	case "add":
		info, err := parseServiceInfo(args[1:])
		if err != nil {
			c.printf("%v\n", err)
			return
		}
		if _, ok := c.do(ctx, service.Request{Op: service.OpAddLocalService, Service: info}); ok {
			c.mu.Lock()
			c.services = append(c.services, info)
			c.mu.Unlock()
			c.printf("Added %s\n", info)
		}

	case "rm", "remove":
		if len(args) < 2 {
			c.printf("Usage: service rm <n>\n")
			return
		}
		n, err := strconv.Atoi(args[1])
		c.mu.Lock()
		if err != nil || n < 0 || n >= len(c.services) {
			c.mu.Unlock()
			c.printf("No local service %s\n", args[1])
			return
		}
		info := c.services[n]
		c.mu.Unlock()
		if _, ok := c.do(ctx, service.Request{Op: service.OpRemoveLocalService, Service: info}); ok {
			c.mu.Lock()
			c.services = removeInfo(c.services, info)
			c.mu.Unlock()
			c.printf("Removed %s\n", info)
		}

	case "clear":
		if _, ok := c.do(ctx, service.Request{Op: service.OpClearLocalServices}); ok {
			c.mu.Lock()
			c.services = nil
			c.mu.Unlock()
		}

	default:
		c.printf("Usage: service [add|rm|clear]\n")
	}
}

func removeInfo(infos []*nsd.ServiceInfo, info *nsd.ServiceInfo) []*nsd.ServiceInfo {
	out := infos[:0]
	for _, i := range infos {
		if i != info {
			out = append(out, i)
		}
	}
	return out
}

func (c *Console) cmdServiceRequest(ctx context.Context, args []string) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "rm", "remove":
			c.removeServiceRequest(ctx, args[1:])
			return
		case "clear":
			if _, ok := c.do(ctx, service.Request{Op: service.OpClearServiceRequests}); ok {
				c.mu.Lock()
				clear(c.requests)
				c.mu.Unlock()
			}
			return
		case "list", "ls":
			c.mu.Lock()
			defer c.mu.Unlock()
			for id, r := range c.requests {
				c.printf("  %d: %s %q\n", id, r.Protocol, r.Query)
			}
			return
		}
	}

	req, err := parseServiceRequest(args)
	if err != nil {
		c.printf("%v\n", err)
		return
	}
	reply, ok := c.do(ctx, service.Request{Op: service.OpAddServiceRequest, ServiceRequest: req})
	if !ok || reply.ServiceRequest == nil {
		return
	}
	c.mu.Lock()
	c.requests[reply.ServiceRequest.TransactionID] = reply.ServiceRequest
	c.mu.Unlock()
	c.printf("Service request %d added (%s)\n", reply.ServiceRequest.TransactionID, req.Protocol)
}

func (c *Console) removeServiceRequest(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.printf("Usage: sreq rm <txid>\n")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 8)
	c.mu.Lock()
	req, found := c.requests[uint8(id)]
	c.mu.Unlock()
	if err != nil || !found {
		c.printf("No service request %s\n", args[0])
		return
	}
	if _, ok := c.do(ctx, service.Request{Op: service.OpRemoveServiceRequest, ServiceRequest: req}); ok {
		c.mu.Lock()
		delete(c.requests, uint8(id))
		c.mu.Unlock()
	}
}

func (c *Console) cmdListener(ctx context.Context, args []string) {
	reset := len(args) > 0 && strings.EqualFold(args[0], "off")
	if reply, ok := c.do(ctx, service.Request{Op: service.OpSetDialogListener, Reset: reset}); ok {
		c.printf("SET_DIALOG_LISTENER: %s\n", reply.Status)
	}
}

func (c *Console) cmdBrowse(ctx context.Context, args []string) {
	if len(args) == 0 {
		c.printf("Usage: browse <type> [seconds]\n")
		return
	}
	wait := 3 * time.Second
	if len(args) > 1 {
		secs, err := strconv.Atoi(args[1])
		if err != nil || secs <= 0 {
			c.printf("Invalid duration: %s\n", args[1])
			return
		}
		wait = time.Duration(secs) * time.Second
	}

	var iface string
	if reply, ok := c.do(ctx, service.Request{Op: service.OpRequestGroupInfo}); ok && reply.Group != nil {
		iface = reply.Group.Interface
	}

	bctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	found, err := discovery.Browse(bctx, iface, args[0])
	if err != nil {
		c.printf("Browse failed: %v\n", err)
	}
	if len(found) == 0 {
		c.printf("Nothing found\n")
		return
	}
	for _, f := range found {
		c.printf("  %s  %s:%d  %v\n", f.Instance, f.Host, f.Port, f.Addresses)
	}
}

func (c *Console) cmdStatus() {
	c.printf("State:   %s\n", c.svc.State())
	c.printf("Run:     %s\n", c.svc.RunID())
	c.printf("Session: %s\n", c.client.ID())
}

// receive prints messages addressed to the console session.
func (c *Console) receive(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.client.Messages():
			if !ok {
				return
			}
			c.handleMessage(msg)
		}
	}
}

func (c *Console) handleMessage(msg session.Message) {
	switch msg.Type {
	case session.MsgServiceResponse:
		if msg.Response != nil {
			c.printf("[SERVICE] %s\n", describeResponse(msg.Response))
		}
	case session.MsgConnectionRequested:
		var dev p2p.Device
		if msg.Device != nil {
			dev = *msg.Device
		}
		var cfg p2p.Config
		if msg.Config != nil {
			cfg = *msg.Config
		}
		c.PromptInvitation(dev, cfg)
	case session.MsgShowPinRequested:
		c.printf("\n[PIN] Show %s to the peer\n", msg.PIN)
	case session.MsgListenerAttached:
		c.printf("[LISTENER] attached\n")
	case session.MsgListenerDetached:
		c.printf("[LISTENER] detached: %s\n", msg.Reason)
	}
}

// handleEvent runs on the service event loop and only prints.
func (c *Console) handleEvent(event service.Event) {
	switch event.Type {
	case service.EventStateChanged:
		c.printf("[EVENT] P2P enabled=%t\n", event.Enabled)
	case service.EventDiscoveryChanged:
		c.printf("[EVENT] Discovery %s\n", onOff(event.Discovering))
	case service.EventConnectionEstablished:
		if event.Group != nil {
			c.printf("[EVENT] Connected via %s (%s)\n", event.Group.Interface, event.Info)
		}
	case service.EventConnectionChanged:
		if !event.Connected {
			c.printf("[EVENT] Disconnected\n")
		}
	case service.EventThisDeviceChanged:
		c.printf("[EVENT] This device: %s\n", event.Device)
	}
}

func onOff(b bool) string {
	if b {
		return "started"
	}
	return "stopped"
}
