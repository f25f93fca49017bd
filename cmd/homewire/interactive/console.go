// Package interactive provides the operator console for homewire.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/homewire/homewire-go/pkg/discovery"
	"github.com/homewire/homewire-go/pkg/endpoints"
	"github.com/homewire/homewire-go/pkg/hub"
)

// DefaultDiscoverTimeout bounds the discover command.
const DefaultDiscoverTimeout = 3 * time.Second

// Config configures a Console.
type Config struct {
	// Browser is used by the discover command. Nil disables it.
	Browser discovery.Browser

	// CommandTimeout bounds each device command. Zero means no extra bound
	// beyond the service timeouts.
	CommandTimeout time.Duration
}

// Console is the interactive command loop.
type Console struct {
	hub    *hub.Hub
	config Config
	rl     *readline.Instance
	out    io.Writer

	mu          sync.Mutex
	cancelWatch func()
}

// New creates a console reading from the terminal.
func New(h *hub.Hub, cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "homewire> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(h),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(h, cfg, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(h *hub.Hub, cfg Config, out io.Writer) *Console {
	return &Console{hub: h, config: cfg, out: out}
}

func completer(h *hub.Hub) readline.AutoCompleter {
	names := func(string) []string { return h.Names() }
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("status"),
		readline.PcItem("relay", readline.PcItemDynamic(names)),
		readline.PcItem("relay-get", readline.PcItemDynamic(names)),
		readline.PcItem("color", readline.PcItemDynamic(names)),
		readline.PcItem("brightness", readline.PcItemDynamic(names)),
		readline.PcItem("temp", readline.PcItemDynamic(names)),
		readline.PcItem("humidity", readline.PcItemDynamic(names)),
		readline.PcItem("readings", readline.PcItemDynamic(names)),
		readline.PcItem("version", readline.PcItemDynamic(names)),
		readline.PcItem("reconnect", readline.PcItemDynamic(names)),
		readline.PcItem("watch", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("discover"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF or ctx is done. cancel is called on
// quit and EOF.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.stopWatch()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(ctx, line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It reports whether the console should
// exit.
func (c *Console) Execute(ctx context.Context, line string) (quit bool) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	if c.config.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CommandTimeout)
		defer cancel()
	}

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "status", "s":
		c.cmdStatus()
	case "relay":
		c.cmdRelay(ctx, args)
	case "relay-get":
		c.cmdRelayGet(ctx, args)
	case "color":
		c.cmdColor(ctx, args)
	case "brightness":
		c.cmdBrightness(ctx, args)
	case "temp":
		c.cmdTemp(ctx, args)
	case "humidity":
		c.cmdHumidity(ctx, args)
	case "readings":
		c.cmdReadings(ctx, args)
	case "version":
		c.cmdVersion(ctx, args)
	case "reconnect":
		c.cmdReconnect(ctx, args)
	case "watch":
		c.cmdWatch(args)
	case "discover":
		c.cmdDiscover(ctx, args)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
homewire Commands:
  Endpoints:
    list                          - List configured endpoints
    status                        - Show connection state of every endpoint
    reconnect <name>              - Force a transport reconnect

  Relay boards:
    relay <board> <ch> on|off     - Switch a relay
    relay-get <board> <ch>        - Read a relay (cached)

  LED drivers:
    color <led> [#rrggbb]         - Read or set the color
    brightness <led> <0-255>      - Set the brightness

  Sensor nodes:
    temp <sensor>                 - Read the temperature
    humidity <sensor>             - Read the humidity
    readings <sensor>             - Read all values at once

  Gateways:
    version <gateway>             - Read the firmware version

  Monitoring:
    watch [on|off]                - Print events and online changes
    discover [seconds]            - Browse the network for endpoints

  General:
    help                          - Show this help
    quit                          - Exit`)
}

func (c *Console) cmdList() {
	names := c.hub.Names()
	if len(names) == 0 {
		fmt.Fprintln(c.out, "No endpoints configured")
		return
	}
	fmt.Fprintf(c.out, "\nEndpoints (%d):\n", len(names))
	for _, name := range names {
		kind, _ := c.hub.Kind(name)
		fmt.Fprintf(c.out, "  %-20s %s\n", name, kind)
	}
}

func (c *Console) cmdStatus() {
	fmt.Fprintf(c.out, "\n%-20s %-12s %-22s %-13s %-7s %s\n", "NAME", "KIND", "TRANSPORT", "STATE", "ONLINE", "PENDING")
	for _, st := range c.hub.Status() {
		fmt.Fprintf(c.out, "%-20s %-12s %-22s %-13s %-7s %d\n",
			st.Name, st.Kind, st.Transport, st.State, yesNo(st.Online), st.Pending)
	}
}

func (c *Console) cmdRelay(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.out, "Usage: relay <board> <channel> on|off")
		return
	}
	board, err := c.hub.RelayBoard(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	ch, err := parseUint8(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid channel: %v\n", err)
		return
	}
	on, err := parseOnOff(args[2])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid state: %v\n", err)
		return
	}
	if err := board.SetRelay(ctx, ch, on); err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Console) cmdRelayGet(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: relay-get <board> <channel>")
		return
	}
	board, err := c.hub.RelayBoard(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	ch, err := parseUint8(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid channel: %v\n", err)
		return
	}
	on, err := board.Relay(ctx, ch)
	if err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s/%d = %s\n", args[0], ch, onOff(on))
}

func (c *Console) cmdColor(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: color <led> [#rrggbb]")
		return
	}
	led, err := c.hub.LEDDriver(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	if len(args) == 1 {
		col, err := led.Color(ctx)
		if err != nil {
			fmt.Fprintf(c.out, "Failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "%s = %s\n", args[0], col)
		return
	}

	col, err := endpoints.ParseColor(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid color: %v\n", err)
		return
	}
	if err := led.SetColor(ctx, col); err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Console) cmdBrightness(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: brightness <led> <0-255>")
		return
	}
	led, err := c.hub.LEDDriver(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	level, err := parseUint8(args[1])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid level: %v\n", err)
		return
	}
	if err := led.SetBrightness(ctx, level); err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Console) cmdTemp(ctx context.Context, args []string) {
	node, ok := c.sensor("temp", args)
	if !ok {
		return
	}
	v, err := node.Temperature(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s temperature = %.2f °C\n", args[0], v)
}

func (c *Console) cmdHumidity(ctx context.Context, args []string) {
	node, ok := c.sensor("humidity", args)
	if !ok {
		return
	}
	v, err := node.Humidity(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s humidity = %.1f %%\n", args[0], v)
}

func (c *Console) cmdReadings(ctx context.Context, args []string) {
	node, ok := c.sensor("readings", args)
	if !ok {
		return
	}
	r, err := node.Readings(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "\n%s readings:\n", args[0])
	fmt.Fprintf(c.out, "  Temperature: %.2f °C\n", r.Celsius())
	fmt.Fprintf(c.out, "  Humidity:    %.1f %%\n", r.Percent())
	fmt.Fprintf(c.out, "  Uptime:      %s\n", r.UptimeDuration())
}

func (c *Console) sensor(cmd string, args []string) (*endpoints.SensorNode, bool) {
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s <sensor>\n", cmd)
		return nil, false
	}
	node, err := c.hub.SensorNode(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return nil, false
	}
	return node, true
}

func (c *Console) cmdVersion(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: version <gateway>")
		return
	}
	gw, err := c.hub.Gateway(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	v, err := gw.Version(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s firmware %s\n", args[0], v)
}

func (c *Console) cmdReconnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: reconnect <name>")
		return
	}
	d, err := c.hub.Device(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if err := d.Transport().Reconnect(ctx); err != nil {
		fmt.Fprintf(c.out, "Reconnect failed (will retry): %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Console) cmdWatch(args []string) {
	on := true
	if len(args) > 0 {
		v, err := parseOnOff(args[0])
		if err != nil {
			fmt.Fprintln(c.out, "Usage: watch [on|off]")
			return
		}
		on = v
	}

	if !on {
		if c.stopWatch() {
			fmt.Fprintln(c.out, "Watch stopped")
		} else {
			fmt.Fprintln(c.out, "Not watching")
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelWatch != nil {
		fmt.Fprintln(c.out, "Already watching")
		return
	}
	c.cancelWatch = c.hub.Subscribe(func(n hub.Notification) {
		fmt.Fprintf(c.out, "[EVENT] %s %s: %s\n", n.Endpoint, n.Event, formatValue(n.Value))
	})
	fmt.Fprintln(c.out, "Watching events (watch off to stop)")
}

func (c *Console) stopWatch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelWatch == nil {
		return false
	}
	c.cancelWatch()
	c.cancelWatch = nil
	return true
}

func (c *Console) cmdDiscover(ctx context.Context, args []string) {
	if c.config.Browser == nil {
		fmt.Fprintln(c.out, "Discovery not available")
		return
	}
	timeout := DefaultDiscoverTimeout
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			fmt.Fprintln(c.out, "Usage: discover [seconds]")
			return
		}
		timeout = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries, err := c.config.Browser.Browse(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Discovery failed: %v\n", err)
		return
	}

	found := make(map[string]discovery.Entry)
	for e := range entries {
		found[e.Instance] = e
	}
	if len(found) == 0 {
		fmt.Fprintln(c.out, "No endpoints found")
		return
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(c.out, "\nDiscovered (%d):\n", len(found))
	for _, name := range names {
		e := found[name]
		fmt.Fprintf(c.out, "  %-20s %-12s %s:%d fw=%s\n", name, e.Kind(), e.PreferredIP(), e.Port, e.Firmware())
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case bool:
		return onOff(x)
	case []byte:
		return fmt.Sprintf("% x", x)
	case endpoints.ChannelState:
		return fmt.Sprintf("channel %d %s", x.Channel, onOff(x.On))
	default:
		return fmt.Sprintf("%v", x)
	}
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
