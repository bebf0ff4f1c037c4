package netcfg

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	out   map[string]string
	block chan struct{}
}

func (f *fakeRunner) run(ctx context.Context, argv []string) ([]byte, error) {
	line := strings.Join(argv, " ")
	f.mu.Lock()
	f.calls = append(f.calls, line)
	block := f.block
	f.mu.Unlock()

	if block != nil && argv[0] == "udhcpc" {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[argv[0]]; err != nil {
		return nil, err
	}
	return []byte(f.out[argv[0]]), nil
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestStartDHCPServerExpandsPlaceholders(t *testing.T) {
	f := &fakeRunner{}
	c := NewCommandConfigurator(DefaultCommandConfig(), f.run, nil)

	require.NoError(t, c.StartDHCPServer("p2p-wlan0-0"))

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "ip addr add 192.168.49.1/24 dev p2p-wlan0-0", calls[0])
	assert.Contains(t, calls[1], "--dhcp-range=192.168.49.2,192.168.49.254,1h")
	assert.Contains(t, calls[1], "--interface=p2p-wlan0-0")
}

func TestSequenceStopsOnFailure(t *testing.T) {
	f := &fakeRunner{fail: map[string]error{"ip": errors.New("RTNETLINK answers: File exists")}}
	c := NewCommandConfigurator(DefaultCommandConfig(), f.run, nil)

	err := c.StartDHCPServer("p2p0")
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Len(t, f.Calls(), 1)
}

func TestTeardownRunsAllAndCombines(t *testing.T) {
	cfg := CommandConfig{
		DHCPServerStop: []Command{{"a"}, {"b"}, {"c"}},
	}
	f := &fakeRunner{fail: map[string]error{"a": errors.New("x"), "c": errors.New("y")}}
	c := NewCommandConfigurator(cfg, f.run, nil)

	err := c.StopDHCPServer("p2p0")
	require.Error(t, err)
	assert.Len(t, f.Calls(), 3)
	assert.Contains(t, err.Error(), "x")
	assert.Contains(t, err.Error(), "y")
}

func TestDHCPClientReportsServer(t *testing.T) {
	f := &fakeRunner{out: map[string]string{"udhcpc": "lease=192.168.49.17\nserver=192.168.49.1\n"}}
	c := NewCommandConfigurator(DefaultCommandConfig(), f.run, nil)

	results := make(chan Result, 1)
	require.NoError(t, c.StartDHCPClient("p2p0", func(r Result) { results <- r }))

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, ServerAddress, r.Server)
		assert.Equal(t, "p2p0", r.Interface)
	case <-time.After(time.Second):
		t.Fatal("no DHCP result")
	}
}

func TestDHCPClientWithoutServerLine(t *testing.T) {
	f := &fakeRunner{out: map[string]string{"udhcpc": "lease=192.168.49.17\n"}}
	c := NewCommandConfigurator(DefaultCommandConfig(), f.run, nil)

	results := make(chan Result, 1)
	require.NoError(t, c.StartDHCPClient("p2p0", func(r Result) { results <- r }))

	select {
	case r := <-results:
		assert.ErrorIs(t, r.Err, ErrNoServer)
	case <-time.After(time.Second):
		t.Fatal("no DHCP result")
	}
}

func TestDHCPClientStopSuppressesReport(t *testing.T) {
	f := &fakeRunner{block: make(chan struct{})}
	c := NewCommandConfigurator(DefaultCommandConfig(), f.run, nil)

	reported := make(chan Result, 1)
	require.NoError(t, c.StartDHCPClient("p2p0", func(r Result) { reported <- r }))
	assert.ErrorIs(t, c.StartDHCPClient("p2p0", func(Result) {}), ErrClientRunning)

	require.NoError(t, c.StopDHCPClient("p2p0"))

	select {
	case r := <-reported:
		t.Fatalf("unexpected report after stop: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	// The interface can be reused after stopping.
	close(f.block)
	require.NoError(t, c.StartDHCPClient("p2p0", func(r Result) { reported <- r }))
	select {
	case <-reported:
	case <-time.After(time.Second):
		t.Fatal("no report from restarted client")
	}
}

func TestParseServer(t *testing.T) {
	tests := []struct {
		out     string
		want    string
		wantErr bool
	}{
		{"server=192.168.49.1", "192.168.49.1", false},
		{"  server=10.0.0.1  \n", "10.0.0.1", false},
		{"server=bogus", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseServer([]byte(tt.out))
		if (err != nil) != tt.wantErr {
			t.Errorf("parseServer(%q) error = %v, wantErr %v", tt.out, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("parseServer(%q) = %v, want %v", tt.out, got, tt.want)
		}
	}
}
