package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerTransport.String(), "TRANSPORT"},
		{LayerDriver.String(), "DRIVER"},
		{LayerService.String(), "SERVICE"},
		{CategoryRequest.String(), "REQUEST"},
		{CategoryError.String(), "ERROR"},
		{StateEntityConnectivity.String(), "CONNECTIVITY"},
		{StateEntity(7).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEncodeDecodeDriverEvent(t *testing.T) {
	status := 2
	in := Event{
		Timestamp:    time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC),
		ConnectionID: "run-1",
		Direction:    DirectionIn,
		Layer:        LayerDriver,
		Category:     CategoryMessage,
		PeerAddress:  "aa:bb:cc:dd:ee:ff",
		Driver:       &DriverEventData{Type: "GO_NEGOTIATION_FAILURE", Status: &status},
	}

	data, err := EncodeEvent(in)
	require.NoError(t, err)

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", out.PeerAddress)
	require.NotNil(t, out.Driver)
	require.NotNil(t, out.Driver.Status)
	assert.Equal(t, 2, *out.Driver.Status)
	assert.Nil(t, out.Frame)
}

func TestDecodeEventGarbage(t *testing.T) {
	_, err := DecodeEvent([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestFileLoggerRoundTripWithReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.plog")

	fl, err := NewFileLogger(path)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fl.Log(Event{Timestamp: base, ConnectionID: "a", SessionID: "s1", Category: CategoryRequest,
		Request: &RequestEvent{Op: "DISCOVER_PEERS"}})
	fl.Log(Event{Timestamp: base.Add(time.Second), ConnectionID: "a", Category: CategoryState,
		StateChange: &StateChangeEvent{NewState: "Inactive"}})
	fl.Log(Event{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", SessionID: "s1", Category: CategoryRequest,
		Request: &RequestEvent{Op: "CONNECT"}})
	assert.Equal(t, 3, fl.Written())
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())

	r, err := NewFilteredReader(path, Filter{SessionID: "s1"})
	require.NoError(t, err)
	defer r.Close()

	var ops []string
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ops = append(ops, e.Request.Op)
	}
	assert.Equal(t, []string{"DISCOVER_PEERS", "CONNECT"}, ops)
}

func TestFileLoggerTruncatesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.plog")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	fl.SetMaxFrameData(4)

	data := []byte("P2P-DEVICE-FOUND 02:00:00:00:00:01")
	fl.Log(Event{Frame: &FrameEvent{Size: len(data), Data: data}})
	require.NoError(t, fl.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	e, err := DecodeEvent(raw)
	require.NoError(t, err)
	require.NotNil(t, e.Frame)
	assert.Equal(t, "P2P-", string(e.Frame.Data))
	assert.True(t, e.Frame.Truncated)
	assert.Equal(t, len(data), e.Frame.Size)
}

func TestDecodeKeepsRawSupplicantBytes(t *testing.T) {
	// SSIDs and device names are octets, not necessarily UTF-8.
	in := Event{
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Category:    CategoryState,
		StateChange: &StateChangeEvent{NewState: "DIRECT-xy-caf\xe9"},
	}
	data, err := EncodeEvent(in)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte{0x01, 0xc0}), "timestamp carries tag 0")

	out, err := DecodeEvent(data)
	require.NoError(t, err)
	require.NotNil(t, out.StateChange)
	assert.Equal(t, "DIRECT-xy-caf\xe9", out.StateChange.NewState)
}

func TestReaderStopsAtTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.plog")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	fl.Log(Event{ConnectionID: "a", Category: CategoryState, StateChange: &StateChangeEvent{NewState: "Inactive"}})
	require.NoError(t, fl.Close())

	partial, err := EncodeEvent(Event{ConnectionID: "a", Category: CategoryState,
		StateChange: &StateChangeEvent{NewState: "GroupNegotiation"}})
	require.NoError(t, err)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write(partial[:len(partial)/2])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "Inactive", e.StateChange.NewState)
	assert.False(t, r.Truncated())

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	if !r.Truncated() {
		t.Errorf("Truncated() = false, want true")
	}
}

func TestFileLoggerIgnoresAfterClose(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "x.plog"))
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	fl.Log(Event{})
	if fl.Written() != 0 {
		t.Errorf("Written() = %d, want 0", fl.Written())
	}
}

func TestFilterTimeWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	layer := LayerDriver
	f := Filter{TimeStart: &start, TimeEnd: &end, Layer: &layer}

	assert.True(t, f.Matches(Event{Timestamp: start, Layer: LayerDriver}))
	assert.False(t, f.Matches(Event{Timestamp: end, Layer: LayerDriver}))
	assert.False(t, f.Matches(Event{Timestamp: start.Add(-time.Nanosecond), Layer: LayerDriver}))
	assert.False(t, f.Matches(Event{Timestamp: start, Layer: LayerService}))
	assert.False(t, (&Filter{PeerAddress: "x"}).Matches(Event{PeerAddress: "y"}))
}

func TestMultiLoggerSkipsNil(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)
	assert.Equal(t, 2, m.Len())

	m.Log(Event{ConnectionID: "x"})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	c := &captureLogger{}
	assert.Same(t, c, OrNoop(c))
}

func TestSlogAdapterStateChange(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(Event{
		ConnectionID: "run-9",
		Layer:        LayerService,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityMachine,
			OldState: "Inactive",
			NewState: "GroupNegotiation",
			Reason:   "CONNECT",
		},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "protocol", entry["msg"])
	assert.Equal(t, "SERVICE", entry["layer"])
	assert.Equal(t, "Inactive", entry["old_state"])
	assert.Equal(t, "GroupNegotiation", entry["new_state"])
	assert.Equal(t, "CONNECT", entry["reason"])
}

func TestSlogAdapterSilentAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	NewSlogAdapter(logger).Log(Event{Frame: &FrameEvent{Size: 1, Data: []byte("x")}})
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestTracerStampsEvents(t *testing.T) {
	clk := clock.NewMock()
	c := &captureLogger{}
	tr := NewTracer(c, clk)

	start := clk.Now()
	tr.Request("s1", "CONNECT")
	clk.Add(250 * time.Millisecond)
	tr.Reply("s1", "CONNECT", "ACCEPTED", "", start)
	tr.StateChange(StateEntityMachine, "Inactive", "GroupNegotiation", "")
	tr.PeerState("02:00:00:00:00:01", "AVAILABLE", "INVITED")
	tr.Driver("GROUP_STARTED", "", "p2p-wlan0-0", nil)
	tr.Error(LayerDriver, "P2P_FIND", errors.New("FAIL"))
	tr.Error(LayerDriver, "P2P_FIND", nil)

	require.Len(t, c.events, 6)
	for _, e := range c.events {
		assert.Equal(t, tr.RunID(), e.ConnectionID)
	}
	assert.Equal(t, DirectionIn, c.events[0].Direction)
	require.NotNil(t, c.events[1].Request.ProcessingTime)
	assert.Equal(t, 250*time.Millisecond, *c.events[1].Request.ProcessingTime)
	assert.Equal(t, StateEntityPeer, c.events[3].StateChange.Entity)
	assert.Equal(t, LayerDriver, c.events[4].Layer)
	assert.Equal(t, "FAIL", c.events[5].Error.Message)
	assert.Equal(t, LayerDriver, c.events[5].Error.Layer)
}

func TestNewTracerNilLogger(t *testing.T) {
	tr := NewTracer(nil, nil)
	tr.StateChange(StateEntityMachine, "", "P2pDisabled", "")
	assert.NotEmpty(t, tr.RunID())
}
