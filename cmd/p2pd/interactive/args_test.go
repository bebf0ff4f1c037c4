package interactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p2pcoord/p2pcoord-go/pkg/nsd"
	"github.com/p2pcoord/p2pcoord-go/pkg/p2p"
)

func TestParseConnect(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		wps    p2p.WpsInfo
		intent int
	}{
		{"default pbc", []string{"02:00:00:00:00:01"}, p2p.WpsInfo{Setup: p2p.WpsPBC}, -1},
		{"display", []string{"02:00:00:00:00:01", "display"}, p2p.WpsInfo{Setup: p2p.WpsDisplay}, -1},
		{"display with pin", []string{"02:00:00:00:00:01", "display", "12345670"},
			p2p.WpsInfo{Setup: p2p.WpsDisplay, PIN: "12345670"}, -1},
		{"keypad and intent", []string{"02:00:00:00:00:01", "keypad", "1234", "intent", "15"},
			p2p.WpsInfo{Setup: p2p.WpsKeypad, PIN: "1234"}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConnect(tt.args)
			require.NoError(t, err)
			assert.Equal(t, "02:00:00:00:00:01", cfg.DeviceAddress)
			assert.Equal(t, tt.wps, cfg.Wps)
			if cfg.GroupOwnerIntent != tt.intent {
				t.Errorf("GroupOwnerIntent = %d, want %d", cfg.GroupOwnerIntent, tt.intent)
			}
		})
	}
}

func TestParseConnectNormalizesAddress(t *testing.T) {
	cfg, err := parseConnect([]string{"02:00:00:00:00:AB"})
	require.NoError(t, err)
	assert.Equal(t, "02:00:00:00:00:ab", cfg.DeviceAddress)
}

func TestParseConnectErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		usage bool
	}{
		{"no args", nil, true},
		{"bad address", []string{"peer"}, false},
		{"keypad without pin", []string{"02:00:00:00:00:01", "keypad"}, true},
		{"keypad with word", []string{"02:00:00:00:00:01", "keypad", "abc"}, true},
		{"intent out of range", []string{"02:00:00:00:00:01", "intent", "16"}, false},
		{"unknown option", []string{"02:00:00:00:00:01", "nfc"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConnect(tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.usage, errors.Is(err, errUsage))
		})
	}
}

func TestParseServiceInfo(t *testing.T) {
	info, err := parseServiceInfo([]string{"bonjour", "Printer", "_ipp._tcp", "port=631", "rp=ipp"})
	require.NoError(t, err)
	assert.Equal(t, nsd.ProtocolBonjour, info.Protocol)
	assert.Equal(t, "Printer", info.Instance)
	assert.Equal(t, map[string]string{"port": "631", "rp": "ipp"}, info.TXT)

	info, err = parseServiceInfo([]string{"upnp", "6859dede-8574-59ab-9332-123456789012", "urn:schemas-upnp-org:device:MediaRenderer:1"})
	require.NoError(t, err)
	assert.Equal(t, nsd.ProtocolUPnP, info.Protocol)
	assert.Len(t, info.Entries, 3)

	_, err = parseServiceInfo([]string{"bonjour", "Printer", "_ipp._tcp", "noequals"})
	assert.Error(t, err)
	_, err = parseServiceInfo([]string{"vendor", "a", "b"})
	assert.Error(t, err)
	_, err = parseServiceInfo([]string{"bonjour"})
	assert.ErrorIs(t, err, errUsage)
}

func TestParseServiceRequest(t *testing.T) {
	tests := []struct {
		args     []string
		protocol nsd.Protocol
		query    bool
	}{
		{nil, nsd.ProtocolAll, false},
		{[]string{"all"}, nsd.ProtocolAll, false},
		{[]string{"bonjour"}, nsd.ProtocolBonjour, false},
		{[]string{"bonjour", "_ipp._tcp"}, nsd.ProtocolBonjour, true},
		{[]string{"bonjour", "_ipp._tcp", "Printer"}, nsd.ProtocolBonjour, true},
		{[]string{"upnp"}, nsd.ProtocolUPnP, false},
		{[]string{"upnp", "ssdp:all"}, nsd.ProtocolUPnP, true},
	}
	for _, tt := range tests {
		req, err := parseServiceRequest(tt.args)
		require.NoError(t, err, "args %v", tt.args)
		if req.Protocol != tt.protocol {
			t.Errorf("parseServiceRequest(%v).Protocol = %v, want %v", tt.args, req.Protocol, tt.protocol)
		}
		assert.Equal(t, tt.query, req.Query != "", "args %v", tt.args)
	}

	_, err := parseServiceRequest([]string{"ws-discovery"})
	assert.Error(t, err)
}

func TestDescribeResponseStatus(t *testing.T) {
	r := &nsd.ServiceResponse{
		Protocol: nsd.ProtocolBonjour,
		Status:   nsd.StatusBadRequest,
		Device:   p2p.Device{Address: "02:00:00:00:00:01", Name: "tv"},
	}
	assert.Equal(t, "tv [02:00:00:00:00:01] "+nsd.ProtocolBonjour.String()+": "+nsd.StatusBadRequest.String(), describeResponse(r))
}
