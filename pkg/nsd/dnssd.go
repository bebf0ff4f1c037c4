package nsd

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DNS record types used by P2P Bonjour discovery.
const (
	DNSTypePTR uint16 = 12
	DNSTypeTXT uint16 = 16
)

const bonjourVersion = 0x01

// Compression pointers into the virtual packet the supplicant prepends
// to Bonjour payloads.
var dnsPointers = map[string]string{
	"_tcp.local.": "c00c",
	"local.":      "c011",
	"_udp.local.": "c01c",
}

// compressDNSName encodes a dot-terminated DNS name as hex labels,
// substituting the well-known suffix pointers.
func compressDNSName(name string) string {
	var sb strings.Builder
	for {
		if ptr, ok := dnsPointers[name]; ok {
			sb.WriteString(ptr)
			break
		}
		i := strings.IndexByte(name, '.')
		if i < 0 {
			if len(name) > 0 {
				fmt.Fprintf(&sb, "%02x", len(name))
				sb.WriteString(hex.EncodeToString([]byte(name)))
			}
			sb.WriteString("00")
			break
		}
		label := name[:i]
		name = name[i+1:]
		fmt.Fprintf(&sb, "%02x", len(label))
		sb.WriteString(hex.EncodeToString([]byte(label)))
	}
	return strings.ToLower(sb.String())
}

// dnsQuery builds the hex query part (name, type, version) for a record.
func dnsQuery(name string, dnsType uint16) string {
	if dnsType == DNSTypeTXT {
		name = strings.ToLower(name)
	}
	return fmt.Sprintf("%s%04x%02x", compressDNSName(name), dnsType, bonjourVersion)
}

// txtRecordBytes encodes key=value pairs as DNS TXT strings in key order.
func txtRecordBytes(txt map[string]string) []byte {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []byte
	for _, k := range keys {
		entry := k
		if v := txt[k]; v != "" {
			entry += "=" + v
		}
		if len(entry) > 255 {
			entry = entry[:255]
		}
		out = append(out, byte(len(entry)))
		out = append(out, entry...)
	}
	return out
}

// parseTXTRecord decodes DNS TXT strings into key/value pairs.
func parseTXTRecord(b []byte) map[string]string {
	txt := make(map[string]string)
	for len(b) > 0 {
		n := int(b[0])
		b = b[1:]
		if n == 0 {
			continue
		}
		if n > len(b) {
			break
		}
		entry := string(b[:n])
		b = b[n:]
		if k, v, ok := strings.Cut(entry, "="); ok {
			txt[k] = v
		} else {
			txt[entry] = ""
		}
	}
	return txt
}

// readDNSName decodes a label sequence that may end in one of the
// virtual-packet pointers. queryName resolves pointer 0x27, which refers
// back to the name of the record being answered.
func readDNSName(b []byte, queryName string) (string, []byte, error) {
	var sb strings.Builder
	for {
		if len(b) == 0 {
			return "", nil, ErrShortTLV
		}
		n := int(b[0])
		switch {
		case n == 0:
			return sb.String(), b[1:], nil
		case n&0xc0 == 0xc0:
			if len(b) < 2 {
				return "", nil, ErrShortTLV
			}
			suffix, ok := pointerName(b[1], queryName)
			if !ok {
				return "", nil, fmt.Errorf("unknown dns pointer 0x%02x", b[1])
			}
			sb.WriteString(suffix)
			return sb.String(), b[2:], nil
		}
		if len(b) < n+1 {
			return "", nil, ErrShortTLV
		}
		sb.Write(b[1 : n+1])
		sb.WriteByte('.')
		b = b[n+1:]
	}
}

func pointerName(off byte, queryName string) (string, bool) {
	switch off {
	case 0x0c:
		return "_tcp.local.", true
	case 0x11:
		return "local.", true
	case 0x1c:
		return "_udp.local.", true
	case 0x27:
		return queryName, queryName != ""
	}
	return "", false
}
