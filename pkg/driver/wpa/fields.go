package wpa

import (
	"strconv"
	"strings"
)

// splitEvent splits an event line into positional tokens and key=value
// fields. Values may be quoted with ' or ".
func splitEvent(line string) (tokens []string, fields map[string]string) {
	fields = make(map[string]string)
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		var quote byte
		for i < len(line) {
			ch := line[i]
			if quote != 0 {
				if ch == quote {
					quote = 0
				}
			} else if ch == '\'' || ch == '"' {
				quote = ch
			} else if ch == ' ' {
				break
			}
			i++
		}
		tok := line[start:i]
		if k, v, ok := strings.Cut(tok, "="); ok && k != "" && !strings.ContainsAny(k, "'\"") {
			fields[k] = unquote(v)
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, fields
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// stripPrefixes removes the "<level>" priority and "IFNAME=x " prefixes.
func stripPrefixes(line string) string {
	for {
		switch {
		case strings.HasPrefix(line, "<"):
			i := strings.IndexByte(line, '>')
			if i < 0 {
				return line
			}
			line = line[i+1:]
		case strings.HasPrefix(line, "IFNAME="):
			i := strings.IndexByte(line, ' ')
			if i < 0 {
				return ""
			}
			line = line[i+1:]
		default:
			return line
		}
	}
}

func parseHex(s string) uint64 {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0
	}
	return v
}

// lineValue returns the value of key in a multi-line "key=value" reply.
func lineValue(reply, key string) (string, bool) {
	for _, line := range strings.Split(reply, "\n") {
		if k, v, ok := strings.Cut(strings.TrimSpace(line), "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}
