package config

import (
	"fmt"
	"os"
	"strings"
)

// Pref is a single browser preference.
type Pref struct {
	Key   string
	Value interface{}
}

// ProxyPrefs route the browser through the router's local HTTP proxy and close
// the usual leaks around it.
var ProxyPrefs = []Pref{
	{"network.proxy.http", "127.0.0.1"},
	{"network.proxy.http_port", 4444},
	{"network.proxy.share_proxy_settings", false},
	{"network.proxy.socks", ""},
	{"network.proxy.socks_port", 0},
	{"network.proxy.socks_version", 5},
	{"network.proxy.ssl", "127.0.0.1"},
	{"network.proxy.ssl_port", 4444},
	{"network.proxy.type", 1},
	{"network.proxy.no_proxies_on", "localhost,127.0.0.1"},
	{"network.proxy.allow_hijacking_localhost", true},
	{"network.proxy.socks_remote_dns", false},
	{"media.peerconnection.ice.proxy_only", true},
	{"keyword.enabled", false},
}

// FormatPref renders a user_pref line.
func FormatPref(p Pref) string {
	var value string
	switch v := p.Value.(type) {
	case string:
		value = fmt.Sprintf("%q", v)
	case bool:
		value = fmt.Sprintf("%t", v)
	default:
		value = fmt.Sprint(v)
	}
	return fmt.Sprintf("user_pref(%q, %s);", p.Key, value)
}

// prefKey returns the key of a user_pref line, or "" for any other line.
func prefKey(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, `user_pref("`) {
		return ""
	}
	rest := strings.TrimPrefix(trimmed, `user_pref("`)
	key, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return ""
	}
	return key
}

// MergePrefs rewrites the user_pref lines of content whose keys appear in prefs,
// keeps every other line, and appends the prefs that were missing.
func MergePrefs(content string, prefs []Pref) string {
	desired := make(map[string]Pref, len(prefs))
	for _, p := range prefs {
		desired[p.Key] = p
	}

	var lines []string
	if content != "" {
		lines = strings.Split(strings.TrimRight(content, "\n"), "\n")
	}

	seen := make(map[string]bool, len(prefs))
	out := make([]string, 0, len(lines)+len(prefs))
	for _, line := range lines {
		if p, ok := desired[prefKey(line)]; ok {
			out = append(out, FormatPref(p))
			seen[p.Key] = true
			continue
		}
		out = append(out, line)
	}
	for _, p := range prefs {
		if !seen[p.Key] {
			out = append(out, FormatPref(p))
		}
	}
	return strings.Join(out, "\n") + "\n"
}

// EnsurePrefs merges prefs into the user.js at path, creating it if needed.
// It reports whether the file changed.
func EnsurePrefs(path string, prefs []Pref) (bool, error) {
	current, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	merged := MergePrefs(string(current), prefs)
	if merged == string(current) {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(merged), 0644); err != nil {
		return false, err
	}
	return true, nil
}
