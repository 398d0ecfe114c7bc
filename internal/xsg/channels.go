package xsg

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ginty-lab/ephus/internal/decode"
	"github.com/ginty-lab/ephus/internal/monitoring"
)

const (
	channelNamePrefix = "channelName_"
	tracePrefix       = "trace_"
)

// groupChannels pairs channelName_<n> and trace_<n> entries of a program's
// data section. It returns nil when the section is not a field record.
//
// Channels whose name is missing, empty or not text are named after
// fallback: the first such channel gets fallback itself, later ones
// fallback_<n>.
func groupChannels(section decode.Value, fallback string) Channels {
	m, ok := decode.AsMap(section)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var suffixes []string
	for _, key := range m.Keys() {
		_, suffix, ok := strings.Cut(key, "_")
		if !ok || seen[suffix] {
			continue
		}
		seen[suffix] = true
		suffixes = append(suffixes, suffix)
	}
	sortNatural(suffixes)

	out := make(Channels, len(suffixes))
	unnamed := 0
	for _, suffix := range suffixes {
		trace, ok := m.Get(tracePrefix + suffix)
		if !ok {
			continue
		}
		samples, ok := decode.AsFloats(trace)
		if !ok {
			monitoring.Debugf("xsg: %s%s is %s, skipping channel", tracePrefix, suffix, decode.TypeName(trace))
			continue
		}

		var name string
		if v, ok := m.Get(channelNamePrefix + suffix); ok {
			name, _ = decode.AsText(v)
			name = strings.TrimSpace(name)
		}
		if name == "" {
			name = fallback
			if unnamed > 0 {
				name = fallback + "_" + suffix
			}
			unnamed++
		}
		if _, dup := out[name]; dup {
			monitoring.Debugf("xsg: channel name %q repeated, keeping %s%s", name, tracePrefix, suffix)
		}
		out[name] = samples
	}
	return out
}

// sortNatural sorts strings so that decimal numbers compare by value,
// e.g. "2" before "10". Non-numeric strings sort after numbers.
func sortNatural(s []string) {
	slices.SortFunc(s, compareNatural)
}

func compareNatural(a, b string) int {
	x, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	y, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	switch {
	case errA == nil && errB == nil:
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
