// Package featureflags evaluates FEATURE_FLAGS rollouts such as
// "domain_events=on,avatar_webp=25%".
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// DomainEvents publishes post, follow and message events to Kafka.
	DomainEvents = "domain_events"
	// AvatarWebP encodes edited profile pictures as WebP for the rollout cohort.
	AvatarWebP = "avatar_webp"
)

type rule struct {
	raw     string
	on      bool
	percent int // -1 when the rule is a plain switch
}

// Set holds parsed flag rules. A nil Set has every flag off.
type Set struct {
	rules map[string]rule
}

// Parse reads a comma separated key=value list. Malformed entries are skipped.
func Parse(raw string) *Set {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[key] = r
		}
	}
	return &Set{rules: rules}
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, on: true, percent: -1}, true
	case "off", "false", "0":
		return rule{raw: value, percent: -1}, true
	}
	pct, found := strings.CutSuffix(value, "%")
	if !found {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(n, 0), 100)}, true
}

// On reports whether a flag is switched on for everyone. Percentage
// rollouts only count when they are at 100%.
func (s *Set) On(name string) bool {
	return s.Enabled(name, 0)
}

// Enabled evaluates name for userID. Percentage rollouts bucket users
// deterministically and never include the anonymous user 0 below 100%.
func (s *Set) Enabled(name string, userID uint) bool {
	if s == nil {
		return false
	}
	r, ok := s.rules[normalize(name)]
	if !ok {
		return false
	}
	if r.percent < 0 {
		return r.on
	}
	switch {
	case r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// Names lists configured flags in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.rules))
	for k := range s.rules {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Raw returns the configured value of each flag.
func (s *Set) Raw() map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	for k, r := range s.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag for one user.
func (s *Set) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	for _, name := range s.Names() {
		out[name] = s.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
