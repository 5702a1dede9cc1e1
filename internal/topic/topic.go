// Package topic implements MQTT topic-filter matching and validation
// (spec.md §4.2): matching a subscription filter against a concrete
// publish topic, and validating both filters and publish topics for
// well-formedness and wildcard placement.
package topic

import "strings"

// MaxNameSize is the maximum byte length of a publish topic
// (spec.md §3 invariant 7).
const MaxNameSize = 256

// MaxFilterSize is the maximum byte length of a subscribe filter.
const MaxFilterSize = 65535

// Matches reports whether topic satisfies filter, per MQTT 3.1.1
// section 4.7: '+' matches exactly one level, '#' as the final level
// matches the remainder including zero levels, and "prefix/#" also
// matches "prefix" itself. A single pass over level boundaries is
// used; no level slice is materialized for matching (spec.md §9).
func Matches(filter, topicName string) bool {
	for {
		fLevel, fRest, fHasMore := cutLevel(filter)
		if fLevel == "#" {
			return true
		}

		tLevel, tRest, tHasMore := cutLevel(topicName)
		if fLevel != "+" && fLevel != tLevel {
			return false
		}

		if !fHasMore && !tHasMore {
			return true
		}
		if !tHasMore {
			// topic exhausted but the filter continues: only a
			// trailing "/#" may still match ("prefix/#" vs "prefix").
			return fRest == "#"
		}
		if !fHasMore {
			return false
		}

		filter, topicName = fRest, tRest
	}
}

// cutLevel splits off the first '/'-delimited level of s, returning
// that level, the remainder, and whether a remainder exists.
func cutLevel(s string) (level, rest string, hasMore bool) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

// IsValidPublishTopic reports whether topic is a legal PUBLISH topic
// name: non-empty, within MaxNameSize, and free of '+'/'#'.
func IsValidPublishTopic(topicName string) bool {
	if topicName == "" || len(topicName) > MaxNameSize {
		return false
	}
	return !strings.ContainsAny(topicName, "+#")
}

// IsValidTopicFilter reports whether filter is a legal SUBSCRIBE
// filter: non-empty, within MaxFilterSize, and using '#'/'+' only as
// whole levels, with '#' only as the final level.
func IsValidTopicFilter(filter string) bool {
	if filter == "" || len(filter) > MaxFilterSize {
		return false
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && level != "#" {
			return false
		}
		if level == "#" && i != len(levels)-1 {
			return false
		}
		if strings.Contains(level, "+") && level != "+" {
			return false
		}
	}
	return true
}
