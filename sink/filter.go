package sink

import (
	"github.com/philipp01105/lumber/core"
)

// Filter is the per-sink sub-filter. The zero Filter admits everything.
type Filter struct {
	// Level is a threshold checked as Level&flag != 0 (default: LevelAll)
	Level *core.Level
	// Flags restricts the sink to these classes when non-zero
	Flags core.Flag
	// Contexts admits only these context codes when non-empty
	Contexts []int
	// ExcludeContexts rejects these context codes
	ExcludeContexts []int
	// Match is an additional predicate, e.g. a CELFilter
	Match Matcher
}

// MinLevel returns a Filter with only a level threshold
func MinLevel(level core.Level) Filter {
	return Filter{Level: &level}
}

// Allows reports whether msg passes every configured condition
func (f Filter) Allows(msg *core.Message) bool {
	if f.Level != nil && !f.Level.Allows(msg.Flag()) {
		return false
	}
	if f.Flags != 0 && f.Flags&msg.Flag() == 0 {
		return false
	}
	if len(f.Contexts) > 0 && !containsInt(f.Contexts, msg.Context()) {
		return false
	}
	if containsInt(f.ExcludeContexts, msg.Context()) {
		return false
	}
	if f.Match != nil && !f.Match.Match(msg) {
		return false
	}
	return true
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
