package messaging

import "strings"

// StringFilter constrains a single named attribute. A value passes when it
// avoids every Deny entry and, if Allow or Prefix are set, matches at least
// one of them. An absent attribute fails the filter unless Optional is set.
type StringFilter struct {
	// Allow lists exact values that match.
	Allow []string

	// Deny lists exact values that never match.
	Deny []string

	// Prefix lists value prefixes that match.
	Prefix []string

	// Optional makes the filter pass when the attribute is absent from the
	// message. When the attribute is present it is still constrained.
	Optional bool
}

func (f StringFilter) matches(value string, present bool) bool {
	if !present {
		return f.Optional
	}
	for _, d := range f.Deny {
		if value == d {
			return false
		}
	}
	if len(f.Allow) == 0 && len(f.Prefix) == 0 {
		return true
	}
	for _, a := range f.Allow {
		if value == a {
			return true
		}
	}
	for _, p := range f.Prefix {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

// FilterPolicy is a conjunction over named attributes: a message matches only
// when every entry's filter accepts the corresponding attribute. A nil or
// empty policy matches everything.
type FilterPolicy map[string]StringFilter

// Matches evaluates the policy against a message's attributes.
func (p FilterPolicy) Matches(attrs map[string]string) bool {
	for name, filter := range p {
		value, present := attrs[name]
		if !filter.matches(value, present) {
			return false
		}
	}
	return true
}
