package syncache

import (
	"fmt"
	"strings"
)

// KeySep separates the domain and parameters of a key.
const KeySep = ":"

// Key builds "domain:p1:p2...". Parts are formatted with fmt.Sprint, so
// Key("flow-top", 5, 30, "all") == "flow-top:5:30:all".
func Key(domain string, parts ...any) string {
	if len(parts) == 0 {
		return domain
	}
	var b strings.Builder
	b.WriteString(domain)
	for _, p := range parts {
		b.WriteString(KeySep)
		b.WriteString(fmt.Sprint(p))
	}
	return b.String()
}

// Family is a named group of keys owned by one feature, e.g. every OHLCV
// series. Invalidation routers check at startup that each family is reachable
// from at least one topic.
type Family struct {
	Name string
}

func NewFamily(name string) Family { return Family{Name: name} }

// Key returns the family key for the given parameters.
func (f Family) Key(parts ...any) string { return Key(f.Name, parts...) }

// Prefix matches every parameterized key of the family.
func (f Family) Prefix() string { return f.Name + KeySep }

// Owns reports whether key was built by this family.
func (f Family) Owns(key string) bool {
	return key == f.Name || strings.HasPrefix(key, f.Prefix())
}

func (f Family) String() string { return f.Name }
