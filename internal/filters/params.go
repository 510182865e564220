package filters

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

var activeKey = regexp.MustCompile(`(?i)f(?:-(\S+))?-(\w+)$`)

// ActiveFilter is a global filter activated through the URL.
type ActiveFilter struct {
	Scope  string
	Hash   string
	Values []string
}

// ParseActive reads active filters from a raw URL query such as
// "f-main-1a2b=north,south&page=2". Keys are visited in sorted order and
// only the first value of a repeated key is used. Empty values are dropped.
func ParseActive(rawQuery string) ([]ActiveFilter, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, fmt.Errorf("parse filter query: %w", err)
	}

	keys := lo.Keys(values)
	slices.Sort(keys)

	var out []ActiveFilter
	for _, key := range keys {
		m := activeKey.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		out = append(out, ActiveFilter{
			Scope:  m[1],
			Hash:   m[2],
			Values: lo.Compact(strings.Split(values.Get(key), ",")),
		})
	}
	return out, nil
}
