package audit

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

type Change struct {
	Old *string
	New *string
}

// Changes maps a field name to its before/after text.
type Changes map[string]Change

// Track records the change when old and new differ.
func (c Changes) Track(field string, before, after *string) {
	if Equal(before, after) {
		return
	}
	c[field] = Change{Old: before, New: after}
}

// TrackString is Track for non-nullable text.
func (c Changes) TrackString(field, before, after string) {
	c.Track(field, &before, &after)
}

func (c Changes) TrackBool(field string, before, after bool) {
	c.Track(field, Text(before), Text(after))
}

// Fields returns the field names in ascending order.
func (c Changes) Fields() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func Equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Text renders v as audit text; nil pointers stay nil.
func Text(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case *string:
		if t == nil {
			return nil
		}
		s = *t
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}
		s = t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	return &s
}
