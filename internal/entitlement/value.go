package entitlement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

const unlimitedLiteral = "unlimited"

// Limit is a usage ceiling. The zero value is a ceiling of zero.
type Limit struct {
	max       int64
	unlimited bool
}

func Unlimited() Limit { return Limit{unlimited: true} }

// AtMost returns a finite ceiling; negative values clamp to zero.
func AtMost(n int64) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{max: n}
}

// LimitFromColumn maps a nullable ceiling column to a Limit; NULL is unlimited.
func LimitFromColumn(n *int) Limit {
	if n == nil {
		return Unlimited()
	}
	return AtMost(int64(*n))
}

func (l Limit) IsUnlimited() bool { return l.unlimited }

// Value returns the finite ceiling, or math.MaxInt64 when unlimited.
func (l Limit) Value() int64 {
	if l.unlimited {
		return math.MaxInt64
	}
	return l.max
}

// Allows reports whether one more unit fits given current usage.
func (l Limit) Allows(used int64) bool {
	return l.unlimited || used < l.max
}

// Remaining returns how many more units fit. ok is false when unlimited.
func (l Limit) Remaining(used int64) (n int64, ok bool) {
	if l.unlimited {
		return 0, false
	}
	if used >= l.max {
		return 0, true
	}
	return l.max - used, true
}

func (l Limit) String() string {
	if l.unlimited {
		return unlimitedLiteral
	}
	return strconv.FormatInt(l.max, 10)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal(unlimitedLiteral)
	}
	return json.Marshal(l.max)
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	parsed, err := decodeLimit(data)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Value is a resolved feature value of one Kind.
type Value struct {
	kind  Kind
	flag  bool
	limit Limit
	text  string
	list  []string
}

func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }
func LimitValue(l Limit) Value { return Value{kind: KindLimit, limit: l} }
func TextValue(s string) Value { return Value{kind: KindText, text: s} }
func ListValue(items []string) Value {
	return Value{kind: KindList, list: dedupe(items)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() (b, ok bool) {
	return v.flag, v.kind == KindBool
}

func (v Value) Limit() (Limit, bool) {
	return v.limit, v.kind == KindLimit
}

func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

// List returns a copy of the list value.
func (v Value) List() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]string(nil), v.list...), true
}

// DecodeValue parses a stored override value for a feature of the given kind.
//
//	bool:  true | false
//	limit: non-negative integer, "unlimited" or null
//	text:  non-empty string
//	list:  array of strings (replaces the plan list wholesale)
func DecodeValue(kind Kind, raw []byte) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("empty %s value", kind)
	}
	if kind != KindLimit && bytes.Equal(raw, []byte("null")) {
		return Value{}, fmt.Errorf("null is not a %s value", kind)
	}

	switch kind {
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("expected bool: %w", err)
		}
		return BoolValue(b), nil
	case KindLimit:
		l, err := decodeLimit(raw)
		if err != nil {
			return Value{}, err
		}
		return LimitValue(l), nil
	case KindText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("expected string: %w", err)
		}
		if s == "" {
			return Value{}, fmt.Errorf("empty text value")
		}
		return TextValue(s), nil
	case KindList:
		var items []string
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, fmt.Errorf("expected array of strings: %w", err)
		}
		return ListValue(items), nil
	}
	return Value{}, fmt.Errorf("unsupported kind %d", kind)
}

func decodeLimit(raw []byte) (Limit, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return Unlimited(), nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Limit{}, err
		}
		if s == unlimitedLiteral {
			return Unlimited(), nil
		}
		return Limit{}, fmt.Errorf("expected integer or %q, got %q", unlimitedLiteral, s)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return Limit{}, fmt.Errorf("expected integer ceiling: %w", err)
	}
	if n < 0 {
		return Limit{}, fmt.Errorf("ceiling must not be negative, got %d", n)
	}
	return AtMost(n), nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok || item == "" {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
