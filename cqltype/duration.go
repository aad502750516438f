package cqltype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scylladb/go-cql-driver/frame"
)

// Duration is a CQL duration: months, days, and nanoseconds kept separate
// because months and days are calendar-relative and cannot be folded into a
// fixed-width nanosecond count (a month is not always the same number of
// days). All three fields must share the same sign, or be zero, per
// spec.md's sign-agreement invariant.
type Duration struct {
	Months      int32
	Days        int32
	Nanoseconds int64
}

func sameSign(a, b int64) bool {
	return a == 0 || b == 0 || (a < 0) == (b < 0)
}

// Validate enforces the sign-agreement invariant.
func (d Duration) Validate() error {
	months := int64(d.Months)
	days := int64(d.Days)
	if sameSign(months, days) && sameSign(days, d.Nanoseconds) && sameSign(months, d.Nanoseconds) {
		return nil
	}
	return fmt.Errorf("cqltype: duration fields must share a sign: %+v", d)
}

// EncodeDuration writes a Duration's vint-encoded wire form: months, days,
// nanoseconds, each zig-zag vint.
func EncodeDuration(d Duration) []byte {
	var buf []byte
	buf = frame.AppendVInt(buf, int64(d.Months))
	buf = frame.AppendVInt(buf, int64(d.Days))
	buf = frame.AppendVInt(buf, d.Nanoseconds)
	return buf
}

// DecodeDuration parses a Duration's wire form and validates its sign
// invariant.
func DecodeDuration(raw []byte) (Duration, error) {
	months, n, err := frame.DecodeVInt(raw)
	if err != nil {
		return Duration{}, err
	}
	raw = raw[n:]
	days, n, err := frame.DecodeVInt(raw)
	if err != nil {
		return Duration{}, err
	}
	raw = raw[n:]
	nanos, n, err := frame.DecodeVInt(raw)
	if err != nil {
		return Duration{}, err
	}
	raw = raw[n:]
	if len(raw) > 0 {
		return Duration{}, fmt.Errorf("cqltype: extra bytes after duration value")
	}
	d := Duration{Months: int32(months), Days: int32(days), Nanoseconds: nanos}
	if err := d.Validate(); err != nil {
		return Duration{}, err
	}
	return d, nil
}

// Nanoseconds-per-unit constants for the text form, confirmed against
// original_source/src/types/duration.rs.
const (
	nsPerMicro = int64(1e3)
	nsPerMilli = int64(1e6)
	nsPerSec   = int64(1e9)
	nsPerMin   = 60 * nsPerSec
	nsPerHour  = 60 * nsPerMin
)

// unitOrder lists duration text-form unit suffixes, matched greedily
// left-to-right. The two-letter suffixes come first so that "mo" and "ms"
// are matched before the bare "m" (minutes).
var unitOrder = []struct {
	suffix string
	months int32
	days   int32
	nanos  int64
}{
	{"mo", 1, 0, 0},
	{"ms", 0, 0, nsPerMilli},
	{"µs", 0, 0, nsPerMicro},
	{"us", 0, 0, nsPerMicro},
	{"ns", 0, 0, 1},
	{"y", 12, 0, 0},
	{"w", 0, 7, 0},
	{"d", 0, 1, 0},
	{"h", 0, 0, nsPerHour},
	{"m", 0, 0, nsPerMin},
	{"s", 0, 0, nsPerSec},
}

// FormatDuration renders d in the ISO-ish "1y2mo3d4h5m6s" text form.
func FormatDuration(d Duration) string {
	if d.Months == 0 && d.Days == 0 && d.Nanoseconds == 0 {
		return "0s"
	}
	neg := d.Months < 0 || d.Days < 0 || d.Nanoseconds < 0
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	years, months := d.Months/12, d.Months%12
	if neg {
		years, months = -years, -months
	}
	if years != 0 {
		fmt.Fprintf(&sb, "%dy", years)
	}
	if months != 0 {
		fmt.Fprintf(&sb, "%dmo", months)
	}
	days := d.Days
	if neg {
		days = -days
	}
	if days != 0 {
		fmt.Fprintf(&sb, "%dd", days)
	}
	n := d.Nanoseconds
	if neg {
		n = -n
	}
	if h := n / nsPerHour; h != 0 {
		fmt.Fprintf(&sb, "%dh", h)
		n %= nsPerHour
	}
	if m := n / nsPerMin; m != 0 {
		fmt.Fprintf(&sb, "%dm", m)
		n %= nsPerMin
	}
	if s := n / nsPerSec; s != 0 {
		fmt.Fprintf(&sb, "%ds", s)
		n %= nsPerSec
	}
	if n != 0 {
		fmt.Fprintf(&sb, "%dns", n)
	}
	return sb.String()
}

// ParseDuration parses the "1y2mo3d4h5m6s"-style text form back into a
// Duration.
func ParseDuration(s string) (Duration, error) {
	orig := s
	if s == "" {
		return Duration{}, fmt.Errorf("cqltype: empty duration")
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var d Duration
	for len(s) > 0 {
		i := 0
		for i < len(s) && (s[i] == '-' || s[i] == '+' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		if i == 0 {
			return Duration{}, fmt.Errorf("cqltype: invalid duration %q", orig)
		}
		numStr := s[:i]
		s = s[i:]
		matched := false
		for _, u := range unitOrder {
			if strings.HasPrefix(s, u.suffix) {
				n, err := strconv.ParseInt(numStr, 10, 64)
				if err != nil {
					return Duration{}, fmt.Errorf("cqltype: invalid duration %q: %w", orig, err)
				}
				d.Months += int32(n) * u.months
				d.Days += int32(n) * u.days
				d.Nanoseconds += n * u.nanos
				s = s[len(u.suffix):]
				matched = true
				break
			}
		}
		if !matched {
			return Duration{}, fmt.Errorf("cqltype: invalid duration unit in %q", orig)
		}
	}
	if neg {
		d.Months, d.Days, d.Nanoseconds = -d.Months, -d.Days, -d.Nanoseconds
	}
	if err := d.Validate(); err != nil {
		return Duration{}, err
	}
	return d, nil
}
