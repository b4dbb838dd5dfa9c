package addservice

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Number is a JSON numeric literal. Integer literals are held exactly with
// arbitrary precision, every other literal as a float64. The zero value is
// the integer 0.
type Number struct {
	i     *big.Int
	f     float64
	float bool
}

// Int returns the integer n.
func Int(n int64) Number {
	return Number{i: big.NewInt(n)}
}

// Float returns the floating point number f.
func Float(f float64) Number {
	return Number{f: f, float: true}
}

// ParseNumber parses s, which must be a JSON number literal.
func ParseNumber(s string) (Number, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Number{}, errors.Wrapf(ErrNotNumeric, "%q", s)
	}
	if dec.More() {
		return Number{}, errors.Wrapf(ErrNotNumeric, "%q", s)
	}
	lit, ok := v.(json.Number)
	if !ok {
		return Number{}, errors.Wrapf(ErrNotNumeric, "%q", s)
	}

	if !strings.ContainsAny(string(lit), ".eE") {
		i, ok := new(big.Int).SetString(string(lit), 10)
		if !ok {
			return Number{}, errors.Wrapf(ErrNotNumeric, "%q", s)
		}
		return Number{i: i}, nil
	}

	f, err := strconv.ParseFloat(string(lit), 64)
	if err != nil {
		// Only a range error is possible for a valid literal.
		return Number{}, errors.Wrapf(ErrNotFinite, "%q", s)
	}
	return Float(f), nil
}

// IsInt reports whether n holds an exact integer.
func (n Number) IsInt() bool {
	return !n.float
}

// BigInt returns a copy of the integer value of n. Floats are truncated
// toward zero; infinities yield nil.
func (n Number) BigInt() *big.Int {
	if n.float {
		if math.IsInf(n.f, 0) || math.IsNaN(n.f) {
			return nil
		}
		i, _ := big.NewFloat(n.f).Int(nil)
		return i
	}
	return new(big.Int).Set(n.int())
}

// Float64 returns the nearest float64 value of n.
func (n Number) Float64() float64 {
	if n.float {
		return n.f
	}
	f, _ := new(big.Float).SetInt(n.int()).Float64()
	return f
}

// Add returns n + m. The sum of two integers is exact. If either operand is
// a float the sum is a float64, and ErrNotFinite is returned if it overflows.
func (n Number) Add(m Number) (Number, error) {
	if !n.float && !m.float {
		return Number{i: new(big.Int).Add(n.int(), m.int())}, nil
	}
	sum := n.Float64() + m.Float64()
	if math.IsInf(sum, 0) || math.IsNaN(sum) {
		return Number{}, errors.Wrapf(ErrNotFinite, "%s + %s", n, m)
	}
	return Float(sum), nil
}

// Equal reports whether n and m are the same kind of number with the same
// value.
func (n Number) Equal(m Number) bool {
	if n.float != m.float {
		return false
	}
	if n.float {
		return n.f == m.f
	}
	return n.int().Cmp(m.int()) == 0
}

// String returns the JSON encoding of n.
func (n Number) String() string {
	if !n.float {
		return n.int().String()
	}
	return string(formatFloat(n.f))
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.float && (math.IsInf(n.f, 0) || math.IsNaN(n.f)) {
		return nil, errors.Wrapf(ErrNotFinite, "%v", n.f)
	}
	return []byte(n.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler. Anything but a JSON number,
// including null, fails with ErrNotNumeric.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || (b[0] != '-' && (b[0] < '0' || b[0] > '9')) {
		return errors.Wrapf(ErrNotNumeric, "%s", b)
	}
	v, err := ParseNumber(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

func (n Number) int() *big.Int {
	if n.i == nil {
		return new(big.Int)
	}
	return n.i
}

// formatFloat mirrors the float encoding of encoding/json, and keeps a
// trailing ".0" on integral values so they decode as floats again.
func formatFloat(f float64) []byte {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
		return b
	}
	if !bytes.ContainsAny(b, ".") {
		b = append(b, '.', '0')
	}
	return b
}
