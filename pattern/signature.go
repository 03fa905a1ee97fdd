package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptySignature = errors.New("empty signature")
	ErrInvalidByte    = errors.New("invalid signature byte")
)

// Byte is one slot of a signature. Slots that are not significant match any value.
type Byte struct {
	Value       byte
	Significant bool
}

type Signature []Byte

// Parse reads the textual form used throughout the hook tables: hex bytes separated by
// whitespace, with "??" or "?" standing for a wildcard.
func Parse(s string) (Signature, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrEmptySignature
	}
	sig := make(Signature, 0, len(fields))
	for _, field := range fields {
		if field == "??" || field == "?" {
			sig = append(sig, Byte{})
			continue
		}
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		v, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidByte, field)
		}
		sig = append(sig, Byte{Value: byte(v), Significant: true})
	}
	return sig, nil
}

func MustParse(s string) Signature {
	sig, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sig
}

func (sig Signature) Len() int {
	return len(sig)
}

// Match compares sig against the start of data. data shorter than sig never matches.
func (sig Signature) Match(data []byte) bool {
	if len(data) < len(sig) {
		return false
	}
	for i, b := range sig {
		if b.Significant && data[i] != b.Value {
			return false
		}
	}
	return true
}

func (sig Signature) String() string {
	var sb strings.Builder
	for i, b := range sig {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if b.Significant {
			fmt.Fprintf(&sb, "%02X", b.Value)
		} else {
			sb.WriteString("??")
		}
	}
	return sb.String()
}
