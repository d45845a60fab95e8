// Package byteconv keeps five text renderings of one byte string in step:
// base58, hex, unsigned and signed byte lists, and a 256-bit big endian
// unsigned integer.
package byteconv

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
)

// ErrTooLarge is recorded when the bytes do not fit a u256. The other four
// renderings are still updated.
var (
	ErrTooLarge     = errors.New("value is too large for u256")
	ErrUnknownField = errors.New("unknown byte field")
)

type Field string

const (
	FieldBase58 Field = "base58"
	FieldHex    Field = "hex"
	FieldU8     Field = "u8"
	FieldI8     Field = "i8"
	FieldU256   Field = "u256"
)

// ParseError reports text that does not decode in the edited field.
type ParseError struct {
	Field Field
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func ParseBase58(text string) ([]byte, error) {
	if text == "" {
		return []byte{}, nil
	}
	b, err := base58.Decode(text)
	if err != nil {
		return nil, &ParseError{Field: FieldBase58, Input: text, Err: err}
	}
	return b, nil
}

// ParseHex accepts an optional 0x prefix.
func ParseHex(text string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
	if err != nil {
		return nil, &ParseError{Field: FieldHex, Input: text, Err: err}
	}
	return b, nil
}

// ParseU8List reads decimal bytes separated by whitespace or any of
// ",;:". Brackets are ignored, so "[1, 2, 3]" and "1 2 3" are equal.
func ParseU8List(text string) ([]byte, error) {
	return parseList(FieldU8, text, func(s string) (byte, error) {
		n, err := strconv.ParseUint(s, 10, 8)
		return byte(n), err
	})
}

// ParseI8List is ParseU8List for signed bytes, -128 through 127.
func ParseI8List(text string) ([]byte, error) {
	return parseList(FieldI8, text, func(s string) (byte, error) {
		n, err := strconv.ParseInt(s, 10, 8)
		return byte(int8(n)), err
	})
}

var listCleaner = strings.NewReplacer(
	",", " ", ";", " ", ":", " ", "\t", " ", "\n", " ",
	"[", "", "]", "",
)

func parseList(field Field, text string, parse func(string) (byte, error)) ([]byte, error) {
	items := strings.Fields(listCleaner.Replace(text))
	out := make([]byte, 0, len(items))
	for _, item := range items {
		b, err := parse(item)
		if err != nil {
			return nil, &ParseError{Field: field, Input: text, Err: fmt.Errorf("byte %q: %w", item, err)}
		}
		out = append(out, b)
	}
	return out, nil
}

// ParseU256 reads a decimal integer below 2^256 as 32 big endian bytes. An
// empty field is zero.
func ParseU256(text string) ([]byte, error) {
	if text == "" {
		return make([]byte, 32), nil
	}
	n, err := uint256.FromDecimal(text)
	if err != nil {
		return nil, &ParseError{Field: FieldU256, Input: text, Err: err}
	}
	b := n.Bytes32()
	return b[:], nil
}

func Parse(field Field, text string) ([]byte, error) {
	switch field {
	case FieldBase58:
		return ParseBase58(text)
	case FieldHex:
		return ParseHex(text)
	case FieldU8:
		return ParseU8List(text)
	case FieldI8:
		return ParseI8List(text)
	case FieldU256:
		return ParseU256(text)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownField, field)
}

// FormatList renders each byte followed by a space.
func FormatList(b []byte, signed bool) string {
	var sb strings.Builder
	for _, c := range b {
		if signed {
			sb.WriteString(strconv.Itoa(int(int8(c))))
		} else {
			sb.WriteString(strconv.Itoa(int(c)))
		}
		sb.WriteByte(' ')
	}
	return sb.String()
}

// FormatU256 renders up to 32 big endian bytes as a decimal integer.
func FormatU256(b []byte) (string, error) {
	if len(b) > 32 {
		return "", ErrTooLarge
	}
	return new(uint256.Int).SetBytes(b).Dec(), nil
}
