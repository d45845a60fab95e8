package byteconv

import (
	"encoding/hex"
	"errors"

	"github.com/mr-tron/base58"
)

// State is what the byte converter shows.
type State struct {
	Base58 string `json:"base58"`
	Hex    string `json:"hex"`
	U8     string `json:"u8"`
	I8     string `json:"i8"`
	U256   string `json:"u256"`
	Error  string `json:"error,omitempty"`
}

// Panel applies edits to a State. It is not safe for concurrent use; each
// session owns one.
type Panel struct {
	state State
}

func NewPanel() *Panel {
	return &Panel{}
}

func (p *Panel) State() State {
	return p.state
}

// Edit decodes text as field and re-renders every field from the bytes.
// On a parse error only State.Error changes; an unknown field changes
// nothing.
func (p *Panel) Edit(field Field, text string) error {
	b, err := Parse(field, text)
	if errors.Is(err, ErrUnknownField) {
		return err
	}
	if err != nil {
		p.state.Error = err.Error()
		return err
	}
	p.state = Render(b)
	if p.state.Error != "" {
		return ErrTooLarge
	}
	return nil
}

// Render produces the five renderings of b. Over 32 bytes the u256 field is
// empty and Error is set.
func Render(b []byte) State {
	s := State{
		Base58: base58.Encode(b),
		Hex:    hex.EncodeToString(b),
		U8:     FormatList(b, false),
		I8:     FormatList(b, true),
	}
	u, err := FormatU256(b)
	if err != nil {
		s.Error = err.Error()
	}
	s.U256 = u
	return s
}
