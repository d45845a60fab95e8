package dateconv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/greymass/workutils/libraries/timeconv"
)

// Field names an edit target. They match the websocket protocol.
type Field string

const (
	FieldTimestamp  Field = "timestamp"
	FieldUTCDate    Field = "utc_date"
	FieldUTCISO     Field = "utc_iso"
	FieldCustomDate Field = "custom_date"
	FieldCustomISO  Field = "custom_iso"
	FieldZone       Field = "zone"
	FieldBlock      Field = "block"
	FieldNow        Field = "now"
	FieldGuessZone  Field = "guess_zone"
	FieldOffset     Field = "offset"
)

var ErrUnknownField = errors.New("unknown field")

// Edit is one user action on the date panel. Value is ignored by the
// button fields (now, guess_zone). Offsets are seconds east of UTC.
type Edit struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Apply runs every edit except block edits, which need a lookup and are
// handled by Session.
func (c *Controller) Apply(e Edit) error {
	switch e.Field {
	case FieldTimestamp:
		return c.EditTimestamp(e.Value)
	case FieldUTCDate:
		d, err := timeconv.ParseDate(e.Value)
		if err != nil {
			return c.fail(err)
		}
		return c.EditUTCDate(d)
	case FieldUTCISO:
		return c.EditUTCISO(e.Value)
	case FieldCustomDate:
		d, err := timeconv.ParseDate(e.Value)
		if err != nil {
			return c.fail(err)
		}
		return c.EditCustomDate(d)
	case FieldCustomISO:
		return c.EditCustomISO(e.Value)
	case FieldZone:
		return c.SelectZone(e.Value)
	case FieldNow:
		return c.SetNow()
	case FieldGuessZone:
		return c.GuessZone()
	case FieldOffset:
		seconds, err := strconv.Atoi(strings.TrimSpace(e.Value))
		if err != nil {
			return c.fail(&timeconv.ParseError{Input: e.Value, Reason: "invalid offset"})
		}
		return c.GuessZoneFromOffset(seconds)
	}
	return fmt.Errorf("%w %q", ErrUnknownField, e.Field)
}
