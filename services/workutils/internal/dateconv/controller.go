package dateconv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/greymass/workutils/libraries/timeconv"
	"github.com/greymass/workutils/libraries/tzdb"
)

// Resolver finds zones for the controller. *tzresolve.Resolver implements it.
type Resolver interface {
	timeconv.ZoneResolver
	GuessFromSystemClock() (*time.Location, error)
}

// Outcome is what became of a finished block lookup.
type Outcome int

const (
	Applied Outcome = iota + 1
	Discarded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Controller keeps a State consistent across edits. Every operation either
// re-renders all time fields from one instant or sets only Error.
// A Controller is not safe for concurrent use; Session serializes access.
type Controller struct {
	resolver Resolver
	codec    *timeconv.Codec
	now      func() time.Time

	zone  *time.Location
	state State
}

// NewController starts at the epoch in UTC. A nil now uses time.Now.
func NewController(resolver Resolver, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		resolver: resolver,
		codec:    timeconv.NewCodec(resolver),
		now:      now,
		zone:     time.UTC,
		state:    DefaultState(),
	}
}

func (c *Controller) State() State {
	return c.state
}

// Zone is the custom column's zone.
func (c *Controller) Zone() *time.Location {
	return c.zone
}

func (c *Controller) EditTimestamp(text string) error {
	i, err := timeconv.DecodeTimestamp(text)
	return c.commit(i, c.zone, err)
}

func (c *Controller) EditUTCDate(d timeconv.Date) error {
	i, err := timeconv.DecodeCalendarDate(d)
	return c.commit(i, c.zone, err)
}

// EditUTCISO reads naive text as UTC. A zone named by the text only
// affects decoding, never the custom column.
func (c *Controller) EditUTCISO(text string) error {
	i, _, err := c.codec.DecodeISO8601(text, time.UTC)
	return c.commit(i, c.zone, err)
}

// EditCustomDate is midnight of d in the custom zone.
func (c *Controller) EditCustomDate(d timeconv.Date) error {
	i, err := timeconv.DecodeCalendarDateIn(d, c.zone)
	return c.commit(i, c.zone, err)
}

// EditCustomISO reads naive text in the custom zone. Offset qualified or
// abbreviation suffixed text switches the custom zone to the one inferred.
func (c *Controller) EditCustomISO(text string) error {
	i, zone, err := c.codec.DecodeISO8601(text, c.zone)
	return c.commit(i, zone, err)
}

// SelectZone re-projects the current timestamp into the named zone.
func (c *Controller) SelectZone(name string) error {
	zone, err := tzdb.Load(name)
	if err != nil {
		return c.fail(fmt.Errorf("select zone: %w", err))
	}
	return c.reproject(zone)
}

// GuessZone selects the zone matching the host clock.
func (c *Controller) GuessZone() error {
	zone, err := c.resolver.GuessFromSystemClock()
	if err != nil {
		return c.fail(err)
	}
	return c.reproject(zone)
}

// GuessZoneFromOffset selects the first zone currently at offsetSeconds
// east of UTC.
func (c *Controller) GuessZoneFromOffset(offsetSeconds int) error {
	zone, err := c.resolver.GuessFromOffset(offsetSeconds)
	if err != nil {
		return c.fail(err)
	}
	return c.reproject(zone)
}

// SetNow shows the current clock, truncated to the second.
func (c *Controller) SetNow() error {
	i := timeconv.FromTime(c.now())
	var err error
	if !i.Valid() {
		err = &timeconv.ParseError{Input: i.String(), Reason: "timestamp out of range"}
	}
	return c.commit(i, c.zone, err)
}

func (c *Controller) reproject(zone *time.Location) error {
	i, err := timeconv.DecodeTimestamp(c.state.Timestamp)
	return c.commit(i, zone, err)
}

// EditBlock records text as the block field and parses it. On success the
// returned height should be looked up and reported back through
// ApplyBlockTime or FailBlockTime with the same text as trigger.
func (c *Controller) EditBlock(text string) (uint64, error) {
	c.state.Block = text
	height, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		c.state.Loading = false
		return 0, c.fail(&timeconv.ParseError{Input: text, Reason: "failed to parse block", Err: err})
	}
	c.state.Loading = true
	return height, nil
}

// ApplyBlockTime shows ts if trigger is still the block field.
func (c *Controller) ApplyBlockTime(trigger string, ts int64) Outcome {
	if trigger != c.state.Block {
		return Discarded
	}
	c.state.Loading = false
	i := timeconv.Instant(ts)
	if !i.Valid() {
		c.fail(fmt.Errorf("failed to get block: timestamp %d out of range", ts))
		return Failed
	}
	c.commit(i, c.zone, nil)
	return Applied
}

// FailBlockTime reports err if trigger is still the block field.
func (c *Controller) FailBlockTime(trigger string, err error) Outcome {
	if trigger != c.state.Block {
		return Discarded
	}
	c.state.Loading = false
	c.fail(fmt.Errorf("failed to get block: %w", err))
	return Failed
}

func (c *Controller) commit(i timeconv.Instant, zone *time.Location, err error) error {
	if err != nil {
		return c.fail(err)
	}
	c.zone = zone
	c.state.render(i, zone)
	return nil
}

func (c *Controller) fail(err error) error {
	c.state.Error = err.Error()
	return err
}
