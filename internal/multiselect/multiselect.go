// Package multiselect models the multi-select dropdown as an explicit state
// machine, so the order of trigger, option, chip and outside-click events
// cannot leave the dropdown in an inconsistent state.
package multiselect

import (
	"slices"
	"strings"
)

type State int

const (
	Closed State = iota
	Open
	// Selecting is the window between an option press and its commit.
	Selecting
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Selecting:
		return "selecting"
	default:
		return "closed"
	}
}

type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Control holds the selection and dropdown state of one multi-select.
type Control struct {
	Options    []Option
	state      State
	selected   []string
	lastSynced string
	synced     bool
	onChange   func([]string)
}

// New creates a closed control. onChange may be nil.
func New(options []Option, onChange func([]string)) *Control {
	return &Control{Options: options, onChange: onChange}
}

func (c *Control) State() State { return c.state }

// IsOpen reports whether the dropdown is visible.
func (c *Control) IsOpen() bool { return c.state != Closed }

// ListeningOutside reports whether outside clicks are being observed.
func (c *Control) ListeningOutside() bool { return c.state == Open || c.state == Selecting }

// Selected returns a copy of the selected values in selection order.
func (c *Control) Selected() []string { return slices.Clone(c.selected) }

// Toggle handles a click on the trigger.
func (c *Control) Toggle() {
	switch c.state {
	case Closed:
		c.state = Open
	case Open:
		c.state = Closed
	}
}

// PressOption starts selecting value. It is ignored unless the dropdown is open.
func (c *Control) PressOption(value string) bool {
	if c.state != Open || !c.known(value) {
		return false
	}
	c.state = Selecting
	return true
}

// CommitOption toggles value in the selection and returns to Open. The
// dropdown stays open.
func (c *Control) CommitOption(value string) {
	if c.state != Selecting {
		return
	}
	if i := slices.Index(c.selected, value); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
	} else {
		c.selected = append(c.selected, value)
	}
	c.state = Open
	c.emit()
}

// ClickOption is PressOption followed by CommitOption.
func (c *Control) ClickOption(value string) bool {
	if !c.PressOption(value) {
		return false
	}
	c.CommitOption(value)
	return true
}

// RemoveChip deselects value without touching the dropdown state.
func (c *Control) RemoveChip(value string) {
	i := slices.Index(c.selected, value)
	if i < 0 {
		return
	}
	c.selected = slices.Delete(c.selected, i, i+1)
	c.emit()
}

// OutsideClick closes the dropdown, but only from Open; a click landing while
// an option is being selected is ignored.
func (c *Control) OutsideClick() {
	if c.state == Open {
		c.state = Closed
	}
}

// SyncDefault adopts defaults from the parent when they differ from the last
// synced defaults. Re-sending the same defaults keeps the user's selection.
func (c *Control) SyncDefault(defaults []string) bool {
	key := strings.Join(defaults, "\x1f")
	if c.synced && key == c.lastSynced {
		return false
	}
	c.synced = true
	c.lastSynced = key
	c.selected = slices.Clone(defaults)
	return true
}

// Chips returns the selected options in selection order. Values with no
// matching option render their raw value.
func (c *Control) Chips() []Option {
	out := make([]Option, 0, len(c.selected))
	for _, v := range c.selected {
		text := v
		for _, o := range c.Options {
			if o.Value == v {
				text = o.Text
				break
			}
		}
		out = append(out, Option{Value: v, Text: text})
	}
	return out
}

func (c *Control) known(value string) bool {
	for _, o := range c.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

func (c *Control) emit() {
	if c.onChange != nil {
		c.onChange(c.Selected())
	}
}
