package model

import "fmt"

// PinRef addresses a pin by its connector designator and index in the
// connector's pin list.
type PinRef struct {
	Connector string
	Index     int
}

// WireRef addresses a wire by its cable designator and index in the cable's
// wire list. The shield has Index == WireCount and Shield set.
type WireRef struct {
	Cable  string
	Index  int
	Shield bool
}

// Connection is a pin-wire-pin edge. From and To are nil for open ends.
type Connection struct {
	From *PinRef
	Via  WireRef
	To   *PinRef
}

func (c Connection) String() string {
	end := func(p *PinRef) string {
		if p == nil {
			return "(open)"
		}
		return fmt.Sprintf("%s[%d]", p.Connector, p.Index)
	}
	via := fmt.Sprintf("%s[%d]", c.Via.Cable, c.Via.Index)
	if c.Via.Shield {
		via = c.Via.Cable + "[s]"
	}
	return fmt.Sprintf("%s -> %s -> %s", end(c.From), via, end(c.To))
}
