package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrMachineNotFound = errors.New("machine not found")
)

type MachineKind int

const (
	Washer MachineKind = iota
	Dryer
)

func (k MachineKind) String() string {
	if k == Dryer {
		return "dryer"
	}
	return "washer"
}

type WasherCategory int

const (
	SmallWasher WasherCategory = iota
	MediumWasher
	LargeWasher
)

func (c WasherCategory) String() string {
	switch c {
	case MediumWasher:
		return "medium"
	case LargeWasher:
		return "large"
	default:
		return "small"
	}
}

type DryerPosition int

const (
	TopDryer DryerPosition = iota
	BottomDryer
)

func (p DryerPosition) String() string {
	if p == BottomDryer {
		return "bottom"
	}
	return "top"
}

// Machine is an immutable catalog entry. IDs are unique across washers
// and dryers (the vending controller addresses both from one id space).
type Machine struct {
	ID          int
	Kind        MachineKind
	Category    WasherCategory // washers only
	CapacityLbs int            // washers only
	Position    DryerPosition  // dryers only
}

type MachineState int

const (
	StateAvailable MachineState = iota
	StateInUse
	StateComplete
	// StateUnknown quarantines unrecognized upstream status strings so they
	// never reach selectability or pricing decisions.
	StateUnknown
)

func (s MachineState) String() string {
	switch s {
	case StateAvailable:
		return "AVAILABLE"
	case StateInUse:
		return "IN_USE"
	case StateComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// ParseMachineState maps a raw upstream status string to the closed state
// enum. Anything unrecognized becomes StateUnknown.
func ParseMachineState(raw string) MachineState {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AVAILABLE":
		return StateAvailable
	case "IN_USE":
		return StateInUse
	case "COMPLETE":
		return StateComplete
	default:
		return StateUnknown
	}
}

// MachineStatus is one live status record ingested from the status source.
type MachineStatus struct {
	MachineID          int
	State              MachineState
	RemainingSeconds   int
	RemainingVendCents int64
}

// Directory resolves machine ids against the fixed inventory. Externally
// supplied ids (QR codes, status feeds) go through Lookup before they are
// allowed anywhere near the cart.
type Directory struct {
	byID map[int]Machine
}

func NewDirectory(machines []Machine) *Directory {
	byID := make(map[int]Machine, len(machines))
	for _, m := range machines {
		byID[m.ID] = m
	}
	return &Directory{byID: byID}
}

func (d *Directory) Lookup(machineID int) (Machine, error) {
	m, ok := d.byID[machineID]
	if !ok {
		return Machine{}, ErrMachineNotFound
	}
	return m, nil
}

func (d *Directory) Washers() []Machine {
	return d.byKind(Washer)
}

func (d *Directory) Dryers() []Machine {
	return d.byKind(Dryer)
}

func (d *Directory) byKind(kind MachineKind) []Machine {
	var out []Machine
	for _, m := range d.byID {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
