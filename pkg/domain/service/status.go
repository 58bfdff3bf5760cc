package service

import (
	"context"
	"fmt"

	"kiosk/pkg/domain/model"
)

// StatusSource feeds live machine status from the vending controller. A
// failing or malformed feed is degraded to an empty list by the
// infrastructure adapter, never an error that would blank the screen.
type StatusSource interface {
	MachineStatuses(ctx context.Context) ([]model.MachineStatus, error)
}

// ProductSource serves the retail shelf. Same degradation policy.
type ProductSource interface {
	Products(ctx context.Context) ([]model.Product, error)
}

// MachineListing is one machine joined with its live status, ready for a
// selection screen.
type MachineListing struct {
	Machine    model.Machine
	State      model.MachineState
	Remaining  int
	VendCents  int64
	Selected   bool
	Selectable bool
}

// MachineGroup is a display section: washers grouped by category, dryers by
// their physical top/bottom column pairs.
type MachineGroup struct {
	Label    string
	Machines []MachineListing
}

// StatusService builds the selection-screen listings: status feed joined
// with the catalog, filtered to the requested kind, grouped for display.
// Only AVAILABLE machines are selectable; machines already in the cart stay
// visibly selected even when they have since gone busy.
type StatusService interface {
	WasherGroups(ctx context.Context, showBusy bool) ([]MachineGroup, error)
	DryerGroups(ctx context.Context, showBusy bool) ([]MachineGroup, error)
}

func NewStatusService(source StatusSource, directory *model.Directory, cart CartService) StatusService {
	return &statusService{source: source, directory: directory, cart: cart}
}

type statusService struct {
	source    StatusSource
	directory *model.Directory
	cart      CartService
}

func (s *statusService) WasherGroups(ctx context.Context, showBusy bool) ([]MachineGroup, error) {
	listings, err := s.listings(ctx, model.Washer, showBusy)
	if err != nil {
		return nil, err
	}

	groups := []MachineGroup{
		{Label: "XL"},
		{Label: "L"},
		{Label: "M"},
	}
	for _, l := range listings {
		switch l.Machine.Category {
		case model.LargeWasher:
			groups[0].Machines = append(groups[0].Machines, l)
		case model.MediumWasher:
			groups[1].Machines = append(groups[1].Machines, l)
		default:
			groups[2].Machines = append(groups[2].Machines, l)
		}
	}
	return nonEmpty(groups), nil
}

func (s *statusService) DryerGroups(ctx context.Context, showBusy bool) ([]MachineGroup, error) {
	listings, err := s.listings(ctx, model.Dryer, showBusy)
	if err != nil {
		return nil, err
	}

	// Dryers are stacked in columns: odd id on top, even id below it.
	byPair := map[int][]MachineListing{}
	for _, l := range listings {
		pair := (l.Machine.ID + 1) / 2
		byPair[pair] = append(byPair[pair], l)
	}

	var groups []MachineGroup
	for pair := 1; pair <= 5; pair++ {
		machines, ok := byPair[pair]
		if !ok {
			continue
		}
		top, bottom := pair*2-1, pair*2
		groups = append(groups, MachineGroup{
			Label:    fmt.Sprintf("Dryer %d - %d", top, bottom),
			Machines: machines,
		})
	}
	return groups, nil
}

func (s *statusService) listings(ctx context.Context, kind model.MachineKind, showBusy bool) ([]MachineListing, error) {
	statuses, err := s.source.MachineStatuses(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]model.MachineStatus, len(statuses))
	for _, st := range statuses {
		byID[st.MachineID] = st
	}

	var selected []int
	if kind == model.Washer {
		selected, err = s.cart.SelectedWashers(ctx)
	} else {
		selected, err = s.cart.SelectedDryers(ctx)
	}
	if err != nil {
		return nil, err
	}
	selectedSet := make(map[int]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	machines := s.directory.Washers()
	if kind == model.Dryer {
		machines = s.directory.Dryers()
	}

	var out []MachineListing
	for _, m := range machines {
		st, reported := byID[m.ID]
		if !reported {
			// The feed said nothing about this machine; quarantine it.
			st = model.MachineStatus{MachineID: m.ID, State: model.StateUnknown}
		}

		listing := MachineListing{
			Machine:    m,
			State:      st.State,
			Remaining:  st.RemainingSeconds,
			VendCents:  st.RemainingVendCents,
			Selected:   selectedSet[m.ID],
			Selectable: st.State == model.StateAvailable,
		}
		if !showBusy && !listing.Selectable && !listing.Selected {
			continue
		}
		out = append(out, listing)
	}
	return out, nil
}

func nonEmpty(groups []MachineGroup) []MachineGroup {
	out := groups[:0]
	for _, g := range groups {
		if len(g.Machines) > 0 {
			out = append(out, g)
		}
	}
	return out
}
