package service

import "kiosk/pkg/domain/model"

// SelectionView decorates a stored MachineSelection with the catalog names
// the review and receipt screens display.
type SelectionView struct {
	model.MachineSelection
	CycleName       string
	TemperatureName string
	// RunMinutes is how long the machine will run: the washer cycle length
	// (plus the extra's delta) or the chosen dryer duration.
	RunMinutes int
}

// CartSummary is a consistent read of the cart at one instant. It is a
// snapshot, not a live view; callers re-fetch after any mutation. The same
// summary feeds the review screen, the payment request, and the receipt, so
// all three show an identical total.
type CartSummary struct {
	WasherIDs    []int
	DryerIDs     []int
	WasherCycles map[int]SelectionView
	DryerCycles  map[int]SelectionView
	Products     []model.ProductSelection
	TotalCents   int64
}

// TotalMinutes sums the run time of every configured machine, the basis for
// the estimated finish time on the receipt.
func (s *CartSummary) TotalMinutes() int {
	total := 0
	for _, v := range s.WasherCycles {
		total += v.RunMinutes
	}
	for _, v := range s.DryerCycles {
		total += v.RunMinutes
	}
	return total
}

func buildSummary(cart *model.Cart, catalog *model.Catalog, directory *model.Directory) (*CartSummary, error) {
	summary := &CartSummary{
		WasherIDs:    append([]int{}, cart.Washers...),
		DryerIDs:     append([]int{}, cart.Dryers...),
		WasherCycles: make(map[int]SelectionView, len(cart.WasherSelections)),
		DryerCycles:  make(map[int]SelectionView, len(cart.DryerSelections)),
		Products:     append([]model.ProductSelection{}, cart.Products...),
		TotalCents:   cart.TotalCents(),
	}

	for id, sel := range cart.WasherSelections {
		view, err := decorate(sel, catalog, directory)
		if err != nil {
			return nil, err
		}
		summary.WasherCycles[id] = view
	}
	for id, sel := range cart.DryerSelections {
		view, err := decorate(sel, catalog, directory)
		if err != nil {
			return nil, err
		}
		summary.DryerCycles[id] = view
	}
	return summary, nil
}

func decorate(sel model.MachineSelection, catalog *model.Catalog, directory *model.Directory) (SelectionView, error) {
	machine, err := directory.Lookup(sel.MachineID)
	if err != nil {
		return SelectionView{}, err
	}
	cycle, err := catalog.FindCycle(machine, sel.CycleID)
	if err != nil {
		return SelectionView{}, err
	}

	view := SelectionView{MachineSelection: sel, CycleName: cycle.Name}

	if machine.Kind == model.Washer {
		for _, t := range cycle.Temperatures {
			if t.ID == sel.TemperatureID {
				view.TemperatureName = t.Name
				break
			}
		}
		view.RunMinutes = cycle.DurationMinutes
		if sel.Extra != nil {
			view.RunMinutes += sel.Extra.DurationMinutesDelta
		}
	} else {
		view.RunMinutes = sel.DurationMinutes
	}
	return view, nil
}
