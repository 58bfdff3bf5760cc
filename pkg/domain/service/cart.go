package service

import (
	"context"
	"errors"
	"sync"

	"kiosk/pkg/domain/model"
)

var (
	ErrMachineNotInCart    = errors.New("machine is not in the cart")
	ErrWrongMachineKind    = errors.New("machine id belongs to a different machine kind")
	ErrTemperatureNotFound = errors.New("temperature not offered by the selected cycle")
	ErrDurationNotFound    = errors.New("duration not offered by the selected cycle")
	ErrExtraOptionNotFound = errors.New("extra option not offered by the selected cycle")
)

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

// CartService is the sole authority over kiosk selection state. Every write
// loads the cart, mutates it as a whole record, and persists before
// returning, so the derived total is always recomputable from stored state.
type CartService interface {
	Init(ctx context.Context) error
	SelectedWashers(ctx context.Context) ([]int, error)
	SelectedDryers(ctx context.Context) ([]int, error)

	AddWasher(ctx context.Context, machineID int) error
	RemoveWasher(ctx context.Context, machineID int) error
	AddDryer(ctx context.Context, machineID int) error
	RemoveDryer(ctx context.Context, machineID int) error

	// EnsureWasherSelections backfills a default configuration for every
	// selected washer that has none yet, persisting the defaults. Called on
	// first entry to the cycle-configuration screen.
	EnsureWasherSelections(ctx context.Context) ([]model.MachineSelection, error)
	EnsureDryerSelections(ctx context.Context) ([]model.MachineSelection, error)

	SelectWasherCycle(ctx context.Context, machineID int, cycleID string) (model.MachineSelection, error)
	SelectWasherTemperature(ctx context.Context, machineID int, temperatureID string) (model.MachineSelection, error)
	ToggleWasherExtra(ctx context.Context, machineID int, optionID string) (model.MachineSelection, error)

	SelectDryerCycle(ctx context.Context, machineID int, cycleID string) (model.MachineSelection, error)
	SelectDryerDuration(ctx context.Context, machineID int, minutes int) (model.MachineSelection, error)
	ToggleDryerExtra(ctx context.Context, machineID int, optionID string) (model.MachineSelection, error)

	WasherCycles(ctx context.Context) (map[int]model.MachineSelection, error)
	DryerCycles(ctx context.Context) (map[int]model.MachineSelection, error)

	AddProduct(ctx context.Context, product model.Product) error
	SetProductQuantity(ctx context.Context, productID, quantity int) error

	Total(ctx context.Context) (int64, error)
	Summary(ctx context.Context) (*CartSummary, error)
	Clear(ctx context.Context) error
}

func NewCartService(repo model.CartRepository, catalog *model.Catalog, directory *model.Directory, dispatcher EventDispatcher) CartService {
	return &cartService{
		repo:       repo,
		catalog:    catalog,
		directory:  directory,
		dispatcher: dispatcher,
	}
}

type cartService struct {
	repo       model.CartRepository
	catalog    *model.Catalog
	directory  *model.Directory
	dispatcher EventDispatcher

	// The kiosk UI issues one request at a time; the mutex only guards
	// against overlapping taps racing a read-modify-write.
	mu sync.Mutex
}

// Init persists the empty defaults on first run. Loading an absent record
// already yields an empty cart, so this only matters for stores that want
// the five records materialized up front.
func (s *cartService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, cart)
}

func (s *cartService) SelectedWashers(ctx context.Context) ([]int, error) {
	cart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cart.Washers, nil
}

func (s *cartService) SelectedDryers(ctx context.Context) ([]int, error) {
	cart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cart.Dryers, nil
}

func (s *cartService) AddWasher(ctx context.Context, machineID int) error {
	return s.addMachine(ctx, machineID, model.Washer)
}

func (s *cartService) AddDryer(ctx context.Context, machineID int) error {
	return s.addMachine(ctx, machineID, model.Dryer)
}

func (s *cartService) addMachine(ctx context.Context, machineID int, kind model.MachineKind) error {
	machine, err := s.directory.Lookup(machineID)
	if err != nil {
		return err
	}
	if machine.Kind != kind {
		return ErrWrongMachineKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if kind == model.Washer {
		cart.AddWasher(machineID)
	} else {
		cart.AddDryer(machineID)
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.MachineSelected{MachineID: machineID, Kind: kind})
	return nil
}

func (s *cartService) RemoveWasher(ctx context.Context, machineID int) error {
	return s.removeMachine(ctx, machineID, model.Washer)
}

func (s *cartService) RemoveDryer(ctx context.Context, machineID int) error {
	return s.removeMachine(ctx, machineID, model.Dryer)
}

func (s *cartService) removeMachine(ctx context.Context, machineID int, kind model.MachineKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if kind == model.Washer {
		cart.RemoveWasher(machineID)
	} else {
		cart.RemoveDryer(machineID)
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.MachineDeselected{MachineID: machineID, Kind: kind})
	return nil
}

func (s *cartService) EnsureWasherSelections(ctx context.Context) ([]model.MachineSelection, error) {
	return s.ensureSelections(ctx, model.Washer)
}

func (s *cartService) EnsureDryerSelections(ctx context.Context) ([]model.MachineSelection, error) {
	return s.ensureSelections(ctx, model.Dryer)
}

func (s *cartService) ensureSelections(ctx context.Context, kind model.MachineKind) ([]model.MachineSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	ids := cart.Washers
	selections := cart.WasherSelections
	if kind == model.Dryer {
		ids = cart.Dryers
		selections = cart.DryerSelections
	}

	out := make([]model.MachineSelection, 0, len(ids))
	dirty := false
	for _, id := range ids {
		sel, ok := selections[id]
		if !ok {
			sel, err = s.defaultSelection(id, kind)
			if err != nil {
				return nil, err
			}
			selections[id] = sel
			dirty = true
		}
		out = append(out, sel)
	}

	// Defaults are committed state, not UI placeholders.
	if dirty {
		if err := s.repo.Save(ctx, cart); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// defaultSelection builds the configuration a machine starts on: the first
// cycle in its table, the first temperature for washers or the catalog's
// default duration entry for dryers, and no extra.
func (s *cartService) defaultSelection(machineID int, kind model.MachineKind) (model.MachineSelection, error) {
	machine, err := s.directory.Lookup(machineID)
	if err != nil {
		return model.MachineSelection{}, err
	}
	cycles, err := s.catalog.CyclesForMachine(machine)
	if err != nil {
		return model.MachineSelection{}, err
	}
	cycle := cycles[0]

	if kind == model.Washer {
		return model.MachineSelection{
			MachineID:     machineID,
			CycleID:       cycle.ID,
			TemperatureID: cycle.Temperatures[0].ID,
			PriceCents:    cycle.PriceCents,
		}, nil
	}

	duration := s.catalog.DefaultDryerDuration(cycle)
	return model.MachineSelection{
		MachineID:       machineID,
		CycleID:         cycle.ID,
		DurationMinutes: duration.Minutes,
		PriceCents:      duration.PriceCents,
	}, nil
}

func (s *cartService) SelectWasherCycle(ctx context.Context, machineID int, cycleID string) (model.MachineSelection, error) {
	return s.mutateSelection(ctx, machineID, model.Washer, false, func(machine model.Machine, _ *model.MachineSelection) (model.MachineSelection, error) {
		cycle, err := s.catalog.FindCycle(machine, cycleID)
		if err != nil {
			return model.MachineSelection{}, err
		}
		// Changing the cycle resets temperature and clears the extra.
		return model.MachineSelection{
			MachineID:     machineID,
			CycleID:       cycle.ID,
			TemperatureID: cycle.Temperatures[0].ID,
			PriceCents:    cycle.PriceCents,
		}, nil
	})
}

func (s *cartService) SelectWasherTemperature(ctx context.Context, machineID int, temperatureID string) (model.MachineSelection, error) {
	return s.mutateSelection(ctx, machineID, model.Washer, true, func(machine model.Machine, current *model.MachineSelection) (model.MachineSelection, error) {
		cycle, err := s.catalog.FindCycle(machine, current.CycleID)
		if err != nil {
			return model.MachineSelection{}, err
		}
		found := false
		for _, t := range cycle.Temperatures {
			if t.ID == temperatureID {
				found = true
				break
			}
		}
		if !found {
			return model.MachineSelection{}, ErrTemperatureNotFound
		}

		next := *current
		next.TemperatureID = temperatureID
		next.PriceCents = washerPrice(cycle, next.Extra)
		return next, nil
	})
}

func (s *cartService) ToggleWasherExtra(ctx context.Context, machineID int, optionID string) (model.MachineSelection, error) {
	return s.mutateSelection(ctx, machineID, model.Washer, true, func(machine model.Machine, current *model.MachineSelection) (model.MachineSelection, error) {
		cycle, err := s.catalog.FindCycle(machine, current.CycleID)
		if err != nil {
			return model.MachineSelection{}, err
		}
		next := *current
		if err := toggleExtra(&next, cycle, optionID); err != nil {
			return model.MachineSelection{}, err
		}
		next.PriceCents = washerPrice(cycle, next.Extra)
		return next, nil
	})
}

func (s *cartService) SelectDryerCycle(ctx context.Context, machineID int, cycleID string) (model.MachineSelection, error) {
	return s.mutateSelection(ctx, machineID, model.Dryer, false, func(machine model.Machine, _ *model.MachineSelection) (model.MachineSelection, error) {
		cycle, err := s.catalog.FindCycle(machine, cycleID)
		if err != nil {
			return model.MachineSelection{}, err
		}
		// A cycle change resets to the cycle's first duration.
		duration := cycle.Durations[0]
		return model.MachineSelection{
			MachineID:       machineID,
			CycleID:         cycle.ID,
			DurationMinutes: duration.Minutes,
			PriceCents:      duration.PriceCents,
		}, nil
	})
}

func (s *cartService) SelectDryerDuration(ctx context.Context, machineID int, minutes int) (model.MachineSelection, error) {
	return s.mutateSelection(ctx, machineID, model.Dryer, true, func(machine model.Machine, current *model.MachineSelection) (model.MachineSelection, error) {
		cycle, err := s.catalog.FindCycle(machine, current.CycleID)
		if err != nil {
			return model.MachineSelection{}, err
		}
		duration, err := findDuration(cycle, minutes)
		if err != nil {
			return model.MachineSelection{}, err
		}

		next := *current
		next.DurationMinutes = duration.Minutes
		next.PriceCents = dryerPrice(duration, next.Extra)
		return next, nil
	})
}

func (s *cartService) ToggleDryerExtra(ctx context.Context, machineID int, optionID string) (model.MachineSelection, error) {
	return s.mutateSelection(ctx, machineID, model.Dryer, true, func(machine model.Machine, current *model.MachineSelection) (model.MachineSelection, error) {
		cycle, err := s.catalog.FindCycle(machine, current.CycleID)
		if err != nil {
			return model.MachineSelection{}, err
		}
		duration, err := findDuration(cycle, current.DurationMinutes)
		if err != nil {
			return model.MachineSelection{}, err
		}

		next := *current
		if err := toggleExtra(&next, cycle, optionID); err != nil {
			return model.MachineSelection{}, err
		}
		next.PriceCents = dryerPrice(duration, next.Extra)
		return next, nil
	})
}

// mutateSelection runs the shared load/validate/recompute/persist path for
// every cycle-configuration write. requireExisting distinguishes operations
// that modify a selection (temperature, duration, extras) from cycle
// selection, which may create the record outright.
func (s *cartService) mutateSelection(
	ctx context.Context,
	machineID int,
	kind model.MachineKind,
	requireExisting bool,
	mutate func(machine model.Machine, current *model.MachineSelection) (model.MachineSelection, error),
) (model.MachineSelection, error) {
	machine, err := s.directory.Lookup(machineID)
	if err != nil {
		return model.MachineSelection{}, err
	}
	if machine.Kind != kind {
		return model.MachineSelection{}, ErrWrongMachineKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return model.MachineSelection{}, err
	}

	inCart := cart.HasWasher(machineID)
	selections := cart.WasherSelections
	if kind == model.Dryer {
		inCart = cart.HasDryer(machineID)
		selections = cart.DryerSelections
	}
	if !inCart {
		return model.MachineSelection{}, ErrMachineNotInCart
	}

	current, ok := selections[machineID]
	if !ok && requireExisting {
		return model.MachineSelection{}, model.ErrSelectionNotFound
	}

	next, err := mutate(machine, &current)
	if err != nil {
		return model.MachineSelection{}, err
	}

	// Whole-record replacement: a reader never observes a half-updated
	// selection.
	selections[machineID] = next
	if err := s.repo.Save(ctx, cart); err != nil {
		return model.MachineSelection{}, err
	}

	_ = s.dispatcher.Dispatch(model.CycleConfigured{MachineID: machineID, CycleID: next.CycleID, PriceCents: next.PriceCents})
	return next, nil
}

func (s *cartService) WasherCycles(ctx context.Context) (map[int]model.MachineSelection, error) {
	cart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cart.WasherSelections, nil
}

func (s *cartService) DryerCycles(ctx context.Context) (map[int]model.MachineSelection, error) {
	cart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cart.DryerSelections, nil
}

func (s *cartService) AddProduct(ctx context.Context, product model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	cart.AddProduct(product)
	if err := s.repo.Save(ctx, cart); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductAdded{ProductID: product.ID, Quantity: 1})
	return nil
}

func (s *cartService) SetProductQuantity(ctx context.Context, productID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if err := cart.SetProductQuantity(productID, quantity); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductQuantityChanged{ProductID: productID, Quantity: quantity})
	return nil
}

func (s *cartService) Total(ctx context.Context) (int64, error) {
	cart, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}
	return cart.TotalCents(), nil
}

func (s *cartService) Summary(ctx context.Context) (*CartSummary, error) {
	cart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return buildSummary(cart, s.catalog, s.directory)
}

func (s *cartService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	_ = s.dispatcher.Dispatch(model.CartCleared{})
	return nil
}

func washerPrice(cycle model.CycleOption, extra *model.ExtraOption) int64 {
	price := cycle.PriceCents
	if extra != nil {
		price += extra.PriceCents
	}
	return price
}

func dryerPrice(duration model.DurationOption, extra *model.ExtraOption) int64 {
	price := duration.PriceCents
	if extra != nil {
		price += extra.PriceCents
	}
	return price
}

func findDuration(cycle model.CycleOption, minutes int) (model.DurationOption, error) {
	for _, d := range cycle.Durations {
		if d.Minutes == minutes {
			return d, nil
		}
	}
	return model.DurationOption{}, ErrDurationNotFound
}

// toggleExtra applies the single-slot toggle: the active extra toggles off,
// anything else replaces it. Two extras are never active together.
func toggleExtra(sel *model.MachineSelection, cycle model.CycleOption, optionID string) error {
	if sel.Extra != nil && sel.Extra.ID == optionID {
		sel.Extra = nil
		return nil
	}
	for i := range cycle.ExtraOptions {
		if cycle.ExtraOptions[i].ID == optionID {
			opt := cycle.ExtraOptions[i]
			sel.Extra = &opt
			return nil
		}
	}
	return ErrExtraOptionNotFound
}
