package model

import "errors"

var (
	ErrUnknownCategory = errors.New("unknown washer category")
	ErrCycleNotFound   = errors.New("cycle not found")
)

type Temperature struct {
	ID   string
	Name string
}

type DurationOption struct {
	Minutes    int
	PriceCents int64
}

type ExtraOption struct {
	ID                   string
	Name                 string
	PriceCents           int64
	DurationMinutesDelta int
}

// CycleOption describes one selectable wash/dry program. Washer cycles carry
// PriceCents and Temperatures; dryer cycles carry Durations instead.
type CycleOption struct {
	ID              string
	Name            string
	PriceCents      int64
	DurationMinutes int
	Temperatures    []Temperature
	Durations       []DurationOption
	ExtraOptions    []ExtraOption
}

// Catalog holds the fixed machine inventory and the cycle/price tables.
// Built once at startup and never mutated.
type Catalog struct {
	machines     []Machine
	washerCycles map[WasherCategory][]CycleOption
	dryerCycles  []CycleOption

	// defaultDryerDuration is the index of the duration entry used when a
	// dryer selection is created lazily. The kiosk pre-selects the middle
	// 36-minute option; switching cycles afterwards resets to the first.
	defaultDryerDuration int
}

func (c *Catalog) Machines() []Machine {
	out := make([]Machine, len(c.machines))
	copy(out, c.machines)
	return out
}

// CyclesFor returns the cycle table applicable to a machine. Dryers share a
// single table regardless of category; an unrecognized washer category is
// invalid input, not a fallback.
func (c *Catalog) CyclesFor(kind MachineKind, category WasherCategory) ([]CycleOption, error) {
	if kind == Dryer {
		return c.dryerCycles, nil
	}
	cycles, ok := c.washerCycles[category]
	if !ok {
		return nil, ErrUnknownCategory
	}
	return cycles, nil
}

// CyclesForMachine resolves the table through the machine itself.
func (c *Catalog) CyclesForMachine(m Machine) ([]CycleOption, error) {
	return c.CyclesFor(m.Kind, m.Category)
}

// DefaultDryerDuration picks the duration entry a fresh dryer selection
// starts on.
func (c *Catalog) DefaultDryerDuration(cycle CycleOption) DurationOption {
	if c.defaultDryerDuration < len(cycle.Durations) {
		return cycle.Durations[c.defaultDryerDuration]
	}
	return cycle.Durations[0]
}

func findCycle(cycles []CycleOption, cycleID string) (CycleOption, error) {
	for _, cyc := range cycles {
		if cyc.ID == cycleID {
			return cyc, nil
		}
	}
	return CycleOption{}, ErrCycleNotFound
}

// FindCycle locates a cycle by id within a machine's applicable table.
func (c *Catalog) FindCycle(m Machine, cycleID string) (CycleOption, error) {
	cycles, err := c.CyclesForMachine(m)
	if err != nil {
		return CycleOption{}, err
	}
	return findCycle(cycles, cycleID)
}

var standardTemperatures = []Temperature{
	{ID: "temp_cold", Name: "COLD"},
	{ID: "temp_warm", Name: "WARM"},
	{ID: "temp_hot", Name: "HOT"},
}

var hotOnly = []Temperature{
	{ID: "temp_hot", Name: "HOT"},
}

var washerExtras = []ExtraOption{
	{ID: "opt_extra_rinse", Name: "EXTRA RINSE", PriceCents: 50, DurationMinutesDelta: 5},
	{ID: "opt_extra_spin", Name: "EXTRA SPIN", PriceCents: 50, DurationMinutesDelta: 4},
}

var standardDryerDurations = []DurationOption{
	{Minutes: 30, PriceCents: 250},
	{Minutes: 36, PriceCents: 300},
	{Minutes: 48, PriceCents: 400},
}

func washerCycleTable(normal, delicate, bedding, deepClean int64) []CycleOption {
	return []CycleOption{
		{ID: "cyc_1", Name: "NORMAL", PriceCents: normal, DurationMinutes: 22, Temperatures: standardTemperatures, ExtraOptions: washerExtras},
		{ID: "cyc_3", Name: "DELICATE", PriceCents: delicate, DurationMinutes: 18, Temperatures: standardTemperatures, ExtraOptions: washerExtras},
		{ID: "cyc_9", Name: "BEDDING", PriceCents: bedding, DurationMinutes: 35, Temperatures: standardTemperatures, ExtraOptions: washerExtras},
		{ID: "cyc_15", Name: "DEEP CLEAN", PriceCents: deepClean, DurationMinutes: 44, Temperatures: hotOnly, ExtraOptions: washerExtras},
	}
}

// DefaultCatalog builds the production inventory and price tables.
func DefaultCatalog() *Catalog {
	machines := []Machine{
		{ID: 21, Kind: Washer, Category: SmallWasher, CapacityLbs: 20},
		{ID: 22, Kind: Washer, Category: SmallWasher, CapacityLbs: 20},
		{ID: 23, Kind: Washer, Category: SmallWasher, CapacityLbs: 20},
		{ID: 24, Kind: Washer, Category: SmallWasher, CapacityLbs: 20},
		{ID: 41, Kind: Washer, Category: MediumWasher, CapacityLbs: 40},
		{ID: 42, Kind: Washer, Category: MediumWasher, CapacityLbs: 40},
		{ID: 43, Kind: Washer, Category: MediumWasher, CapacityLbs: 40},
		{ID: 44, Kind: Washer, Category: MediumWasher, CapacityLbs: 40},
		{ID: 61, Kind: Washer, Category: LargeWasher, CapacityLbs: 60},
		{ID: 62, Kind: Washer, Category: LargeWasher, CapacityLbs: 60},
		{ID: 63, Kind: Washer, Category: LargeWasher, CapacityLbs: 60},

		{ID: 1, Kind: Dryer, Position: TopDryer},
		{ID: 3, Kind: Dryer, Position: TopDryer},
		{ID: 5, Kind: Dryer, Position: TopDryer},
		{ID: 7, Kind: Dryer, Position: TopDryer},
		{ID: 9, Kind: Dryer, Position: TopDryer},
		{ID: 2, Kind: Dryer, Position: BottomDryer},
		{ID: 4, Kind: Dryer, Position: BottomDryer},
		{ID: 6, Kind: Dryer, Position: BottomDryer},
		{ID: 8, Kind: Dryer, Position: BottomDryer},
		{ID: 10, Kind: Dryer, Position: BottomDryer},
	}

	return &Catalog{
		machines: machines,
		washerCycles: map[WasherCategory][]CycleOption{
			SmallWasher:  washerCycleTable(500, 500, 525, 500),
			MediumWasher: washerCycleTable(850, 850, 1050, 1050),
			LargeWasher:  washerCycleTable(1300, 1300, 1400, 1500),
		},
		dryerCycles: []CycleOption{
			{ID: "cyc_high", Name: "HIGH", Durations: standardDryerDurations},
			{ID: "cyc_medium", Name: "MEDIUM", Durations: standardDryerDurations},
			{ID: "cyc_low", Name: "LOW", Durations: standardDryerDurations},
		},
		defaultDryerDuration: 1,
	}
}

// NewCatalog builds a catalog from explicit tables. Used by tests and by
// deployments with site-specific pricing.
func NewCatalog(machines []Machine, washerCycles map[WasherCategory][]CycleOption, dryerCycles []CycleOption, defaultDryerDuration int) *Catalog {
	return &Catalog{
		machines:             machines,
		washerCycles:         washerCycles,
		dryerCycles:          dryerCycles,
		defaultDryerDuration: defaultDryerDuration,
	}
}
