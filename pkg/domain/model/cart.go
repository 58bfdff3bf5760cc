package model

import (
	"context"
	"errors"
)

var (
	ErrSelectionNotFound = errors.New("machine selection not found")
	ErrProductNotFound   = errors.New("product not found in cart")
)

// Product is a retail item as served by the product source.
type Product struct {
	ID         int
	Name       string
	PriceCents int64
}

// MachineSelection is the committed cycle configuration for one machine in
// the cart. Washer selections carry TemperatureID; dryer selections carry
// DurationMinutes. Extra is the single active add-on, nil when none.
// PriceCents is base price plus the extra's price and is kept consistent by
// the cart service on every mutation.
type MachineSelection struct {
	MachineID       int
	CycleID         string
	TemperatureID   string
	DurationMinutes int
	Extra           *ExtraOption
	PriceCents      int64
}

// ProductSelection is one retail line item. Name and PriceCents are
// snapshotted at add time and never refreshed from the product source.
type ProductSelection struct {
	ProductID  int
	Name       string
	PriceCents int64
	Quantity   int
}

// Cart is the aggregate root for one kiosk session: which machines are
// selected, how each is configured, and which retail items ride along.
// Selection order is insertion order; machine ids never repeat.
type Cart struct {
	Washers          []int
	Dryers           []int
	WasherSelections map[int]MachineSelection
	DryerSelections  map[int]MachineSelection
	Products         []ProductSelection
}

func NewCart() *Cart {
	return &Cart{
		Washers:          []int{},
		Dryers:           []int{},
		WasherSelections: map[int]MachineSelection{},
		DryerSelections:  map[int]MachineSelection{},
		Products:         []ProductSelection{},
	}
}

// AddWasher is idempotent: adding an id already present is a no-op.
func (c *Cart) AddWasher(machineID int) {
	c.Washers = addID(c.Washers, machineID)
}

// RemoveWasher drops the id and its selection. Idempotent.
func (c *Cart) RemoveWasher(machineID int) {
	c.Washers = removeID(c.Washers, machineID)
	delete(c.WasherSelections, machineID)
}

func (c *Cart) AddDryer(machineID int) {
	c.Dryers = addID(c.Dryers, machineID)
}

func (c *Cart) RemoveDryer(machineID int) {
	c.Dryers = removeID(c.Dryers, machineID)
	delete(c.DryerSelections, machineID)
}

// SetWasherSelection overwrites the whole selection record. Callers
// read-modify-write the full record; partial merges are not supported.
func (c *Cart) SetWasherSelection(sel MachineSelection) {
	c.WasherSelections[sel.MachineID] = sel
}

func (c *Cart) SetDryerSelection(sel MachineSelection) {
	c.DryerSelections[sel.MachineID] = sel
}

func (c *Cart) HasWasher(machineID int) bool { return containsID(c.Washers, machineID) }
func (c *Cart) HasDryer(machineID int) bool  { return containsID(c.Dryers, machineID) }

// AddProduct increments quantity for a known product id, keeping the
// originally snapshotted name and price; otherwise appends a new line with
// quantity 1.
func (c *Cart) AddProduct(p Product) {
	for i := range c.Products {
		if c.Products[i].ProductID == p.ID {
			c.Products[i].Quantity++
			return
		}
	}
	c.Products = append(c.Products, ProductSelection{
		ProductID:  p.ID,
		Name:       p.Name,
		PriceCents: p.PriceCents,
		Quantity:   1,
	})
}

// SetProductQuantity sets the quantity for a line item; quantity <= 0
// removes the line entirely.
func (c *Cart) SetProductQuantity(productID, quantity int) error {
	for i := range c.Products {
		if c.Products[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.Products = append(c.Products[:i], c.Products[i+1:]...)
		} else {
			c.Products[i].Quantity = quantity
		}
		return nil
	}
	return ErrProductNotFound
}

// TotalCents recomputes the cart total from scratch: washer selections, then
// dryer selections, then product line totals. Never cached.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, id := range c.Washers {
		if sel, ok := c.WasherSelections[id]; ok {
			total += sel.PriceCents
		}
	}
	for _, id := range c.Dryers {
		if sel, ok := c.DryerSelections[id]; ok {
			total += sel.PriceCents
		}
	}
	for _, p := range c.Products {
		total += p.PriceCents * int64(p.Quantity)
	}
	return total
}

// MachineIDs returns washers then dryers, the order checkout submits them.
func (c *Cart) MachineIDs() []int {
	out := make([]int, 0, len(c.Washers)+len(c.Dryers))
	out = append(out, c.Washers...)
	out = append(out, c.Dryers...)
	return out
}

// Clear empties every collection.
func (c *Cart) Clear() {
	c.Washers = []int{}
	c.Dryers = []int{}
	c.WasherSelections = map[int]MachineSelection{}
	c.DryerSelections = map[int]MachineSelection{}
	c.Products = []ProductSelection{}
}

// CartRepository is the persistence port for the kiosk's cart. The backing
// store keeps five independently serialized records (washer ids, dryer ids,
// products, washer cycle map, dryer cycle map); a missing record loads as
// its empty default, so Load never fails on first run.
type CartRepository interface {
	Load(ctx context.Context) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context) error
}

func addID(ids []int, id int) []int {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
