// Package memory holds the in-memory cart store used by tests and by
// kiosks running without a database.
package memory

import (
	"context"
	"sync"

	"kiosk/pkg/domain/model"
)

type CartRepository struct {
	mu   sync.Mutex
	cart *model.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{cart: model.NewCart()}
}

func (r *CartRepository) Load(_ context.Context) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneCart(r.cart), nil
}

func (r *CartRepository) Save(_ context.Context, c *model.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = cloneCart(c)
	return nil
}

func (r *CartRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart = model.NewCart()
	return nil
}

// cloneCart copies the aggregate so callers never share state with the
// store. Extra pointers are duplicated too; a selection handed out is
// immutable from the store's point of view.
func cloneCart(c *model.Cart) *model.Cart {
	out := model.NewCart()
	out.Washers = append(out.Washers, c.Washers...)
	out.Dryers = append(out.Dryers, c.Dryers...)
	for id, sel := range c.WasherSelections {
		out.WasherSelections[id] = cloneSelection(sel)
	}
	for id, sel := range c.DryerSelections {
		out.DryerSelections[id] = cloneSelection(sel)
	}
	out.Products = append(out.Products, c.Products...)
	return out
}

func cloneSelection(sel model.MachineSelection) model.MachineSelection {
	if sel.Extra != nil {
		extra := *sel.Extra
		sel.Extra = &extra
	}
	return sel
}
