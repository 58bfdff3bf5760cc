// Package mysql persists the kiosk cart as five independently serialized
// records (selected washers, selected dryers, products, washer cycle map,
// dryer cycle map), one row each. A missing row reads as the record's empty
// default, so a fresh database behaves like a cleared cart.
package mysql

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"kiosk/pkg/domain/model"
)

const (
	recordWashers      = "selected_washers"
	recordDryers       = "selected_dryers"
	recordProducts     = "selected_products"
	recordWasherCycles = "washer_cycles"
	recordDryerCycles  = "dryer_cycles"
)

type CartRepository struct {
	db      *sqlx.DB
	kioskID string
}

func NewCartRepository(db *sqlx.DB, kioskID string) *CartRepository {
	return &CartRepository{db: db, kioskID: kioskID}
}

type selectionRecord struct {
	MachineID       int          `json:"machineId"`
	CycleID         string       `json:"cycleId"`
	TemperatureID   string       `json:"temperatureId,omitempty"`
	DurationMinutes int          `json:"durationMinutes,omitempty"`
	Extra           *extraRecord `json:"extra,omitempty"`
	PriceCents      int64        `json:"priceCents"`
}

type extraRecord struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	PriceCents           int64  `json:"priceCents"`
	DurationMinutesDelta int    `json:"durationMinutesDelta,omitempty"`
}

type productRecord struct {
	ProductID  int    `json:"productId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

func (r *CartRepository) Load(ctx context.Context) (*model.Cart, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT record_name, payload FROM cart_records WHERE kiosk_id = ?`, r.kioskID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart records")
	}
	defer rows.Close()

	cart := model.NewCart()
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, errors.Wrap(err, "scan cart record")
		}
		if err := applyRecord(cart, name, payload); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate cart records")
	}
	return cart, nil
}

func (r *CartRepository) Save(ctx context.Context, c *model.Cart) error {
	records, err := encodeRecords(c)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin cart save")
	}
	defer tx.Rollback()

	for name, payload := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cart_records (kiosk_id, record_name, payload)
			 VALUES (?, ?, ?)
			 ON DUPLICATE KEY UPDATE payload = VALUES(payload)`,
			r.kioskID, name, payload); err != nil {
			return errors.Wrapf(err, "save cart record %s", name)
		}
	}
	return errors.Wrap(tx.Commit(), "commit cart save")
}

func (r *CartRepository) Clear(ctx context.Context) error {
	return r.Save(ctx, model.NewCart())
}

func encodeRecords(c *model.Cart) (map[string][]byte, error) {
	washerCycles := make(map[string]selectionRecord, len(c.WasherSelections))
	for id, sel := range c.WasherSelections {
		washerCycles[strconv.Itoa(id)] = toSelectionRecord(sel)
	}
	dryerCycles := make(map[string]selectionRecord, len(c.DryerSelections))
	for id, sel := range c.DryerSelections {
		dryerCycles[strconv.Itoa(id)] = toSelectionRecord(sel)
	}
	products := make([]productRecord, 0, len(c.Products))
	for _, p := range c.Products {
		products = append(products, productRecord(p))
	}

	out := map[string][]byte{}
	for name, v := range map[string]interface{}{
		recordWashers:      c.Washers,
		recordDryers:       c.Dryers,
		recordProducts:     products,
		recordWasherCycles: washerCycles,
		recordDryerCycles:  dryerCycles,
	} {
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encode cart record %s", name)
		}
		out[name] = payload
	}
	return out, nil
}

func applyRecord(cart *model.Cart, name string, payload []byte) error {
	switch name {
	case recordWashers:
		return decodeInto(name, payload, &cart.Washers)
	case recordDryers:
		return decodeInto(name, payload, &cart.Dryers)
	case recordProducts:
		var records []productRecord
		if err := decodeInto(name, payload, &records); err != nil {
			return err
		}
		for _, rec := range records {
			cart.Products = append(cart.Products, model.ProductSelection(rec))
		}
	case recordWasherCycles:
		return decodeSelections(name, payload, cart.WasherSelections)
	case recordDryerCycles:
		return decodeSelections(name, payload, cart.DryerSelections)
	}
	// Unknown record names are ignored; older deployments may leave extras.
	return nil
}

func decodeSelections(name string, payload []byte, into map[int]model.MachineSelection) error {
	var records map[string]selectionRecord
	if err := decodeInto(name, payload, &records); err != nil {
		return err
	}
	for key, rec := range records {
		id, err := strconv.Atoi(key)
		if err != nil {
			return errors.Wrapf(err, "decode cart record %s key %q", name, key)
		}
		into[id] = fromSelectionRecord(rec)
	}
	return nil
}

func decodeInto(name string, payload []byte, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(payload, v), "decode cart record %s", name)
}

func toSelectionRecord(sel model.MachineSelection) selectionRecord {
	rec := selectionRecord{
		MachineID:       sel.MachineID,
		CycleID:         sel.CycleID,
		TemperatureID:   sel.TemperatureID,
		DurationMinutes: sel.DurationMinutes,
		PriceCents:      sel.PriceCents,
	}
	if sel.Extra != nil {
		rec.Extra = &extraRecord{
			ID:                   sel.Extra.ID,
			Name:                 sel.Extra.Name,
			PriceCents:           sel.Extra.PriceCents,
			DurationMinutesDelta: sel.Extra.DurationMinutesDelta,
		}
	}
	return rec
}

func fromSelectionRecord(rec selectionRecord) model.MachineSelection {
	sel := model.MachineSelection{
		MachineID:       rec.MachineID,
		CycleID:         rec.CycleID,
		TemperatureID:   rec.TemperatureID,
		DurationMinutes: rec.DurationMinutes,
		PriceCents:      rec.PriceCents,
	}
	if rec.Extra != nil {
		sel.Extra = &model.ExtraOption{
			ID:                   rec.Extra.ID,
			Name:                 rec.Extra.Name,
			PriceCents:           rec.Extra.PriceCents,
			DurationMinutesDelta: rec.Extra.DurationMinutesDelta,
		}
	}
	return sel
}

var _ model.CartRepository = (*CartRepository)(nil)
