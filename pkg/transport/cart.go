package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"kiosk/pkg/domain/model"
)

type cycleRequest struct {
	CycleID string `json:"cycleId"`
}

type temperatureRequest struct {
	TemperatureID string `json:"temperatureId"`
}

type durationRequest struct {
	Minutes int `json:"minutes"`
}

type extraRequest struct {
	OptionID string `json:"optionId"`
}

type addProductRequest struct {
	ProductID int `json:"productId"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) cartSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cart.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryView(summary))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// washerConfig opens the cycle-configuration screen: every selected washer
// without a selection gets its default committed before the list is
// returned, so the total below the screen already includes each machine.
func (h *Handler) washerConfig(w http.ResponseWriter, r *http.Request) {
	selections, err := h.cart.EnsureWasherSelections(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponses(selections))
}

func (h *Handler) dryerConfig(w http.ResponseWriter, r *http.Request) {
	selections, err := h.cart.EnsureDryerSelections(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponses(selections))
}

func (h *Handler) addWasher(w http.ResponseWriter, r *http.Request) {
	h.mutateMembership(w, r, h.cart.AddWasher)
}

func (h *Handler) removeWasher(w http.ResponseWriter, r *http.Request) {
	h.mutateMembership(w, r, h.cart.RemoveWasher)
}

func (h *Handler) addDryer(w http.ResponseWriter, r *http.Request) {
	h.mutateMembership(w, r, h.cart.AddDryer)
}

func (h *Handler) removeDryer(w http.ResponseWriter, r *http.Request) {
	h.mutateMembership(w, r, h.cart.RemoveDryer)
}

func (h *Handler) mutateMembership(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, machineID int) error) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.cartSummary(w, r)
}

func (h *Handler) selectWasherCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	var req cycleRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.cart.SelectWasherCycle(r.Context(), id, req.CycleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse(sel))
}

func (h *Handler) selectWasherTemperature(w http.ResponseWriter, r *http.Request) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	var req temperatureRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.cart.SelectWasherTemperature(r.Context(), id, req.TemperatureID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse(sel))
}

func (h *Handler) toggleWasherExtra(w http.ResponseWriter, r *http.Request) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	var req extraRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.cart.ToggleWasherExtra(r.Context(), id, req.OptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse(sel))
}

func (h *Handler) selectDryerCycle(w http.ResponseWriter, r *http.Request) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	var req cycleRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.cart.SelectDryerCycle(r.Context(), id, req.CycleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse(sel))
}

func (h *Handler) selectDryerDuration(w http.ResponseWriter, r *http.Request) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	var req durationRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.cart.SelectDryerDuration(r.Context(), id, req.Minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse(sel))
}

func (h *Handler) toggleDryerExtra(w http.ResponseWriter, r *http.Request) {
	id, ok := machineID(w, r)
	if !ok {
		return
	}
	var req extraRequest
	if !decode(w, r, &req) {
		return
	}
	sel, err := h.cart.ToggleDryerExtra(r.Context(), id, req.OptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse(sel))
}

// addProduct resolves the id against the live shelf so the cart snapshots
// the price the buyer saw on screen.
func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if !decode(w, r, &req) {
		return
	}

	products, err := h.products.Products(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var found *model.Product
	for i := range products {
		if products[i].ID == req.ProductID {
			found = &products[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.cart.AddProduct(r.Context(), *found); err != nil {
		writeServiceError(w, err)
		return
	}
	h.cartSummary(w, r)
}

func (h *Handler) setProductQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "product id must be a number")
		return
	}
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.cart.SetProductQuantity(r.Context(), id, req.Quantity); err != nil {
		writeServiceError(w, err)
		return
	}
	h.cartSummary(w, r)
}

func machineID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "machine id must be a number")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
