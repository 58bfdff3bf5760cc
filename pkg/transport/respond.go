package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

type unavailableResponse struct {
	Error      string `json:"error"`
	MachineIDs []int  `json:"machineIds"`
}

type selectionView struct {
	MachineID       int        `json:"machineId"`
	CycleID         string     `json:"cycleId"`
	TemperatureID   string     `json:"temperatureId,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
	Extra           *extraView `json:"extra,omitempty"`
	PriceCents      int64      `json:"priceCents"`
}

type extraView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
}

type decoratedSelectionView struct {
	selectionView
	CycleName       string `json:"cycleName"`
	TemperatureName string `json:"temperatureName,omitempty"`
	RunMinutes      int    `json:"runMinutes"`
}

type productLineView struct {
	ProductID  int    `json:"productId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

type cartView struct {
	WasherIDs    []int                          `json:"washerIds"`
	DryerIDs     []int                          `json:"dryerIds"`
	WasherCycles map[int]decoratedSelectionView `json:"washerCycles"`
	DryerCycles  map[int]decoratedSelectionView `json:"dryerCycles"`
	Products     []productLineView              `json:"products"`
	TotalCents   int64                          `json:"totalCents"`
}

type machineView struct {
	MachineID   int    `json:"machineId"`
	CapacityLbs int    `json:"capacityLbs,omitempty"`
	State       string `json:"state"`
	Remaining   int    `json:"remainingSeconds"`
	VendCents   int64  `json:"vendCents,omitempty"`
	Selected    bool   `json:"selected"`
	Selectable  bool   `json:"selectable"`
}

type machineGroupView struct {
	Label    string        `json:"label"`
	Machines []machineView `json:"machines"`
}

type productView struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
}

type scanView struct {
	MachineID int    `json:"machineId"`
	Kind      string `json:"kind"`
}

type checkoutView struct {
	TransactionID   string                   `json:"transactionId"`
	OrderID         string                   `json:"orderId"`
	Washers         []decoratedSelectionView `json:"washers"`
	Dryers          []decoratedSelectionView `json:"dryers"`
	Products        []productLineView        `json:"products"`
	TotalCents      int64                    `json:"totalCents"`
	TotalMinutes    int                      `json:"totalMinutes"`
	EstimatedFinish time.Time                `json:"estimatedFinish"`
}

func selectionResponse(sel model.MachineSelection) selectionView {
	view := selectionView{
		MachineID:       sel.MachineID,
		CycleID:         sel.CycleID,
		TemperatureID:   sel.TemperatureID,
		DurationMinutes: sel.DurationMinutes,
		PriceCents:      sel.PriceCents,
	}
	if sel.Extra != nil {
		view.Extra = &extraView{ID: sel.Extra.ID, Name: sel.Extra.Name, PriceCents: sel.Extra.PriceCents}
	}
	return view
}

func selectionResponses(selections []model.MachineSelection) []selectionView {
	out := make([]selectionView, 0, len(selections))
	for _, sel := range selections {
		out = append(out, selectionResponse(sel))
	}
	return out
}

func decoratedResponse(view service.SelectionView) decoratedSelectionView {
	return decoratedSelectionView{
		selectionView:   selectionResponse(view.MachineSelection),
		CycleName:       view.CycleName,
		TemperatureName: view.TemperatureName,
		RunMinutes:      view.RunMinutes,
	}
}

func summaryView(summary *service.CartSummary) cartView {
	view := cartView{
		WasherIDs:    summary.WasherIDs,
		DryerIDs:     summary.DryerIDs,
		WasherCycles: make(map[int]decoratedSelectionView, len(summary.WasherCycles)),
		DryerCycles:  make(map[int]decoratedSelectionView, len(summary.DryerCycles)),
		Products:     make([]productLineView, 0, len(summary.Products)),
		TotalCents:   summary.TotalCents,
	}
	for id, sel := range summary.WasherCycles {
		view.WasherCycles[id] = decoratedResponse(sel)
	}
	for id, sel := range summary.DryerCycles {
		view.DryerCycles[id] = decoratedResponse(sel)
	}
	for _, p := range summary.Products {
		view.Products = append(view.Products, productLineView(p))
	}
	return view
}

func machineGroupViews(groups []service.MachineGroup) []machineGroupView {
	views := make([]machineGroupView, 0, len(groups))
	for _, g := range groups {
		group := machineGroupView{Label: g.Label, Machines: make([]machineView, 0, len(g.Machines))}
		for _, m := range g.Machines {
			group.Machines = append(group.Machines, machineView{
				MachineID:   m.Machine.ID,
				CapacityLbs: m.Machine.CapacityLbs,
				State:       m.State.String(),
				Remaining:   m.Remaining,
				VendCents:   m.VendCents,
				Selected:    m.Selected,
				Selectable:  m.Selectable,
			})
		}
		views = append(views, group)
	}
	return views
}

func productViews(products []model.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	return views
}

func receiptView(receipt *service.Receipt) checkoutView {
	view := checkoutView{
		TransactionID:   receipt.TransactionID,
		OrderID:         receipt.OrderID,
		Washers:         make([]decoratedSelectionView, 0, len(receipt.Washers)),
		Dryers:          make([]decoratedSelectionView, 0, len(receipt.Dryers)),
		Products:        make([]productLineView, 0, len(receipt.Products)),
		TotalCents:      receipt.TotalCents,
		TotalMinutes:    receipt.TotalMinutes,
		EstimatedFinish: receipt.EstimatedFinish,
	}
	for _, sel := range receipt.Washers {
		view.Washers = append(view.Washers, decoratedResponse(sel))
	}
	for _, sel := range receipt.Dryers {
		view.Dryers = append(view.Dryers, decoratedResponse(sel))
	}
	for _, p := range receipt.Products {
		view.Products = append(view.Products, productLineView(p))
	}
	return view
}

func kindLabel(kind model.MachineKind) string {
	if kind == model.Dryer {
		return "dryer"
	}
	return "washer"
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithField("err", err).Error("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain sentinels to HTTP statuses. Anything not
// recognized is a 500; the middleware already logged the request.
func writeServiceError(w http.ResponseWriter, err error) {
	var unavailable *service.MachinesUnavailableError
	if errors.As(err, &unavailable) {
		writeJSON(w, http.StatusConflict, unavailableResponse{
			Error:      "machines no longer available",
			MachineIDs: unavailable.MachineIDs,
		})
		return
	}

	switch {
	case errors.Is(err, model.ErrMachineNotFound),
		errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrCycleNotFound),
		errors.Is(err, model.ErrSelectionNotFound),
		errors.Is(err, service.ErrMachineNotInCart):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrWrongMachineKind),
		errors.Is(err, service.ErrTemperatureNotFound),
		errors.Is(err, service.ErrDurationNotFound),
		errors.Is(err, service.ErrExtraOptionNotFound),
		errors.Is(err, model.ErrUnknownCategory):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPaymentDeclined):
		writeError(w, http.StatusPaymentRequired, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
