package transport

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
)

type Handler struct {
	cart      service.CartService
	checkout  service.CheckoutService
	status    service.StatusService
	products  service.ProductSource
	directory *model.Directory
}

func Router(
	cart service.CartService,
	checkout service.CheckoutService,
	status service.StatusService,
	products service.ProductSource,
	directory *model.Directory,
) http.Handler {
	handler := &Handler{
		cart:      cart,
		checkout:  checkout,
		status:    status,
		products:  products,
		directory: directory,
	}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/machines", handler.listMachines).Methods(http.MethodGet)
	s.HandleFunc("/products", handler.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/scan", handler.scanMachine).Methods(http.MethodGet)

	s.HandleFunc("/cart", handler.cartSummary).Methods(http.MethodGet)
	s.HandleFunc("/cart/clear", handler.clearCart).Methods(http.MethodPost)

	s.HandleFunc("/cart/washers/config", handler.washerConfig).Methods(http.MethodGet)
	s.HandleFunc("/cart/dryers/config", handler.dryerConfig).Methods(http.MethodGet)

	s.HandleFunc("/cart/washers/{id}", handler.addWasher).Methods(http.MethodPost)
	s.HandleFunc("/cart/washers/{id}", handler.removeWasher).Methods(http.MethodDelete)
	s.HandleFunc("/cart/washers/{id}/cycle", handler.selectWasherCycle).Methods(http.MethodPost)
	s.HandleFunc("/cart/washers/{id}/temperature", handler.selectWasherTemperature).Methods(http.MethodPost)
	s.HandleFunc("/cart/washers/{id}/extra", handler.toggleWasherExtra).Methods(http.MethodPost)

	s.HandleFunc("/cart/dryers/{id}", handler.addDryer).Methods(http.MethodPost)
	s.HandleFunc("/cart/dryers/{id}", handler.removeDryer).Methods(http.MethodDelete)
	s.HandleFunc("/cart/dryers/{id}/cycle", handler.selectDryerCycle).Methods(http.MethodPost)
	s.HandleFunc("/cart/dryers/{id}/duration", handler.selectDryerDuration).Methods(http.MethodPost)
	s.HandleFunc("/cart/dryers/{id}/extra", handler.toggleDryerExtra).Methods(http.MethodPost)

	s.HandleFunc("/cart/products", handler.addProduct).Methods(http.MethodPost)
	s.HandleFunc("/cart/products/{id}", handler.setProductQuantity).Methods(http.MethodPut)

	s.HandleFunc("/checkout", handler.doCheckout).Methods(http.MethodPost)

	return logMiddleware(r)
}

func (h *Handler) listMachines(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	showBusy := r.URL.Query().Get("show_busy") == "true"

	var (
		groups []service.MachineGroup
		err    error
	)
	switch kind {
	case "washer":
		groups, err = h.status.WasherGroups(r.Context(), showBusy)
	case "dryer":
		groups, err = h.status.DryerGroups(r.Context(), showBusy)
	default:
		writeError(w, http.StatusBadRequest, "kind must be washer or dryer")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, machineGroupViews(groups))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Products(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, productViews(products))
}

// scanMachine is the QR entry point. A valid id lands in the cart
// immediately, so the kiosk opens with the scanned machine pre-selected.
func (h *Handler) scanMachine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("machine_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "machine_id must be a number")
		return
	}

	machine, err := h.directory.Lookup(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid machine")
		return
	}

	switch machine.Kind {
	case model.Washer:
		err = h.cart.AddWasher(r.Context(), id)
	case model.Dryer:
		err = h.cart.AddDryer(r.Context(), id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scanView{MachineID: machine.ID, Kind: kindLabel(machine.Kind)})
}

func (h *Handler) doCheckout(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.checkout.Checkout(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log.WithFields(log.Fields{
		"transactionId": receipt.TransactionID,
		"orderId":       receipt.OrderID,
		"totalCents":    receipt.TotalCents,
	}).Info("checkout completed")
	writeJSON(w, http.StatusOK, receiptView(receipt))
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
