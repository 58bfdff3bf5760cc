package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
	"kiosk/pkg/infrastructure/memory"
)

func setupRouter(t *testing.T) (http.Handler, *recordingStarter) {
	t.Helper()
	catalog := model.DefaultCatalog()
	directory := model.NewDirectory(catalog.Machines())
	dispatcher := &nopDispatcher{}
	cart := service.NewCartService(memory.NewCartRepository(), catalog, directory, dispatcher)
	starter := &recordingStarter{}
	checkout := service.NewCheckoutService(service.CheckoutDeps{
		Cart:         cart,
		Availability: stubAvailability{},
		Payments:     stubPayments{},
		Orders:       stubOrders{},
		Starter:      starter,
		Dispatcher:   dispatcher,
	})
	status := service.NewStatusService(stubStatusSource{}, directory, cart)
	return Router(cart, checkout, status, stubProducts{}, directory), starter
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// Selecting a washer and opening the configuration screen must commit a
// priced default, so the cart total reflects the machine before any
// explicit cycle choice.
func TestConfigRouteCommitsDefaults(t *testing.T) {
	router, _ := setupRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/cart/washers/21", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Before the configuration screen, nothing is priced yet.
	rec = do(t, router, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var before cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.Equal(t, int64(0), before.TotalCents)

	rec = do(t, router, http.MethodGet, "/api/v1/cart/washers/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var selections []selectionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &selections))
	require.Len(t, selections, 1)
	assert.Equal(t, "cyc_1", selections[0].CycleID)
	assert.Equal(t, int64(500), selections[0].PriceCents)

	rec = do(t, router, http.MethodGet, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var after cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, int64(500), after.TotalCents)

	// The committed default makes per-field mutations reachable too.
	rec = do(t, router, http.MethodPost, "/api/v1/cart/washers/21/temperature", `{"temperatureId":"temp_hot"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutChargesConfigScreenDefaults(t *testing.T) {
	router, starter := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/cart/washers/21", "").Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/v1/cart/washers/config", "").Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/cart/dryers/1", "").Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/v1/cart/dryers/config", "").Code)

	rec := do(t, router, http.MethodPost, "/api/v1/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var receipt checkoutView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, int64(800), receipt.TotalCents)

	// Every selected machine gets a start command with its vend amount.
	require.Len(t, starter.commands, 2)
	assert.Equal(t, 21, starter.commands[0].MachineID)
	assert.Equal(t, int64(500), starter.commands[0].Selection.PriceCents)
	assert.Equal(t, 1, starter.commands[1].MachineID)
	assert.Equal(t, int64(300), starter.commands[1].Selection.PriceCents)
}

func TestMutationBeforeConfigScreenIsNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/v1/cart/washers/21", "").Code)

	rec := do(t, router, http.MethodPost, "/api/v1/cart/washers/21/temperature", `{"temperatureId":"temp_hot"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(service.Event) error { return nil }

type stubAvailability struct{}

func (stubAvailability) Check(_ context.Context, _ []int) (service.Availability, error) {
	return service.Availability{Available: true}, nil
}

type stubPayments struct{}

func (stubPayments) Process(_ context.Context, _ string, _ *service.CartSummary) (service.PaymentResult, error) {
	return service.PaymentResult{Success: true, TransactionID: "txn-1", OrderID: "ord-1"}, nil
}

type stubOrders struct{}

func (stubOrders) Create(_ context.Context, _ *service.CartSummary) (service.OrderResult, error) {
	return service.OrderResult{Success: true, OrderID: "ord-1"}, nil
}

type recordingStarter struct {
	commands []service.StartCommand
}

func (s *recordingStarter) Start(_ context.Context, commands []service.StartCommand) ([]service.StartResult, error) {
	s.commands = append(s.commands, commands...)
	return nil, nil
}

type stubStatusSource struct {
	statuses []model.MachineStatus
}

func (s stubStatusSource) MachineStatuses(_ context.Context) ([]model.MachineStatus, error) {
	return s.statuses, nil
}

type stubProducts struct{}

func (stubProducts) Products(_ context.Context) ([]model.Product, error) {
	return []model.Product{{ID: 7, Name: "Detergent", PriceCents: 300}}, nil
}
