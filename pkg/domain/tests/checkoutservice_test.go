package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/pkg/domain/model"
	"kiosk/pkg/domain/service"
)

type checkoutFixture struct {
	cart         service.CartService
	checkout     service.CheckoutService
	availability *mockAvailability
	payments     *mockPayments
	orders       *mockOrders
	starter      *mockStarter
	dispatcher   *mockEventDispatcher
	now          time.Time
}

func setupCheckout(t *testing.T) *checkoutFixture {
	t.Helper()
	repo := newMockCartRepository()
	dispatcher := &mockEventDispatcher{}
	catalog := model.DefaultCatalog()
	directory := model.NewDirectory(catalog.Machines())
	cart := service.NewCartService(repo, catalog, directory, dispatcher)

	f := &checkoutFixture{
		cart:         cart,
		availability: &mockAvailability{available: true},
		payments:     &mockPayments{result: service.PaymentResult{Success: true, TransactionID: "txn-1", OrderID: "ord-1"}},
		orders:       &mockOrders{result: service.OrderResult{Success: true, OrderID: "ord-1"}},
		starter:      &mockStarter{},
		dispatcher:   dispatcher,
		now:          time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	f.checkout = service.NewCheckoutService(service.CheckoutDeps{
		Cart:         cart,
		Availability: f.availability,
		Payments:     f.payments,
		Orders:       f.orders,
		Starter:      f.starter,
		Dispatcher:   dispatcher,
		Clock:        fixedClock{f.now},
	})
	return f
}

func (f *checkoutFixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cart.AddWasher(ctx, 21))
	_, err := f.cart.EnsureWasherSelections(ctx)
	require.NoError(t, err)
	require.NoError(t, f.cart.AddDryer(ctx, 1))
	_, err = f.cart.EnsureDryerSelections(ctx)
	require.NoError(t, err)
	require.NoError(t, f.cart.AddProduct(ctx, model.Product{ID: 7, Name: "Detergent", PriceCents: 300}))
}

func TestCheckoutSuccess(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()
	f.fillCart(t)

	receipt, err := f.checkout.Checkout(ctx)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, "txn-1", receipt.TransactionID)
	assert.Equal(t, "ord-1", receipt.OrderID)
	assert.Equal(t, int64(1100), receipt.TotalCents)
	assert.Equal(t, 58, receipt.TotalMinutes)
	assert.Equal(t, f.now.Add(58*time.Minute), receipt.EstimatedFinish)
	require.Len(t, receipt.Washers, 1)
	require.Len(t, receipt.Dryers, 1)
	require.Len(t, receipt.Products, 1)

	// Machines start with the paid configuration, washers before dryers.
	require.Len(t, f.starter.commands, 2)
	assert.Equal(t, 21, f.starter.commands[0].MachineID)
	assert.Equal(t, 1, f.starter.commands[1].MachineID)

	// The cart must be empty once payment went through.
	total, err := f.cart.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	var completed *model.CheckoutCompleted
	for _, e := range f.dispatcher.events {
		if c, ok := e.(model.CheckoutCompleted); ok {
			completed = &c
		}
	}
	require.NotNil(t, completed)
	assert.Equal(t, int64(1100), completed.TotalCents)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	f := setupCheckout(t)

	_, err := f.checkout.Checkout(context.Background())
	assert.ErrorIs(t, err, service.ErrEmptyCart)
	assert.Equal(t, 0, f.payments.calls)
}

func TestCheckoutBlocksOnUnavailableMachines(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()
	f.fillCart(t)

	f.availability.available = false
	f.availability.unavailable = []int{21}

	_, err := f.checkout.Checkout(ctx)

	var unavailable *service.MachinesUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []int{21}, unavailable.MachineIDs)

	assert.Equal(t, 0, f.payments.calls, "no charge may be attempted for a taken machine")
	assert.Empty(t, f.starter.commands)

	// The cart is untouched; the user resolves the conflict.
	total, err := f.cart.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), total)
}

func TestCheckoutDeclinedPaymentKeepsCart(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()
	f.fillCart(t)

	f.payments.result = service.PaymentResult{Success: false, Error: "insufficient funds"}

	_, err := f.checkout.Checkout(ctx)
	assert.ErrorIs(t, err, service.ErrPaymentDeclined)

	assert.Equal(t, 0, f.orders.calls)
	assert.Empty(t, f.starter.commands)

	total, err := f.cart.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), total)

	var declined *model.PaymentDeclined
	for _, e := range f.dispatcher.events {
		if d, ok := e.(model.PaymentDeclined); ok {
			declined = &d
		}
	}
	require.NotNil(t, declined)
	assert.Equal(t, "insufficient funds", declined.Reason)
}

func TestCheckoutChargesTheSummaryTotal(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()
	f.fillCart(t)

	_, err := f.checkout.Checkout(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, f.payments.calls)
	assert.Equal(t, int64(1100), f.payments.lastSummary.TotalCents)
	assert.NotEmpty(t, f.payments.lastReference)
}

var _ service.AvailabilityChecker = &mockAvailability{}

type mockAvailability struct {
	available   bool
	unavailable []int
	calls       int
}

func (m *mockAvailability) Check(_ context.Context, _ []int) (service.Availability, error) {
	m.calls++
	return service.Availability{Available: m.available, UnavailableMachineIDs: m.unavailable}, nil
}

var _ service.PaymentProcessor = &mockPayments{}

type mockPayments struct {
	result        service.PaymentResult
	calls         int
	lastReference string
	lastSummary   *service.CartSummary
}

func (m *mockPayments) Process(_ context.Context, referenceID string, summary *service.CartSummary) (service.PaymentResult, error) {
	m.calls++
	m.lastReference = referenceID
	m.lastSummary = summary
	return m.result, nil
}

var _ service.OrderCreator = &mockOrders{}

type mockOrders struct {
	result service.OrderResult
	calls  int
}

func (m *mockOrders) Create(_ context.Context, _ *service.CartSummary) (service.OrderResult, error) {
	m.calls++
	return m.result, nil
}

var _ service.MachineStarter = &mockStarter{}

type mockStarter struct {
	commands []service.StartCommand
}

func (m *mockStarter) Start(_ context.Context, commands []service.StartCommand) ([]service.StartResult, error) {
	m.commands = append(m.commands, commands...)
	results := make([]service.StartResult, 0, len(commands))
	for _, c := range commands {
		results = append(results, service.StartResult{MachineID: c.MachineID, Started: true})
	}
	return results, nil
}

var _ service.Clock = fixedClock{}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
