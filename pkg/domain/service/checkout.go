package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kiosk/pkg/domain/model"
)

var (
	ErrEmptyCart       = errors.New("cart has no machines to pay for")
	ErrPaymentDeclined = errors.New("payment was declined")
)

// MachinesUnavailableError aborts a checkout when selected machines were
// taken between selection and payment. The cart entries are left in place;
// the user resolves the conflict on the selection screen.
type MachinesUnavailableError struct {
	MachineIDs []int
}

func (e *MachinesUnavailableError) Error() string {
	return fmt.Sprintf("machines no longer available: %v", e.MachineIDs)
}

type Availability struct {
	Available             bool
	UnavailableMachineIDs []int
}

type AvailabilityChecker interface {
	Check(ctx context.Context, machineIDs []int) (Availability, error)
}

type PaymentResult struct {
	Success       bool
	TransactionID string
	OrderID       string
	Error         string
}

type PaymentProcessor interface {
	// Process charges for the summary. ReferenceID makes resubmissions after
	// a decline idempotent on the processor side.
	Process(ctx context.Context, referenceID string, summary *CartSummary) (PaymentResult, error)
}

type OrderResult struct {
	Success bool
	OrderID string
}

type OrderCreator interface {
	Create(ctx context.Context, summary *CartSummary) (OrderResult, error)
}

type StartCommand struct {
	MachineID int
	Selection model.MachineSelection
}

type StartResult struct {
	MachineID int
	Started   bool
}

type MachineStarter interface {
	Start(ctx context.Context, commands []StartCommand) ([]StartResult, error)
}

// Receipt is what the success screen renders after a completed checkout.
type Receipt struct {
	TransactionID   string
	OrderID         string
	Washers         []SelectionView
	Dryers          []SelectionView
	Products        []model.ProductSelection
	TotalCents      int64
	TotalMinutes    int
	EstimatedFinish time.Time
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CheckoutService drives the payment state machine. The external calls run
// strictly one after another; a failure at any step stops the sequence and
// leaves the cart intact, except that a completed payment always ends with
// the cart cleared.
type CheckoutService interface {
	Checkout(ctx context.Context) (*Receipt, error)
}

type CheckoutDeps struct {
	Cart         CartService
	Availability AvailabilityChecker
	Payments     PaymentProcessor
	Orders       OrderCreator
	Starter      MachineStarter
	Dispatcher   EventDispatcher
	Clock        Clock
}

func NewCheckoutService(deps CheckoutDeps) CheckoutService {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	return &checkoutService{deps: deps}
}

type checkoutService struct {
	deps CheckoutDeps
}

func (s *checkoutService) Checkout(ctx context.Context) (*Receipt, error) {
	summary, err := s.deps.Cart.Summary(ctx)
	if err != nil {
		return nil, err
	}

	machineIDs := append(append([]int{}, summary.WasherIDs...), summary.DryerIDs...)
	if len(machineIDs) == 0 {
		return nil, ErrEmptyCart
	}

	avail, err := s.deps.Availability.Check(ctx, machineIDs)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		_ = s.deps.Dispatcher.Dispatch(model.CheckoutBlocked{UnavailableMachineIDs: avail.UnavailableMachineIDs})
		return nil, &MachinesUnavailableError{MachineIDs: avail.UnavailableMachineIDs}
	}

	referenceID := uuid.New().String()
	payment, err := s.deps.Payments.Process(ctx, referenceID, summary)
	if err != nil {
		return nil, err
	}
	if !payment.Success {
		_ = s.deps.Dispatcher.Dispatch(model.PaymentDeclined{Reason: payment.Error})
		return nil, ErrPaymentDeclined
	}

	order, err := s.deps.Orders.Create(ctx, summary)
	if err != nil {
		return nil, err
	}

	commands := make([]StartCommand, 0, len(machineIDs))
	for _, id := range summary.WasherIDs {
		if view, ok := summary.WasherCycles[id]; ok {
			commands = append(commands, StartCommand{MachineID: id, Selection: view.MachineSelection})
		}
	}
	for _, id := range summary.DryerIDs {
		if view, ok := summary.DryerCycles[id]; ok {
			commands = append(commands, StartCommand{MachineID: id, Selection: view.MachineSelection})
		}
	}
	if _, err := s.deps.Starter.Start(ctx, commands); err != nil {
		return nil, err
	}

	if err := s.deps.Cart.Clear(ctx); err != nil {
		return nil, err
	}

	orderID := order.OrderID
	if orderID == "" {
		orderID = payment.OrderID
	}
	_ = s.deps.Dispatcher.Dispatch(model.CheckoutCompleted{
		TransactionID: payment.TransactionID,
		OrderID:       orderID,
		TotalCents:    summary.TotalCents,
	})

	totalMinutes := summary.TotalMinutes()
	return &Receipt{
		TransactionID:   payment.TransactionID,
		OrderID:         orderID,
		Washers:         orderedViews(summary.WasherIDs, summary.WasherCycles),
		Dryers:          orderedViews(summary.DryerIDs, summary.DryerCycles),
		Products:        summary.Products,
		TotalCents:      summary.TotalCents,
		TotalMinutes:    totalMinutes,
		EstimatedFinish: s.deps.Clock.Now().Add(time.Duration(totalMinutes) * time.Minute),
	}, nil
}

func orderedViews(ids []int, views map[int]SelectionView) []SelectionView {
	out := make([]SelectionView, 0, len(ids))
	for _, id := range ids {
		if v, ok := views[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
