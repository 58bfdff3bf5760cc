package model

type MachineSelected struct {
	MachineID int
	Kind      MachineKind
}

func (e MachineSelected) Type() string { return "MachineSelected" }

type MachineDeselected struct {
	MachineID int
	Kind      MachineKind
}

func (e MachineDeselected) Type() string { return "MachineDeselected" }

type CycleConfigured struct {
	MachineID  int
	CycleID    string
	PriceCents int64
}

func (e CycleConfigured) Type() string { return "CycleConfigured" }

type ProductAdded struct {
	ProductID int
	Quantity  int
}

func (e ProductAdded) Type() string { return "ProductAdded" }

type ProductQuantityChanged struct {
	ProductID int
	Quantity  int
}

func (e ProductQuantityChanged) Type() string { return "ProductQuantityChanged" }

type CartCleared struct{}

func (e CartCleared) Type() string { return "CartCleared" }

type CheckoutBlocked struct {
	UnavailableMachineIDs []int
}

func (e CheckoutBlocked) Type() string { return "CheckoutBlocked" }

type PaymentDeclined struct {
	Reason string
}

func (e PaymentDeclined) Type() string { return "PaymentDeclined" }

type CheckoutCompleted struct {
	TransactionID string
	OrderID       string
	TotalCents    int64
}

func (e CheckoutCompleted) Type() string { return "CheckoutCompleted" }
