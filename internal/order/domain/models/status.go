package models

import "fmt"

// Status is the canonical order lifecycle state. External payloads may carry
// the legacy backend vocabulary; ParseStatus is the single place where raw
// strings are translated, nothing else trusts them.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// legacyStatuses maps the old backend vocabulary onto the canonical set.
var legacyStatuses = map[string]Status{
	"en_attente": StatusPending,
	"confirmee":  StatusConfirmed,
	"en_cours":   StatusPreparing,
	"pretee":     StatusReady,
	"servie":     StatusDelivered,
	"annulee":    StatusCancelled,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func ParseStatus(raw string) (Status, error) {
	if s := Status(raw); s.Valid() {
		return s, nil
	}
	if s, ok := legacyStatuses[raw]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// ServiceType distinguishes dine-in from takeaway orders.
type ServiceType string

const (
	ServiceDineIn   ServiceType = "dine_in"
	ServiceTakeaway ServiceType = "takeaway"
)

var legacyServiceTypes = map[string]ServiceType{
	"sur_place": ServiceDineIn,
	"emporter":  ServiceTakeaway,
}

func (t ServiceType) Valid() bool {
	return t == ServiceDineIn || t == ServiceTakeaway
}

func ParseServiceType(raw string) (ServiceType, error) {
	if t := ServiceType(raw); t.Valid() {
		return t, nil
	}
	if t, ok := legacyServiceTypes[raw]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown service type %q", ErrValidation, raw)
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentMobile PaymentMethod = "mobile"
)

var legacyPaymentMethods = map[string]PaymentMethod{
	"espèces":  PaymentCash,
	"en_ligne": PaymentMobile,
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentMobile
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	if m := PaymentMethod(raw); m.Valid() {
		return m, nil
	}
	if m, ok := legacyPaymentMethods[raw]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, raw)
}
