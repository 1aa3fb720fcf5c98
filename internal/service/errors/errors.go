// Package errors provides custom error types of the service layer.
package errors

import "fmt"

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	GatewayUnavailable struct {
		Err error
	}
	InvalidSignature struct {
		OrderID string
	}
	OrderNotFound struct {
		OrderID string
	}
	ForeignOrder struct {
		OrderID string
		UserID  string
	}
	PersistenceFailure struct {
		OrderID string
		Err     error
	}
	InvalidAmount struct {
		Msg string
	}
	UnknownUser struct {
		UserID string
	}
	InvalidCredentials struct {
		Msg string
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *GatewayUnavailable) Error() string {
	return fmt.Sprintf("payment gateway unavailable: %s", e.Err.Error())
}

func (e *GatewayUnavailable) Unwrap() error {
	return e.Err
}

func (e *InvalidSignature) Error() string {
	return fmt.Sprintf("invalid payment signature for order %s", e.OrderID)
}

func (e *OrderNotFound) Error() string {
	if e.OrderID == "" {
		return "order id is required"
	}
	return fmt.Sprintf("order %s not found", e.OrderID)
}

func (e *ForeignOrder) Error() string {
	return fmt.Sprintf("order %s does not belong to user %s", e.OrderID, e.UserID)
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("order %s was created but could not be stored: %s", e.OrderID, e.Err.Error())
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

func (e *InvalidAmount) Error() string {
	return e.Msg
}

func (e *UnknownUser) Error() string {
	if e.UserID == "" {
		return "user id is required"
	}
	return fmt.Sprintf("user %s does not exist", e.UserID)
}

func (e *InvalidCredentials) Error() string {
	return e.Msg
}
