package service

import "errors"

var (
	ErrNotAuthorized     = errors.New("not authorized for this order")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrOrderNotPaid      = errors.New("order has not been paid yet")
	ErrUnknownProvider   = errors.New("unsupported payment provider")
	ErrPaymentIncomplete = errors.New("payment has not been completed")
	ErrNoCorrelation     = errors.New("no order correlation for payment reference")
)
