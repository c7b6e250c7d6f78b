package models

import "github.com/pkg/errors"

var (
	// ErrConnection: broker unreachable or authorization rejected.
	ErrConnection = errors.New("broker connection failure")
	// ErrOrderRejected: broker refused a single order.
	ErrOrderRejected = errors.New("order rejected")
	// ErrConfigurationInvalid: settings update failed validation.
	ErrConfigurationInvalid = errors.New("configuration invalid")

	ErrSessionOpen = errors.New("session already open")
	ErrNoSession   = errors.New("no open session")
	ErrNotDemo     = errors.New("sessions are available in demo mode only")
)
