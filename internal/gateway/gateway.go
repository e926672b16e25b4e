// Package gateway talks to the remote payment service that creates payment
// intents and reports when an operator has confirmed them.
package gateway

import (
	"context"
	"errors"
	"strings"
)

// ErrTransport wraps network failures, unexpected statuses and unreadable
// responses. Its detail is for logs only.
var ErrTransport = errors.New("gateway transport failure")

// ApplicationError is a structured refusal from the gateway. Message is the
// server-provided text and is safe to show to the user.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string {
	return "gateway: " + e.Message
}

// Client is the remote gateway contract.
type Client interface {
	Init(ctx context.Context, req InitRequest) (InitResponse, error)
	Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResponse, error)
}

// InitRequest creates a payment intent.
type InitRequest struct {
	Phone      string `json:"phone"`
	Amount     int64  `json:"amount"`
	RouterName string `json:"router_name,omitempty"`
	Commune    string `json:"commune,omitempty"`
}

// InitResponse carries the intent id, the credential seed and the hosted
// payment page the user must be sent to.
type InitResponse struct {
	PaymentID  string `json:"payment_id"`
	MAC        string `json:"mac"`
	PaymentURL string `json:"wave_url"`
	Error      string `json:"error,omitempty"`
}

// ConfirmRequest polls the confirmation state of an intent.
type ConfirmRequest struct {
	PaymentID string `json:"payment_id"`
	Commune   string `json:"commune,omitempty"`
}

// ConfirmResponse is one of {success:true, mac?}, {status:"PENDING"} or
// {status:"FAILED"}.
type ConfirmResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	MAC     string `json:"mac,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	StatusPending = "PENDING"
	StatusFailed  = "FAILED"
)

// Outcome classifies a confirmation response.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSucceeded
	OutcomePending
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomePending:
		return "pending"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome interprets the response. FAILED is checked first, then PENDING,
// then the success flag.
func (r ConfirmResponse) Outcome() Outcome {
	switch strings.ToUpper(strings.TrimSpace(r.Status)) {
	case StatusFailed:
		return OutcomeFailed
	case StatusPending:
		return OutcomePending
	}
	if r.Success {
		return OutcomeSucceeded
	}
	return OutcomeUnknown
}
