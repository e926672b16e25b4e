package gateway

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Sandbox simulates the remote gateway for local development. Every intent
// reports PENDING for PendingPolls confirmations and then succeeds, issuing
// the MAC returned at init.
type Sandbox struct {
	PendingPolls int

	mu      sync.Mutex
	intents map[string]*sandboxIntent
}

type sandboxIntent struct {
	mac   string
	polls int
}

// NewSandbox creates a sandbox gateway.
func NewSandbox(pendingPolls int) *Sandbox {
	return &Sandbox{PendingPolls: pendingPolls, intents: make(map[string]*sandboxIntent)}
}

// Init registers a new intent with a random locally administered MAC.
func (s *Sandbox) Init(_ context.Context, req InitRequest) (InitResponse, error) {
	if req.Phone == "" || req.Amount <= 0 {
		return InitResponse{}, &ApplicationError{Message: "phone and amount are required"}
	}

	mac, err := randomMAC()
	if err != nil {
		return InitResponse{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.intents[id] = &sandboxIntent{mac: mac}
	s.mu.Unlock()

	return InitResponse{
		PaymentID:  id,
		MAC:        mac,
		PaymentURL: "https://pay.sandbox.local/checkout/" + id,
	}, nil
}

// Confirm advances the intent's poll counter.
func (s *Sandbox) Confirm(_ context.Context, req ConfirmRequest) (ConfirmResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[req.PaymentID]
	if !ok {
		return ConfirmResponse{Status: StatusFailed}, nil
	}
	if intent.polls < s.PendingPolls {
		intent.polls++
		return ConfirmResponse{Status: StatusPending}, nil
	}
	delete(s.intents, req.PaymentID)
	return ConfirmResponse{Success: true, MAC: intent.mac}, nil
}

func randomMAC() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	b[0] = (b[0] | 0x02) & 0xfe
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5]), nil
}
