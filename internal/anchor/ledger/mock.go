package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-process ledger that returns deterministic references of the
// form 0xmock_<batch id hex>_testnet. SetFailure makes every Anchor call fail.
type Mock struct {
	mu       sync.Mutex
	fail     error
	anchored []AnchorRequest
}

func NewMock() *Mock {
	return &Mock{}
}

// SetFailure forces Anchor to return err; nil restores normal behaviour.
func (m *Mock) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Mock) Anchor(ctx context.Context, req AnchorRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", fmt.Errorf("anchor batch %d: %w", req.BatchID, m.fail)
	}
	m.anchored = append(m.anchored, req)
	return fmt.Sprintf("0xmock_%x_testnet", req.BatchID), nil
}

// Anchored returns a copy of every accepted request, oldest first.
func (m *Mock) Anchored() []AnchorRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AnchorRequest(nil), m.anchored...)
}
