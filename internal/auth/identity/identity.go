// Package identity resolves decentralized identifiers to documents and
// checks login signatures against them.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"anchorgate/pkg/platform/sentinel"
)

var ErrIdentityNotFound = fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)

// VerificationMethod is a key listed in an identity document.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase,omitempty"`
}

// Document is the subset of a DID document login needs.
type Document struct {
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
}

// HasVerificationMethod reports whether the document lists at least one key.
func (d *Document) HasVerificationMethod() bool {
	return d != nil && len(d.VerificationMethod) > 0
}

// Static resolves identities registered up front. It accepts any non-empty
// signature from a registered identity; it exists for development and tests.
type Static struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewStatic(docs ...*Document) *Static {
	s := &Static{docs: make(map[string]*Document)}
	for _, d := range docs {
		s.Register(d)
	}
	return s
}

// Register adds or replaces a document.
func (s *Static) Register(doc *Document) {
	if doc == nil || doc.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

func (s *Static) Resolve(_ context.Context, identity string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[identity]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return doc, nil
}

func (s *Static) VerifySignature(ctx context.Context, identity, _ string, signature string) (bool, error) {
	if _, err := s.Resolve(ctx, identity); err != nil {
		return false, err
	}
	return strings.TrimSpace(signature) != "", nil
}
