package models

import (
	"encoding/json"
	"strings"
	"time"

	dErrors "anchorgate/pkg/domain-errors"
)

// Record is an opaque stored document owned by an identity. The anchoring
// engine only ever sees its id and CanonicalBytes.
type Record struct {
	ID         string            `json:"id"`
	Subject    string            `json:"subject"`
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	CreatedBy  uint64            `json:"created_by"`
}

// NewRecord validates invariants and normalises CreatedAt to UTC microseconds,
// the precision every store round-trips.
func NewRecord(id, subject, kind string, attributes map[string]string, createdBy uint64, now time.Time) (*Record, error) {
	subject = strings.TrimSpace(subject)
	kind = strings.TrimSpace(kind)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record id is required")
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record subject is required")
	}
	if kind == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record kind is required")
	}
	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return &Record{
		ID:         id,
		Subject:    subject,
		Kind:       kind,
		Attributes: attrs,
		CreatedAt:  now.UTC().Truncate(time.Microsecond),
		CreatedBy:  createdBy,
	}, nil
}

// canonicalRecord fixes field order and encodes time as an integer so the
// bytes do not depend on location or formatting.
type canonicalRecord struct {
	ID         string            `json:"id"`
	Subject    string            `json:"subject"`
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"created_at_us"`
	CreatedBy  uint64            `json:"created_by"`
}

// CanonicalBytes is the deterministic encoding fed into Merkle leaves: the
// same logical record always yields identical bytes (map keys are sorted by
// encoding/json, empty and nil attribute maps encode alike).
func (r *Record) CanonicalBytes() ([]byte, error) {
	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return json.Marshal(canonicalRecord{
		ID:         r.ID,
		Subject:    r.Subject,
		Kind:       r.Kind,
		Attributes: attrs,
		CreatedAt:  r.CreatedAt.UnixMicro(),
		CreatedBy:  r.CreatedBy,
	})
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Attributes != nil {
		c.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// CreateRecordRequest is the API payload for storing a record.
type CreateRecordRequest struct {
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes"`
}
