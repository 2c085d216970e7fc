package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anchorgate/pkg/platform/sentinel"
)

const defaultResolveTimeout = 5 * time.Second

// HTTPResolver resolves identities through a Universal Resolver compatible
// endpoint: GET <base>/1.0/identifiers/<did>.
//
// VerifySignature only checks that the document publishes a verification
// method and that a signature was supplied. Cryptographic verification of
// the signature is left to the resolver deployment.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type resolutionResult struct {
	DIDDocument *Document `json:"didDocument"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, identity string) (*Document, error) {
	endpoint := r.baseURL + "/1.0/identifiers/" + url.PathEscape(identity)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build resolve request: %w", err)
	}
	req.Header.Set("Accept", "application/did+ld+json, application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %w", identity, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrIdentityNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("resolve %s: status %d: %w", identity, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var result resolutionResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode resolution result: %w", err)
	}
	if result.DIDDocument == nil || result.DIDDocument.ID == "" {
		return nil, ErrIdentityNotFound
	}
	return result.DIDDocument, nil
}

func (r *HTTPResolver) VerifySignature(ctx context.Context, identity, _ string, signature string) (bool, error) {
	doc, err := r.Resolve(ctx, identity)
	if err != nil {
		return false, err
	}
	return doc.HasVerificationMethod() && strings.TrimSpace(signature) != "", nil
}
