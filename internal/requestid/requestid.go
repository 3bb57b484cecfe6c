// Package requestid tags management API requests with a correlation id so a
// dashboard call can be traced through the audit log and problem responses.
// Ids minted here carry a "wf-" prefix; client-supplied ids are propagated
// as-is when usable.
package requestid

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Header is the wire header carrying the correlation id.
const Header = "X-Request-ID"

// prefix marks ids minted by this process.
const prefix = "wf-"

// maxSuppliedLen bounds client-supplied ids before they reach the audit log.
const maxSuppliedLen = 128

type ctxKey struct{}

// WithRequestID returns a context carrying the given id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request id, minting a fresh one when absent.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return Mint()
}

// Mint generates a new prefixed correlation id.
func Mint() string {
	return prefix + uuid.New().String()
}

// Sanitize returns the client-supplied id when usable, or a fresh minted one.
// Blank and overlong values are replaced rather than propagated.
func Sanitize(supplied string) string {
	supplied = strings.TrimSpace(supplied)
	if supplied == "" || len(supplied) > maxSuppliedLen {
		return Mint()
	}
	return supplied
}

// New mints an id and returns the enriched context along with it.
func New(ctx context.Context) (context.Context, string) {
	id := Mint()
	return WithRequestID(ctx, id), id
}
