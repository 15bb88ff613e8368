// Package identity resolves the caller identifier used as the access ledger key.
package identity

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const (
	// ForwardedFor carries the client address when running behind a reverse proxy.
	ForwardedFor = "X-Forwarded-For"
	// RemoteAddr carries the direct peer address.
	RemoteAddr = "Remote-Addr"

	// Unknown is returned when no address field is present.
	Unknown = "unknown"
)

// Metadata holds header-like transport fields of an inbound request.
type Metadata map[string]string

// Resolve returns the caller identifier for md. A forwarded-for value wins over
// the peer address and is used verbatim.
func Resolve(md Metadata) string {
	if v := md[ForwardedFor]; v != "" {
		return v
	}
	if v := md[RemoteAddr]; v != "" {
		return v
	}
	return Unknown
}

// FromRequest collects the identity-relevant metadata of a fiber request.
// Values are copied out of the request buffer, which fasthttp reuses once the
// handler returns.
func FromRequest(c *fiber.Ctx) Metadata {
	md := Metadata{}
	if v := c.Get(fiber.HeaderXForwardedFor); v != "" {
		md[ForwardedFor] = utils.CopyString(v)
	}
	if addr := c.Context().RemoteIP(); addr != nil && !addr.IsUnspecified() {
		md[RemoteAddr] = addr.String()
	}
	return md
}
