package gateway

import (
	"net/url"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	libHTTP "github.com/LerianStudio/lib-gated/gated/net/http"
	"github.com/gofiber/fiber/v2"
)

// identityParam reads the :identity path parameter. Padded identities are
// rejected rather than trimmed so the key matches what the ledger records.
func identityParam(c *fiber.Ctx) (gated.Identity, error) {
	raw, err := url.PathUnescape(c.Params("identity"))
	if err != nil {
		return "", ledger.InvalidInput("identity", "identity is not a valid path segment")
	}

	id, err := gated.ParseIdentity(raw)
	if err != nil || string(id) != raw {
		return "", ledger.InvalidInput("identity", "identity is invalid")
	}

	return id, nil
}

// ListAuthorized handles GET /v1/authorizations.
func (h *Handler) ListAuthorized(c *fiber.Ctx) error {
	items := h.registry.Authorized()
	if items == nil {
		items = []gated.Identity{}
	}

	return libHTTP.OK(c, AuthorizationList{Items: items})
}

// GetAuthorization handles GET /v1/authorizations/:identity.
func (h *Handler) GetAuthorization(c *fiber.Ctx) error {
	id, err := identityParam(c)
	if err != nil {
		return h.invalid(c, err)
	}

	return libHTTP.OK(c, AuthorizationOutput{Identity: id, Authorized: h.registry.IsAuthorized(id)})
}

// Grant handles PUT /v1/authorizations/:identity. Granting twice is a no-op.
func (h *Handler) Grant(c *fiber.Ctx) error {
	id, err := identityParam(c)
	if err != nil {
		return h.invalid(c, err)
	}

	h.registry.Grant(c.UserContext(), id)

	return libHTTP.OK(c, AuthorizationOutput{Identity: id, Authorized: true})
}

// Revoke handles DELETE /v1/authorizations/:identity. Revoking twice is a no-op.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	id, err := identityParam(c)
	if err != nil {
		return h.invalid(c, err)
	}

	h.registry.Revoke(c.UserContext(), id)

	return libHTTP.OK(c, AuthorizationOutput{Identity: id, Authorized: false})
}
