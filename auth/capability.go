package auth

import (
	"errors"
	"net/http"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// Capability is an opaque permission identifier checked against a user's roles.
type Capability string

// Scope separates collection endpoints from id-addressed endpoints.
type Scope string

const (
	CollectionScope Scope = "collection"
	ResourceScope   Scope = "resource"
)

// Verb is the operation a capability grants.
type Verb string

const (
	Read   Verb = "read"
	Create Verb = "create"
	Edit   Verb = "edit"
	Delete Verb = "delete"
)

// CollectionCapability names the capability for a collection-wide action,
// e.g. "custom_buttons:collection:create".
func CollectionCapability(collection string, verb Verb) Capability {
	return Capability(collection + ":" + string(CollectionScope) + ":" + string(verb))
}

// ResourceCapability names the capability for an action on one resource,
// e.g. "custom_buttons:resource:edit".
func ResourceCapability(collection string, verb Verb) Capability {
	return Capability(collection + ":" + string(ResourceScope) + ":" + string(verb))
}

// CapabilitiesFor lists every capability of a collection. Used for seeding.
func CapabilitiesFor(collection string) []Capability {
	return []Capability{
		CollectionCapability(collection, Read),
		CollectionCapability(collection, Create),
		CollectionCapability(collection, Edit),
		CollectionCapability(collection, Delete),
		ResourceCapability(collection, Read),
		ResourceCapability(collection, Edit),
		ResourceCapability(collection, Delete),
	}
}

// Check resolves the caller of req and asks authorizer for capability.
// It returns ErrForbidden when the capability is missing.
func Check(req *restful.Request, authorizer Authorizer, capability Capability) error {
	userID, ok := RequestingUserID(req)
	if !ok {
		return ErrForbidden
	}
	allowed, err := authorizer.Allowed(req.Request.Context(), userID, capability)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// RequireCapability is a route filter for endpoints whose capability is known
// from the route alone. It must run after AuthFilter.
func RequireCapability(authorizer Authorizer, capability Capability, logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if err := Check(req, authorizer, capability); err != nil {
			WriteAuthorizationError(resp, err, logger)
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// WriteAuthorizationError renders a failed Check. Forbidden leaks nothing but
// the fact; lookup failures become 500.
func WriteAuthorizationError(resp *restful.Response, err error, logger *zap.Logger) {
	if errors.Is(err, ErrForbidden) {
		_ = resp.WriteHeaderAndJson(http.StatusForbidden, map[string]any{
			"error": map[string]string{"kind": "forbidden", "message": "Access to the requested resource is forbidden"},
		}, restful.MIME_JSON)
		return
	}
	logger.Error("Capability check failed", zap.Error(err))
	_ = resp.WriteHeaderAndJson(http.StatusInternalServerError, map[string]any{
		"error": map[string]string{"kind": "internal_server_error", "message": "An internal error occurred"},
	}, restful.MIME_JSON)
}
