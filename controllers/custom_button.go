package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"custombuttons-restful/auth"
	"custombuttons-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

const (
	// CollectionName is the collection's name on the wire and in capability ids.
	CollectionName = "custom_buttons"
	apiPrefix      = "/api"
)

var openAPITags = []string{CollectionName}

// CustomButtonController serves /api/custom_buttons.
type CustomButtonController struct {
	service    services.CustomButtonService
	metadata   services.MetadataService
	authorizer auth.Authorizer
	baseURL    string
	logger     *zap.Logger
}

// NewCustomButtonController wires the handlers. baseURL may be empty, in
// which case hrefs are derived from the request.
func NewCustomButtonController(service services.CustomButtonService, metadata services.MetadataService, authorizer auth.Authorizer, baseURL string, logger *zap.Logger) *CustomButtonController {
	return &CustomButtonController{
		service:    service,
		metadata:   metadata,
		authorizer: authorizer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// collectionRequest is the body of POST /api/custom_buttons.
type collectionRequest struct {
	Action    string           `json:"action,omitempty" description:"create (default), edit or delete"`
	Resources []map[string]any `json:"resources,omitempty"`
}

// RegisterRoutes sets up the custom button routes on a go-restful WebService.
func (ctl *CustomButtonController) RegisterRoutes(ws *restful.WebService) {
	ws.Path(apiPrefix + "/" + CollectionName).Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	idParam := ws.PathParameter("id", "Identifier of the custom button").DataType("string")

	ws.Route(ws.GET("").
		Filter(auth.AuthFilter()).
		Filter(ctl.require(auth.CollectionCapability(CollectionName, auth.Read))).
		To(ctl.listHandler).
		Doc("List custom buttons").
		Param(ws.QueryParameter("expand", "Set to 'resources' to return full representations").DataType("string")).
		Param(ws.QueryParameter("offset", "Number of resources to skip").DataType("integer")).
		Param(ws.QueryParameter("limit", "Maximum number of resources to return").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Writes(CollectionResponse{}).
		Returns(http.StatusOK, "Collection listed", CollectionResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorBody{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}))

	ws.Route(ws.GET("/{id}").
		Filter(auth.AuthFilter()).
		Filter(ctl.require(auth.ResourceCapability(CollectionName, auth.Read))).
		To(ctl.getHandler).
		Doc("Get a custom button by id").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Writes(CustomButtonResponse{}).
		Returns(http.StatusOK, "Custom button found", CustomButtonResponse{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}).
		Returns(http.StatusNotFound, "Custom button not found", ErrorBody{}))

	// The capability depends on the action in the body, so it is checked in the handler.
	ws.Route(ws.POST("").
		Filter(auth.AuthFilter()).
		To(ctl.postCollectionHandler).
		Doc("Create custom buttons, or edit/delete them in bulk").
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Reads(collectionRequest{}).
		Writes(ResultsResponse{}).
		Returns(http.StatusOK, "Per-resource results", ResultsResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", ErrorBody{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}))

	ws.Route(ws.POST("/{id}").
		Filter(auth.AuthFilter()).
		To(ctl.postResourceHandler).
		Doc("Edit or delete one custom button").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Returns(http.StatusOK, "Action performed", CustomButtonResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", ErrorBody{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}).
		Returns(http.StatusNotFound, "Custom button not found", ErrorBody{}))

	ws.Route(ws.PUT("/{id}").
		Filter(auth.AuthFilter()).
		Filter(ctl.require(auth.ResourceCapability(CollectionName, auth.Edit))).
		To(ctl.replaceHandler).
		Doc("Replace a custom button").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Writes(CustomButtonResponse{}).
		Returns(http.StatusOK, "Custom button replaced", CustomButtonResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", ErrorBody{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}).
		Returns(http.StatusNotFound, "Custom button not found", ErrorBody{}))

	ws.Route(ws.PATCH("/{id}").
		Filter(auth.AuthFilter()).
		Filter(ctl.require(auth.ResourceCapability(CollectionName, auth.Edit))).
		To(ctl.patchHandler).
		Doc("Apply edit/add/remove operations to a custom button").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Reads([]services.PatchOperation{}).
		Writes(CustomButtonResponse{}).
		Returns(http.StatusOK, "Custom button patched", CustomButtonResponse{}).
		Returns(http.StatusBadRequest, "Invalid patch", ErrorBody{}).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}).
		Returns(http.StatusNotFound, "Custom button not found", ErrorBody{}))

	ws.Route(ws.DELETE("/{id}").
		Filter(auth.AuthFilter()).
		Filter(ctl.require(auth.ResourceCapability(CollectionName, auth.Delete))).
		To(ctl.deleteHandler).
		Doc("Delete a custom button").
		Param(idParam).
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Returns(http.StatusNoContent, "Custom button deleted", nil).
		Returns(http.StatusForbidden, "Forbidden", ErrorBody{}).
		Returns(http.StatusNotFound, "Custom button not found", ErrorBody{}))

	// OPTIONS carries no caller identity; the document holds catalog names only.
	ws.Route(ws.Method(http.MethodOptions).Path("").
		To(ctl.optionsHandler).
		Doc("Allowed values for custom button attributes").
		Metadata(restfulspec.KeyOpenAPITags, openAPITags).
		Writes(services.OptionsDocument{}).
		Returns(http.StatusOK, "Metadata document", services.OptionsDocument{}))
}

func (ctl *CustomButtonController) require(capability auth.Capability) restful.FilterFunction {
	return auth.RequireCapability(ctl.authorizer, capability, ctl.logger)
}

// authorize checks capability and writes the failure response itself.
func (ctl *CustomButtonController) authorize(request *restful.Request, response *restful.Response, capability auth.Capability) bool {
	if err := auth.Check(request, ctl.authorizer, capability); err != nil {
		auth.WriteAuthorizationError(response, err, ctl.logger)
		return false
	}
	return true
}

// --- go-restful Handler Functions ---

// listHandler (Handles GET /api/custom_buttons)
func (ctl *CustomButtonController) listHandler(request *restful.Request, response *restful.Response) {
	offset, err := intQueryParameter(request, "offset")
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	limit, err := intQueryParameter(request, "limit")
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	expand := false
	for _, e := range strings.Split(request.QueryParameter("expand"), ",") {
		if strings.TrimSpace(e) == "resources" {
			expand = true
		}
	}

	buttons, total, err := ctl.service.List(request.Request.Context(), offset, limit)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	resources := make([]any, len(buttons))
	for i := range buttons {
		if expand {
			resources[i] = ctl.mapModelToResponse(request, &buttons[i])
		} else {
			resources[i] = ResourceRef{Href: ctl.href(request, buttons[i].ID)}
		}
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, CollectionResponse{
		Name:      CollectionName,
		Count:     total,
		Subcount:  len(resources),
		Resources: resources,
	}, restful.MIME_JSON)
}

// getHandler (Handles GET /api/custom_buttons/{id})
func (ctl *CustomButtonController) getHandler(request *restful.Request, response *restful.Response) {
	id, ok := ctl.pathID(request, response)
	if !ok {
		return
	}

	button, err := ctl.service.Get(request.Request.Context(), id)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	_ = response.WriteHeaderAndJson(http.StatusOK, ctl.mapModelToResponse(request, button), restful.MIME_JSON)
}

// postCollectionHandler (Handles POST /api/custom_buttons)
func (ctl *CustomButtonController) postCollectionHandler(request *restful.Request, response *restful.Response) {
	body, ok := ctl.readObject(request, response)
	if !ok {
		return
	}
	action, err := actionOf(body)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	switch action {
	case services.ActionCreate:
		if ctl.authorize(request, response, auth.CollectionCapability(CollectionName, auth.Create)) {
			ctl.createResources(request, response, body)
		}
	case services.ActionEdit:
		if ctl.authorize(request, response, auth.CollectionCapability(CollectionName, auth.Edit)) {
			ctl.bulkEdit(request, response, body)
		}
	case services.ActionDelete:
		if ctl.authorize(request, response, auth.CollectionCapability(CollectionName, auth.Delete)) {
			ctl.bulkDelete(request, response, body)
		}
	default:
		writeError(response, http.StatusBadRequest, "bad_request", "unsupported action "+action.String())
	}
}

func (ctl *CustomButtonController) createResources(request *restful.Request, response *restful.Response, body map[string]json.RawMessage) {
	ctx := request.Request.Context()

	if _, bulk := body["resources"]; !bulk {
		if hasIdentity(body) {
			writeError(response, http.StatusBadRequest, "bad_request", "Resource id or href should not be specified for creating a new "+CollectionName)
			return
		}
		attrs, err := services.ParseAttributes(body, "action")
		if err != nil {
			ctl.handleServiceError(response, err)
			return
		}
		button, err := ctl.service.Create(ctx, attrs)
		if err != nil {
			ctl.handleServiceError(response, err)
			return
		}
		_ = response.WriteHeaderAndJson(http.StatusOK, ResultsResponse{Results: []any{ctl.mapModelToResponse(request, button)}}, restful.MIME_JSON)
		return
	}

	items, err := resourcesOf(body)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	results := make([]any, len(items))
	for i, item := range items {
		if hasIdentity(item) {
			results[i] = ctl.failureResult(request, 0, &services.ValidationError{Message: "Resource id or href should not be specified for creating a new " + CollectionName})
			continue
		}
		attrs, err := services.ParseAttributes(item)
		if err != nil {
			results[i] = ctl.failureResult(request, 0, err)
			continue
		}
		created, err := ctl.service.Create(ctx, attrs)
		if err != nil {
			results[i] = ctl.failureResult(request, 0, err)
			continue
		}
		results[i] = ctl.mapModelToResponse(request, created)
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, ResultsResponse{Results: results}, restful.MIME_JSON)
}

func (ctl *CustomButtonController) bulkEdit(request *restful.Request, response *restful.Response, body map[string]json.RawMessage) {
	items, err := ctl.bulkItems(body, true)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	outcomes := ctl.service.BulkEdit(request.Request.Context(), items)
	results := make([]any, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			results[i] = ctl.failureResult(request, o.ID, o.Err)
			continue
		}
		results[i] = ctl.mapModelToResponse(request, o.Button)
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, ResultsResponse{Results: results}, restful.MIME_JSON)
}

func (ctl *CustomButtonController) bulkDelete(request *restful.Request, response *restful.Response, body map[string]json.RawMessage) {
	items, err := ctl.bulkItems(body, false)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	outcomes := ctl.service.BulkDelete(request.Request.Context(), items)
	results := make([]any, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			results[i] = ctl.failureResult(request, o.ID, o.Err)
			continue
		}
		results[i] = ctl.deletingResult(request, o.ID)
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, ResultsResponse{Results: results}, restful.MIME_JSON)
}

// postResourceHandler (Handles POST /api/custom_buttons/{id})
func (ctl *CustomButtonController) postResourceHandler(request *restful.Request, response *restful.Response) {
	id, ok := ctl.pathID(request, response)
	if !ok {
		return
	}
	body, ok := ctl.readObject(request, response)
	if !ok {
		return
	}
	if _, present := body["action"]; !present {
		writeError(response, http.StatusBadRequest, "bad_request", "action is required")
		return
	}
	action, err := actionOf(body)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	ctx := request.Request.Context()

	switch action {
	case services.ActionEdit:
		if !ctl.authorize(request, response, auth.ResourceCapability(CollectionName, auth.Edit)) {
			return
		}
		attrs, err := services.ParseAttributes(body, "action", "id", "href")
		if err != nil {
			ctl.handleServiceError(response, err)
			return
		}
		button, err := ctl.service.Edit(ctx, id, attrs)
		if err != nil {
			ctl.handleServiceError(response, err)
			return
		}
		_ = response.WriteHeaderAndJson(http.StatusOK, ctl.mapModelToResponse(request, button), restful.MIME_JSON)
	case services.ActionDelete:
		if !ctl.authorize(request, response, auth.ResourceCapability(CollectionName, auth.Delete)) {
			return
		}
		if err := ctl.service.Delete(ctx, id); err != nil {
			ctl.handleServiceError(response, err)
			return
		}
		_ = response.WriteHeaderAndJson(http.StatusOK, ctl.deletingResult(request, id), restful.MIME_JSON)
	case services.ActionCreate:
		writeError(response, http.StatusBadRequest, "bad_request", "create is only supported on the "+CollectionName+" collection")
	default:
		writeError(response, http.StatusBadRequest, "bad_request", "unsupported action "+action.String())
	}
}

// replaceHandler (Handles PUT /api/custom_buttons/{id})
func (ctl *CustomButtonController) replaceHandler(request *restful.Request, response *restful.Response) {
	id, ok := ctl.pathID(request, response)
	if !ok {
		return
	}
	body, ok := ctl.readObject(request, response)
	if !ok {
		return
	}
	attrs, err := services.ParseAttributes(body, "id", "href")
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	button, err := ctl.service.Replace(request.Request.Context(), id, attrs)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, ctl.mapModelToResponse(request, button), restful.MIME_JSON)
}

// patchHandler (Handles PATCH /api/custom_buttons/{id})
func (ctl *CustomButtonController) patchHandler(request *restful.Request, response *restful.Response) {
	id, ok := ctl.pathID(request, response)
	if !ok {
		return
	}
	var ops []services.PatchOperation
	if err := request.ReadEntity(&ops); err != nil {
		writeError(response, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	button, err := ctl.service.Patch(request.Request.Context(), id, ops)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, ctl.mapModelToResponse(request, button), restful.MIME_JSON)
}

// deleteHandler (Handles DELETE /api/custom_buttons/{id})
func (ctl *CustomButtonController) deleteHandler(request *restful.Request, response *restful.Response) {
	id, ok := ctl.pathID(request, response)
	if !ok {
		return
	}
	if err := ctl.service.Delete(request.Request.Context(), id); err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	response.WriteHeader(http.StatusNoContent)
}

// optionsHandler (Handles OPTIONS /api/custom_buttons)
func (ctl *CustomButtonController) optionsHandler(request *restful.Request, response *restful.Response) {
	doc, err := ctl.metadata.Options(request.Request.Context())
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, doc, restful.MIME_JSON)
}

// --- Utility Functions ---

func (ctl *CustomButtonController) pathID(request *restful.Request, response *restful.Response) (uint, bool) {
	raw := request.PathParameter("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(response, http.StatusBadRequest, "bad_request", "Invalid custom button id "+strconv.Quote(raw))
		return 0, false
	}
	return uint(id), true
}

func (ctl *CustomButtonController) readObject(request *restful.Request, response *restful.Response) (map[string]json.RawMessage, bool) {
	body := map[string]json.RawMessage{}
	if err := request.ReadEntity(&body); err != nil {
		writeError(response, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return nil, false
	}
	return body, true
}

// bulkItems decodes the "resources" array. Per-entry problems are attached to
// the entry so the remaining entries are still processed.
func (ctl *CustomButtonController) bulkItems(body map[string]json.RawMessage, withAttributes bool) ([]services.BulkItem, error) {
	entries, err := resourcesOf(body)
	if err != nil {
		return nil, err
	}
	items := make([]services.BulkItem, len(entries))
	for i, entry := range entries {
		id, err := identityOf(entry)
		if err != nil {
			items[i] = services.BulkItem{ID: id, Err: err}
			continue
		}
		items[i].ID = id
		if withAttributes {
			items[i].Attributes, items[i].Err = services.ParseAttributes(entry, "id", "href")
		}
	}
	return items, nil
}

func actionOf(body map[string]json.RawMessage) (services.Action, error) {
	raw, ok := body["action"]
	if !ok {
		return services.ActionCreate, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, &services.ValidationError{Field: "action", Message: "must be a string"}
	}
	return services.ParseAction(s)
}

func resourcesOf(body map[string]json.RawMessage) ([]map[string]json.RawMessage, error) {
	raw, ok := body["resources"]
	if !ok {
		return nil, &services.ValidationError{Field: "resources", Message: "is required"}
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &services.ValidationError{Field: "resources", Message: "must be an array of objects"}
	}
	if len(entries) == 0 {
		return nil, &services.ValidationError{Field: "resources", Message: "must not be empty"}
	}
	return entries, nil
}

func hasIdentity(entry map[string]json.RawMessage) bool {
	_, hasID := entry["id"]
	_, hasHref := entry["href"]
	return hasID || hasHref
}

// identityOf resolves a resource entry's "id" or, failing that, its "href".
func identityOf(entry map[string]json.RawMessage) (uint, error) {
	if raw, ok := entry["id"]; ok {
		return services.ParseID(raw)
	}
	if raw, ok := entry["href"]; ok {
		var href string
		if err := json.Unmarshal(raw, &href); err != nil {
			return 0, &services.ValidationError{Field: "href", Message: "must be a string"}
		}
		return services.IDFromHref(href, CollectionName)
	}
	return 0, &services.ValidationError{Field: "id", Message: "resource id or href is required"}
}

func intQueryParameter(request *restful.Request, name string) (int, error) {
	raw := request.QueryParameter(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &services.ValidationError{Field: name, Message: "must be a non-negative integer"}
	}
	return v, nil
}
