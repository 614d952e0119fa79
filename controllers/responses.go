package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"custombuttons-restful/auth"
	"custombuttons-restful/models"
	"custombuttons-restful/services"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// CustomButtonResponse is the representation of one custom button.
type CustomButtonResponse struct {
	Href           string         `json:"href"`
	ID             string         `json:"id"`
	GUID           string         `json:"guid"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	AppliesToClass string         `json:"applies_to_class"`
	AppliesToID    *string        `json:"applies_to_id"`
	Options        models.Options `json:"options"`
	CreatedOn      time.Time      `json:"created_on"`
	UpdatedOn      time.Time      `json:"updated_on"`
}

// ResourceRef is a list entry when resources are not expanded.
type ResourceRef struct {
	Href string `json:"href"`
}

// CollectionResponse is the list envelope.
type CollectionResponse struct {
	Name      string `json:"name"`
	Count     int64  `json:"count"`
	Subcount  int    `json:"subcount"`
	Resources []any  `json:"resources"`
}

// ActionResult reports the outcome of an action on one resource.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Href    string `json:"href,omitempty"`
	ID      string `json:"id,omitempty"`
}

// ResultsResponse wraps per-resource outcomes of a POST on the collection.
type ResultsResponse struct {
	Results []any `json:"results"`
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (ctl *CustomButtonController) mapModelToResponse(req *restful.Request, button *models.CustomButton) CustomButtonResponse {
	if button == nil {
		return CustomButtonResponse{}
	}
	var appliesToID *string
	if button.AppliesToID != nil {
		s := formatID(*button.AppliesToID)
		appliesToID = &s
	}
	options := button.Options
	if len(options) == 0 {
		options = models.Options("{}")
	}
	return CustomButtonResponse{
		Href:           ctl.href(req, button.ID),
		ID:             formatID(button.ID),
		GUID:           button.GUID,
		Name:           button.Name,
		Description:    button.Description,
		AppliesToClass: button.AppliesToClass,
		AppliesToID:    appliesToID,
		Options:        options,
		CreatedOn:      button.CreatedAt,
		UpdatedOn:      button.UpdatedAt,
	}
}

func (ctl *CustomButtonController) collectionHref(req *restful.Request) string {
	base := ctl.baseURL
	if base == "" {
		scheme := "http"
		if req.Request.TLS != nil {
			scheme = "https"
		}
		if proto := req.HeaderParameter("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + req.Request.Host
	}
	return base + apiPrefix + "/" + CollectionName
}

func (ctl *CustomButtonController) href(req *restful.Request, id uint) string {
	return ctl.collectionHref(req) + "/" + formatID(id)
}

func (ctl *CustomButtonController) deletingResult(req *restful.Request, id uint) ActionResult {
	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("%s id: %d deleting", CollectionName, id),
		Href:    ctl.href(req, id),
	}
}

// failureResult renders a per-item failure inside a successful bulk response.
func (ctl *CustomButtonController) failureResult(req *restful.Request, id uint, err error) ActionResult {
	result := ActionResult{Success: false}
	if id != 0 {
		result.ID = formatID(id)
		result.Href = ctl.href(req, id)
	}
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		result.Message = fmt.Sprintf("%s id: %d not found", CollectionName, id)
	case errors.As(err, &verr):
		result.Message = err.Error()
	default:
		ctl.logger.Error("Bulk item failed", zap.Uint("id", id), zap.Error(err))
		result.Message = "An internal error occurred"
	}
	return result
}

func writeError(response *restful.Response, status int, kind, message string) {
	_ = response.WriteHeaderAndJson(status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}}, restful.MIME_JSON)
}

// handleServiceError translates service errors to HTTP responses.
func (ctl *CustomButtonController) handleServiceError(response *restful.Response, err error) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(response, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &verr):
		writeError(response, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(response, http.StatusForbidden, "forbidden", "Access to the requested resource is forbidden")
	default:
		ctl.logger.Error("Unhandled service error", zap.Error(err))
		writeError(response, http.StatusInternalServerError, "internal_server_error", "An internal error occurred")
	}
}
