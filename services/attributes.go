package services

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"custombuttons-restful/models"
)

// Attributes holds the writable button fields present in a request body.
// A nil pointer means the field was not submitted.
type Attributes struct {
	Name           *string
	Description    *string
	AppliesToClass *string
	// AppliesToIDSet distinguishes an explicit null from an absent field.
	AppliesToIDSet bool
	AppliesToID    *uint
	Options        *models.Options
}

var readOnlyAttributes = map[string]struct{}{
	"guid":       {},
	"created_on": {},
	"updated_on": {},
}

// ParseAttributes reads the writable fields out of body. Keys listed in
// reserved are skipped; any other unknown key is rejected.
func ParseAttributes(body map[string]json.RawMessage, reserved ...string) (Attributes, error) {
	var attrs Attributes
	skip := make(map[string]struct{}, len(reserved))
	for _, k := range reserved {
		skip[k] = struct{}{}
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := body[key]
		if _, ok := skip[key]; ok {
			continue
		}
		if _, ok := readOnlyAttributes[key]; ok {
			return Attributes{}, invalid(key, "attribute is read-only")
		}
		switch key {
		case "name":
			s, err := stringValue(key, raw, false)
			if err != nil {
				return Attributes{}, err
			}
			attrs.Name = &s
		case "description":
			s, err := stringValue(key, raw, true)
			if err != nil {
				return Attributes{}, err
			}
			attrs.Description = &s
		case "applies_to_class":
			s, err := stringValue(key, raw, true)
			if err != nil {
				return Attributes{}, err
			}
			attrs.AppliesToClass = &s
		case "applies_to_id":
			attrs.AppliesToIDSet = true
			if isNull(raw) {
				attrs.AppliesToID = nil
				continue
			}
			id, err := ParseID(raw)
			if err != nil {
				return Attributes{}, invalid(key, "%s", err.Error())
			}
			attrs.AppliesToID = &id
		case "options":
			opts, err := models.NewOptions(raw)
			if err != nil {
				return Attributes{}, invalid(key, "%s", err.Error())
			}
			attrs.Options = &opts
		default:
			return Attributes{}, invalid(key, "unknown attribute")
		}
	}
	return attrs, nil
}

// ParseID accepts an id given as a JSON number or a decimal string.
func ParseID(raw json.RawMessage) (uint, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(bytes.TrimSpace(raw))
	}
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, &ValidationError{Field: "id", Message: "invalid id " + strconv.Quote(s)}
	}
	return uint(id), nil
}

// IDFromHref extracts the id from ".../<collection>/<id>".
func IDFromHref(href, collection string) (uint, error) {
	marker := "/" + collection + "/"
	i := strings.LastIndex(href, marker)
	if i < 0 {
		return 0, invalid("href", "href %q does not address a %s resource", href, collection)
	}
	rest := strings.Trim(href[i+len(marker):], "/")
	return ParseID(json.RawMessage(strconv.Quote(rest)))
}

func stringValue(field string, raw json.RawMessage, nullable bool) (string, error) {
	if isNull(raw) {
		if nullable {
			return "", nil
		}
		return "", invalid(field, "must not be null")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid(field, "must be a string")
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
