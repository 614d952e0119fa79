package services

import (
	"encoding/json"
	"strings"

	"custombuttons-restful/models"
)

const optionsPathPrefix = "options/"

// apply mutates button according to the operation. "edit" and "add" set the
// value at path, "remove" clears it.
func (op PatchOperation) apply(button *models.CustomButton) error {
	path := strings.Trim(op.Path, "/")
	if path == "" {
		return invalid("path", "is required")
	}

	var remove bool
	switch strings.ToLower(op.Action) {
	case "edit", "add":
	case "remove":
		remove = true
	default:
		return invalid("action", "unsupported patch action %q", op.Action)
	}

	if strings.HasPrefix(path, optionsPathPrefix) {
		return op.applyOption(button, strings.TrimPrefix(path, optionsPathPrefix), remove)
	}

	if remove {
		switch path {
		case "name":
			return invalid("name", "can't be removed")
		case "description":
			button.Description = ""
		case "applies_to_class":
			button.AppliesToClass = ""
		case "applies_to_id":
			button.AppliesToID = nil
		case "options":
			button.Options = models.Options("{}")
		default:
			return invalid(path, "unknown attribute")
		}
		return nil
	}

	if op.Value == nil {
		return invalid("value", "is required for %s", op.Action)
	}
	attrs, err := ParseAttributes(map[string]json.RawMessage{path: op.Value})
	if err != nil {
		return err
	}
	applyAttributes(button, attrs)
	return nil
}

func (op PatchOperation) applyOption(button *models.CustomButton, key string, remove bool) error {
	if key == "" {
		return invalid("path", "option key is required")
	}
	var err error
	if remove {
		button.Options, err = button.Options.Delete(key)
	} else {
		if op.Value == nil {
			return invalid("value", "is required for %s", op.Action)
		}
		button.Options, err = button.Options.Set(key, op.Value)
	}
	if err != nil {
		return invalid("options", "%s", err.Error())
	}
	return nil
}
