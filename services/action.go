package services

import (
	"fmt"
	"strings"
)

// Action is the operation carried by the "action" field of a POST body.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionEdit
	ActionDelete
)

// ParseAction maps the wire value to an Action. An empty value means create.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "create":
		return ActionCreate, nil
	case "edit":
		return ActionEdit, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, invalid("action", "unsupported action %q", s)
	}
}

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}
