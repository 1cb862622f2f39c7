package policy

// taskNext lists the legal task transitions. done is terminal.
var taskNext = map[string][]string{
	"pending":     {"in_progress"},
	"in_progress": {"paused", "done"},
	"paused":      {"in_progress", "done"},
	"done":        {},
}

// endpointNext mirrors taskNext with the endpoint's initial state.
var endpointNext = map[string][]string{
	"not_started": {"in_progress"},
	"in_progress": {"paused", "done"},
	"paused":      {"in_progress", "done"},
	"done":        {},
}

// TaskTransition returns nil when from→to is a legal task move.
func TaskTransition(from, to string) error {
	return transition("task", taskNext, from, to)
}

// EndpointTransition returns nil when from→to is a legal endpoint move.
func EndpointTransition(from, to string) error {
	return transition("endpoint", endpointNext, from, to)
}

func transition(entity string, table map[string][]string, from, to string) error {
	for _, next := range table[from] {
		if next == to {
			return nil
		}
	}
	return StateError{Entity: entity, From: from, To: to}
}

// FieldCycle advances one checklist cell: pending → done → na → pending.
// Unknown values reset to pending.
func FieldCycle(current string) string {
	switch current {
	case "pending":
		return "done"
	case "done":
		return "na"
	default:
		return "pending"
	}
}
