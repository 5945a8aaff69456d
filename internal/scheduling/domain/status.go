package domain

import "fmt"

// Status is a booking lifecycle state.
type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusConfirmed         Status = "confirmed"
	StatusCompleted         Status = "completed"
	StatusNoShow            Status = "no_show"
	StatusCancelled         Status = "cancelled"
	StatusContractFinalized Status = "contract_finalized"
	StatusRefunded          Status = "refunded"
	StatusRescheduled       Status = "rescheduled"
)

var terminalStatuses = map[Status]bool{
	StatusRefunded:          true,
	StatusCancelled:         true,
	StatusContractFinalized: true,
	StatusRescheduled:       true,
}

var occupyingStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
}

// transitions lists the moves TransitionStatus may perform. Refunded is
// reachable from every non-terminal status and is checked separately;
// Rescheduled is only written by Reschedule.
var transitions = map[Status]map[Status]bool{
	StatusScheduled: {
		StatusConfirmed: true,
		StatusCompleted: true,
		StatusNoShow:    true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusNoShow:    true,
		StatusCancelled: true,
	},
	StatusCompleted: {
		StatusContractFinalized: true,
	},
	StatusNoShow: {},
}

var reschedulableStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
	StatusNoShow:    true,
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := transitions[s]; ok || terminalStatuses[s] {
		return s, nil
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool { return terminalStatuses[s] }

// OccupiesCapacity reports whether a booking in this status holds its slot.
func (s Status) OccupiesCapacity() bool { return occupyingStatuses[s] }

// CanReschedule reports whether a booking in this status may move to a new
// time or closer.
func (s Status) CanReschedule() bool { return reschedulableStatuses[s] }

// CanTransition checks a status change requested through TransitionStatus.
func CanTransition(from, to Status, category CategoryPolicy) error {
	if from.IsTerminal() {
		return fmt.Errorf("booking in terminal status %s cannot change", from)
	}
	if to == StatusRescheduled {
		return fmt.Errorf("status %s is set by rescheduling only", to)
	}
	if to == StatusRefunded {
		return nil
	}
	if !transitions[from][to] {
		return fmt.Errorf("transition %s -> %s is not allowed", from, to)
	}
	if to == StatusContractFinalized && !category.AllowsContract {
		return fmt.Errorf("category does not allow %s", to)
	}
	return nil
}
