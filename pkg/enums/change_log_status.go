package enums

import (
	"slices"
	"strings"
)

// ChangeLogStatus tracks a change request through review. A request leaves
// pending exactly once.
type ChangeLogStatus string

const (
	ChangeLogStatusPending  ChangeLogStatus = "pending"
	ChangeLogStatusAccepted ChangeLogStatus = "accepted"
	ChangeLogStatusDeclined ChangeLogStatus = "declined"
)

var changeLogStatuses = []ChangeLogStatus{
	ChangeLogStatusPending,
	ChangeLogStatusAccepted,
	ChangeLogStatusDeclined,
}

func (s ChangeLogStatus) String() string { return string(s) }

// API is the upper-case label used on the wire.
func (s ChangeLogStatus) API() string { return strings.ToUpper(string(s)) }

func (s ChangeLogStatus) IsValid() bool { return slices.Contains(changeLogStatuses, s) }

func (s ChangeLogStatus) IsTerminal() bool { return s != ChangeLogStatusPending && s.IsValid() }

// ParseChangeLogStatus accepts both stored and wire labels.
func ParseChangeLogStatus(value string) (ChangeLogStatus, error) {
	return parse("change log status", changeLogStatuses, value)
}
