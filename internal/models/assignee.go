package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Assignee is a tagged assignment value: nobody, one user, or the whole
// team. The team sentinel is stored as 0 in the assigned_to column (user IDs
// auto-increment from 1, so 0 can never collide with a real user), and
// "unassigned" is stored as NULL. Call sites work with the tagged value and
// never compare raw integers.
type Assignee struct {
	set  bool
	team bool
	user uint
}

// Unassigned returns the empty assignment.
func Unassigned() Assignee { return Assignee{} }

// AssignTeam returns the whole-team sentinel assignment.
func AssignTeam() Assignee { return Assignee{set: true, team: true} }

// AssignUser returns an assignment to a specific user.
func AssignUser(id uint) Assignee { return Assignee{set: true, user: id} }

// IsUnassigned reports whether nobody is assigned.
func (a Assignee) IsUnassigned() bool { return !a.set }

// IsTeam reports whether the whole team is assigned.
func (a Assignee) IsTeam() bool { return a.set && a.team }

// UserID returns the assigned user's ID. ok is false for Unassigned and Team.
func (a Assignee) UserID() (id uint, ok bool) {
	if !a.set || a.team {
		return 0, false
	}
	return a.user, true
}

// Equal reports whether two assignments are the same.
func (a Assignee) Equal(b Assignee) bool { return a == b }

// String renders the assignment for logs and timeline notes.
func (a Assignee) String() string {
	switch {
	case !a.set:
		return "unassigned"
	case a.team:
		return "team"
	default:
		return fmt.Sprintf("user %d", a.user)
	}
}

// GormDataType maps Assignee to a nullable bigint column.
func (Assignee) GormDataType() string { return "bigint" }

// Value implements driver.Valuer: NULL, 0 (team), or the user ID.
func (a Assignee) Value() (driver.Value, error) {
	if !a.set {
		return nil, nil
	}
	if a.team {
		return int64(0), nil
	}
	return int64(a.user), nil
}

// Scan implements sql.Scanner for NULL / integer columns.
func (a *Assignee) Scan(src interface{}) error {
	if src == nil {
		*a = Unassigned()
		return nil
	}
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case []byte:
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return fmt.Errorf("models: scan assignee %q: %w", v, err)
		}
	default:
		return fmt.Errorf("models: scan assignee: unsupported type %T", src)
	}
	if n < 0 {
		return fmt.Errorf("models: scan assignee: negative value %d", n)
	}
	if n == 0 {
		*a = AssignTeam()
	} else {
		*a = AssignUser(uint(n))
	}
	return nil
}

// MarshalJSON renders null, "team", or the user ID.
func (a Assignee) MarshalJSON() ([]byte, error) {
	switch {
	case !a.set:
		return []byte("null"), nil
	case a.team:
		return []byte(`"team"`), nil
	default:
		return json.Marshal(a.user)
	}
}

// UnmarshalJSON accepts null, "team", or a user ID.
func (a *Assignee) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*a = Unassigned()
	case string:
		if v != "team" {
			return fmt.Errorf("models: unmarshal assignee: unknown value %q", v)
		}
		*a = AssignTeam()
	case float64:
		if v < 0 || v != float64(int64(v)) {
			return fmt.Errorf("models: unmarshal assignee: invalid user ID %v", v)
		}
		if v == 0 {
			*a = AssignTeam()
		} else {
			*a = AssignUser(uint(v))
		}
	default:
		return fmt.Errorf("models: unmarshal assignee: unsupported value %s", data)
	}
	return nil
}
