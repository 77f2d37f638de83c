package models

import (
	"encoding/json"
	"testing"
)

func TestAssignee_Value(t *testing.T) {
	v, err := Unassigned().Value()
	if err != nil || v != nil {
		t.Errorf("Unassigned().Value() = %v, %v, want nil, nil", v, err)
	}

	v, err = AssignTeam().Value()
	if err != nil || v != int64(0) {
		t.Errorf("AssignTeam().Value() = %v, %v, want 0, nil", v, err)
	}

	v, err = AssignUser(42).Value()
	if err != nil || v != int64(42) {
		t.Errorf("AssignUser(42).Value() = %v, %v, want 42, nil", v, err)
	}
}

func TestAssignee_Scan(t *testing.T) {
	var a Assignee

	if err := a.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !a.IsUnassigned() {
		t.Error("scan nil should be unassigned")
	}

	if err := a.Scan(int64(0)); err != nil {
		t.Fatalf("scan 0: %v", err)
	}
	if !a.IsTeam() {
		t.Error("scan 0 should be the team sentinel")
	}

	if err := a.Scan(int64(7)); err != nil {
		t.Fatalf("scan 7: %v", err)
	}
	id, ok := a.UserID()
	if !ok || id != 7 {
		t.Errorf("scan 7: UserID() = %d, %v, want 7, true", id, ok)
	}

	if err := a.Scan(int64(-1)); err == nil {
		t.Error("scan -1 should fail")
	}
	if err := a.Scan("bogus"); err == nil {
		t.Error("scan string should fail")
	}
}

func TestAssignee_JSON(t *testing.T) {
	cases := []struct {
		a    Assignee
		want string
	}{
		{Unassigned(), "null"},
		{AssignTeam(), `"team"`},
		{AssignUser(3), "3"},
	}
	for _, c := range cases {
		got, err := json.Marshal(c.a)
		if err != nil {
			t.Fatalf("marshal %s: %v", c.a, err)
		}
		if string(got) != c.want {
			t.Errorf("marshal %s = %s, want %s", c.a, got, c.want)
		}

		var back Assignee
		if err := json.Unmarshal(got, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", got, err)
		}
		if !back.Equal(c.a) {
			t.Errorf("round trip %s = %s", c.a, back)
		}
	}

	var a Assignee
	if err := json.Unmarshal([]byte(`"everyone"`), &a); err == nil {
		t.Error("unknown string should fail")
	}
	if err := json.Unmarshal([]byte("-2"), &a); err == nil {
		t.Error("negative ID should fail")
	}
	if err := json.Unmarshal([]byte("1.5"), &a); err == nil {
		t.Error("fractional ID should fail")
	}
}

func TestAssignee_String(t *testing.T) {
	if s := Unassigned().String(); s != "unassigned" {
		t.Errorf("Unassigned().String() = %q", s)
	}
	if s := AssignTeam().String(); s != "team" {
		t.Errorf("AssignTeam().String() = %q", s)
	}
	if s := AssignUser(5).String(); s != "user 5" {
		t.Errorf("AssignUser(5).String() = %q", s)
	}
}
