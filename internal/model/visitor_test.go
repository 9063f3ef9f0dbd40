package model

import (
	"testing"
	"time"
)

func TestVisitorFullName(t *testing.T) {
	cases := []struct {
		v    Visitor
		want string
	}{
		{Visitor{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{Visitor{FirstName: "Ada", MiddleName: "King", LastName: "Lovelace"}, "Ada King Lovelace"},
		{Visitor{FirstName: "Ada"}, "Ada"},
	}
	for _, c := range cases {
		if got := c.v.FullName(); got != c.want {
			t.Errorf("FullName() = %q, want %q", got, c.want)
		}
	}
}

func TestVisitActive(t *testing.T) {
	v := Visit{ID: 1, CheckedInAt: time.Now().UTC()}
	if !v.Active() {
		t.Error("open visit reported inactive")
	}
	out := time.Now().UTC()
	v.CheckedOutAt = &out
	if v.Active() {
		t.Error("closed visit reported active")
	}
}
