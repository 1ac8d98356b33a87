package scheduling

import (
	"errors"
	"testing"
)

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusScheduled, StatusConfirmed, StatusArrived, StatusCompleted, StatusBroken, StatusUnscheduled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "Scheduled", "cancelled", "noshow"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true", s)
		}
	}
}

func TestCheckTransitionSameStatus(t *testing.T) {
	if err := CheckTransition(StatusCompleted, StatusCompleted); err != nil {
		t.Errorf("same-status transition should be allowed: %v", err)
	}
}

func TestCheckTransitionAllowed(t *testing.T) {
	cases := [][2]string{
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusCompleted},
		{StatusConfirmed, StatusArrived},
		{StatusArrived, StatusCompleted},
		{StatusBroken, StatusScheduled},
		{StatusUnscheduled, StatusScheduled},
	}
	for _, c := range cases {
		if err := CheckTransition(c[0], c[1]); err != nil {
			t.Errorf("CheckTransition(%s, %s): %v", c[0], c[1], err)
		}
	}
}

func TestCheckTransitionRejected(t *testing.T) {
	cases := [][2]string{
		{StatusCompleted, StatusScheduled},
		{StatusCompleted, StatusBroken},
		{StatusArrived, StatusScheduled},
		{StatusBroken, StatusCompleted},
	}
	for _, c := range cases {
		err := CheckTransition(c[0], c[1])
		var invalid ErrInvalidTransition
		if !errors.As(err, &invalid) {
			t.Errorf("CheckTransition(%s, %s) = %v, want ErrInvalidTransition", c[0], c[1], err)
		}
	}
}

func TestCheckTransitionUnknownStatus(t *testing.T) {
	err := CheckTransition(StatusScheduled, "noshow")
	var unknown ErrUnknownStatus
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want ErrUnknownStatus", err)
	}
	if unknown.Status != "noshow" {
		t.Errorf("Status = %q, want noshow", unknown.Status)
	}

	if err := CheckTransition("bogus", StatusScheduled); !errors.As(err, &unknown) {
		t.Errorf("unknown from-status should error, got %v", err)
	}
}
