package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordErrorContext(t *testing.T) {
	err := NewMalformed(7, 2, "o42", "size is zero")

	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}

	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatal("expected *RecordError")
	}
	if re.Timestep != 7 || re.Tier != 2 || re.ObjectID != "o42" {
		t.Errorf("unexpected location: %+v", re)
	}

	msg := err.Error()
	for _, want := range []string{"timestep 7", "tier 2", "object o42", "size is zero"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestWithTimestep(t *testing.T) {
	err := WithTimestep(NewCohortOverflow(0, "often", 70, 64), 12)

	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatal("expected *RecordError")
	}
	if re.Timestep != 12 {
		t.Errorf("expected timestep 12, got %d", re.Timestep)
	}
	if !errors.Is(err, ErrCohortOverflow) {
		t.Error("expected ErrCohortOverflow to survive")
	}

	plain := WithTimestep(ErrNotFound, 3)
	if !errors.As(plain, &re) || re.Timestep != 3 || re.Tier != -1 {
		t.Errorf("plain error not located: %v", plain)
	}

	if WithTimestep(nil, 1) != nil {
		t.Error("nil error must stay nil")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{NewMalformed(0, 0, "o1", "dup"), ExitMalformedRecord},
		{NewCohortOverflow(0, "seldom", 5000, 4096), ExitCohortOverflow},
		{NewCapacityViolation(0, 1, 11, 10), ExitCapacity},
		{NewValidation("tiers", "must be positive"), ExitInvalidConfig},
		{NewMissingField("cohorts"), ExitInvalidConfig},
		{errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIsDataIntegrity(t *testing.T) {
	if !IsDataIntegrity(NewCapacityViolation(1, 0, 5, 4)) {
		t.Error("capacity violation is a data integrity error")
	}
	if IsDataIntegrity(NewValidation("block_size", "zero")) {
		t.Error("config error is not a data integrity error")
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	if v.Err() != nil {
		t.Error("empty collection must yield nil")
	}

	v.AddField("tiers", "must be positive")
	v.AddMissing("cohorts")
	v.Add(nil)

	if len(v.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(v.Errors))
	}

	err := v.Err()
	if !errors.Is(err, ErrMissingField) || !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected both sentinels reachable: %v", err)
	}
	if !strings.Contains(err.Error(), "validation failed with 2 errors") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
