package assert

import (
	"errors"
	"testing"
)

func TestValidateRunsClausesInOrder(t *testing.T) {
	var ran []string
	set, err := NewSet(
		Clause{Description: "is not a number", Check: func(v any) bool {
			ran = append(ran, "number")
			_, ok := v.(int)
			return ok
		}},
		Clause{Description: "is not positive", Check: func(v any) bool {
			ran = append(ran, "positive")
			return v.(int) > 0
		}},
	)
	if err != nil {
		t.Fatalf("new set: %v", err)
	}

	if err := set.Validate(3); err != nil {
		t.Fatalf("expected 3 to pass, got %v", err)
	}
	if len(ran) != 2 || ran[0] != "number" || ran[1] != "positive" {
		t.Fatalf("unexpected clause order: %v", ran)
	}
}

func TestValidateStopsAtFirstFailure(t *testing.T) {
	secondRan := false
	set := MustSet(
		Clause{Description: "is not a string", Check: func(v any) bool {
			_, ok := v.(string)
			return ok
		}},
		Clause{Description: "is empty", Check: func(v any) bool {
			secondRan = true
			return v.(string) != ""
		}},
	)

	err := set.Validate(42)
	if err == nil {
		t.Fatal("expected failure for non-string value")
	}
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %T", err)
	}
	if failure.Description != "is not a string" {
		t.Fatalf("unexpected description: %q", failure.Description)
	}
	if secondRan {
		t.Fatal("second clause should not run after the first fails")
	}
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	pass := func(any) bool { return true }
	if _, err := NewSet(
		Clause{Description: "is not valid", Check: pass},
		Clause{Description: "is not valid", Check: pass},
	); err == nil {
		t.Fatal("expected duplicate clause error")
	}
}

func TestNewSetRejectsNilPredicate(t *testing.T) {
	if _, err := NewSet(Clause{Description: "is broken"}); err == nil {
		t.Fatal("expected nil predicate error")
	}
}

func TestNilSetAcceptsEverything(t *testing.T) {
	var set *Set
	if err := set.Validate(nil); err != nil {
		t.Fatalf("nil set should pass, got %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("nil set length: %d", set.Len())
	}
}

func TestDescriptionsPreserveOrder(t *testing.T) {
	set := MustSet(
		Clause{Description: "c", Check: func(any) bool { return true }},
		Clause{Description: "a", Check: func(any) bool { return true }},
		Clause{Description: "b", Check: func(any) bool { return true }},
	)
	got := set.Descriptions()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descriptions = %v, want %v", got, want)
		}
	}
}
