// Copyright 2026 © The Minion Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"strings"
	"testing"

	"github.com/classkit/minion/pkg/minion"
)

// Assertions provides assertion helpers for testing.
type Assertions struct {
	t      *testing.T
	failed bool
}

// NewAssertions creates a new assertions helper.
func NewAssertions(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// Failed returns true if any assertion has failed.
func (a *Assertions) Failed() bool {
	return a.failed
}

// AssertEqual asserts that two values are equal.
func (a *Assertions) AssertEqual(expected, actual any, msg string) {
	a.t.Helper()
	if expected != actual {
		a.t.Errorf("%s: expected %v, got %v", msg, expected, actual)
		a.failed = true
	}
}

// AssertNotEqual asserts that two values are not equal.
func (a *Assertions) AssertNotEqual(expected, actual any, msg string) {
	a.t.Helper()
	if expected == actual {
		a.t.Errorf("%s: expected not %v, got %v", msg, expected, actual)
		a.failed = true
	}
}

// AssertNil asserts that the value is nil.
func (a *Assertions) AssertNil(value any, msg string) {
	a.t.Helper()
	if value != nil {
		a.t.Errorf("%s: expected nil, got %v", msg, value)
		a.failed = true
	}
}

// AssertNotNil asserts that the value is not nil.
func (a *Assertions) AssertNotNil(value any, msg string) {
	a.t.Helper()
	if value == nil {
		a.t.Errorf("%s: expected non-nil value", msg)
		a.failed = true
	}
}

// AssertTrue asserts that the value is true.
func (a *Assertions) AssertTrue(value bool, msg string) {
	a.t.Helper()
	if !value {
		a.t.Errorf("%s: expected true", msg)
		a.failed = true
	}
}

// AssertContains asserts that the string contains the substring.
func (a *Assertions) AssertContains(s, substr, msg string) {
	a.t.Helper()
	if !strings.Contains(s, substr) {
		a.t.Errorf("%s: %q does not contain %q", msg, s, substr)
		a.failed = true
	}
}

// AssertError asserts that the error is not nil.
func (a *Assertions) AssertError(err error, msg string) {
	a.t.Helper()
	if err == nil {
		a.t.Errorf("%s: expected error, got nil", msg)
		a.failed = true
	}
}

// AssertNoError asserts that the error is nil.
func (a *Assertions) AssertNoError(err error, msg string) {
	a.t.Helper()
	if err != nil {
		a.t.Errorf("%s: unexpected error: %v", msg, err)
		a.failed = true
	}
}

// AssertErrorContains asserts that the error message contains the substring.
func (a *Assertions) AssertErrorContains(err error, substr, msg string) {
	a.t.Helper()
	if err == nil {
		a.t.Errorf("%s: expected error containing %q, got nil", msg, substr)
		a.failed = true
		return
	}
	if !strings.Contains(err.Error(), substr) {
		a.t.Errorf("%s: error %q does not contain %q", msg, err.Error(), substr)
		a.failed = true
	}
}

// AssertLen asserts the length of a string, slice or map.
func (a *Assertions) AssertLen(value any, expected int, msg string) {
	a.t.Helper()
	var length int
	switch v := value.(type) {
	case string:
		length = len(v)
	case []any:
		length = len(v)
	case []string:
		length = len(v)
	case []minion.Event:
		length = len(v)
	case []minion.EventType:
		length = len(v)
	case map[string]any:
		length = len(v)
	default:
		a.t.Errorf("%s: cannot get length of %T", msg, value)
		a.failed = true
		return
	}
	if length != expected {
		a.t.Errorf("%s: expected length %d, got %d", msg, expected, length)
		a.failed = true
	}
}

// InstanceAssertions provides assertion helpers for constructed
// instances.
type InstanceAssertions struct {
	*Assertions
	inst *minion.Instance
}

// AssertInstance creates instance assertions for the given instance.
func (a *Assertions) AssertInstance(inst *minion.Instance) *InstanceAssertions {
	a.t.Helper()
	if inst == nil {
		a.t.Error("instance is nil")
		a.failed = true
	}
	return &InstanceAssertions{Assertions: a, inst: inst}
}

// HasAttribute asserts the instance holds the given attribute value.
func (i *InstanceAssertions) HasAttribute(name string, want any) *InstanceAssertions {
	i.t.Helper()
	if i.inst == nil {
		return i
	}
	got, err := i.inst.Get(name)
	if err != nil {
		i.t.Errorf("attribute %q: %v", name, err)
		i.failed = true
		return i
	}
	if got != want {
		i.t.Errorf("attribute %q = %v, want %v", name, got, want)
		i.failed = true
	}
	return i
}

// CallReturns asserts calling the selector returns the given value.
func (i *InstanceAssertions) CallReturns(want any, selector string, args ...any) *InstanceAssertions {
	i.t.Helper()
	if i.inst == nil {
		return i
	}
	got, err := i.inst.Call(selector, args...)
	if err != nil {
		i.t.Errorf("call %q: %v", selector, err)
		i.failed = true
		return i
	}
	if got != want {
		i.t.Errorf("call %q = %v, want %v", selector, got, want)
		i.failed = true
	}
	return i
}

// CallFails asserts calling the selector fails with a message
// containing the substring.
func (i *InstanceAssertions) CallFails(contains string, selector string, args ...any) *InstanceAssertions {
	i.t.Helper()
	if i.inst == nil {
		return i
	}
	_, err := i.inst.Call(selector, args...)
	if err == nil {
		i.t.Errorf("call %q: expected error containing %q, got nil", selector, contains)
		i.failed = true
		return i
	}
	if !strings.Contains(err.Error(), contains) {
		i.t.Errorf("call %q: error %q does not contain %q", selector, err.Error(), contains)
		i.failed = true
	}
	return i
}

// RejectsKey asserts the instance's sealed record rejects the key.
func (i *InstanceAssertions) RejectsKey(key string) *InstanceAssertions {
	i.t.Helper()
	if i.inst == nil {
		return i
	}
	if _, err := i.inst.Get(key); err == nil {
		i.t.Errorf("key %q: expected sealed record rejection", key)
		i.failed = true
	}
	return i
}

// ScenarioResultAssertions provides assertions for scenario results.
type ScenarioResultAssertions struct {
	*Assertions
	result *ScenarioResult
}

// AssertScenarioResult creates assertions for a scenario result.
func (a *Assertions) AssertScenarioResult(result *ScenarioResult) *ScenarioResultAssertions {
	a.t.Helper()
	if result == nil {
		a.t.Error("scenario result is nil")
		a.failed = true
		return &ScenarioResultAssertions{Assertions: a, result: &ScenarioResult{}}
	}
	return &ScenarioResultAssertions{Assertions: a, result: result}
}

// Succeeded asserts the scenario completed without error.
func (s *ScenarioResultAssertions) Succeeded() *ScenarioResultAssertions {
	s.t.Helper()
	if s.result.Error != nil {
		s.t.Errorf("expected success, got error: %v", s.result.Error)
		s.failed = true
	}
	return s
}

// Failed asserts the scenario failed with an error.
func (s *ScenarioResultAssertions) Failed() *ScenarioResultAssertions {
	s.t.Helper()
	if s.result.Error == nil {
		s.t.Error("expected failure, got success")
		s.failed = true
	}
	return s
}

// ResultEquals asserts the last call returned the expected value.
func (s *ScenarioResultAssertions) ResultEquals(expected any) *ScenarioResultAssertions {
	s.t.Helper()
	if s.result.Result != expected {
		s.t.Errorf("expected result %v, got %v", expected, s.result.Result)
		s.failed = true
	}
	return s
}

// ErrorContains asserts the scenario error contains the substring.
func (s *ScenarioResultAssertions) ErrorContains(substr string) *ScenarioResultAssertions {
	s.t.Helper()
	if s.result.Error == nil {
		s.t.Errorf("expected error containing %q, got nil", substr)
		s.failed = true
		return s
	}
	if !strings.Contains(s.result.Error.Error(), substr) {
		s.t.Errorf("error %q does not contain %q", s.result.Error.Error(), substr)
		s.failed = true
	}
	return s
}

// Quick assertion functions for common patterns

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// RequireEqual fails the test immediately if values are not equal.
func RequireEqual(t *testing.T, expected, actual any, msg string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// RequireNotNil fails the test immediately if value is nil.
func RequireNotNil(t *testing.T, value any, msg string) {
	t.Helper()
	if value == nil {
		t.Fatalf("%s: expected non-nil value", msg)
	}
}
