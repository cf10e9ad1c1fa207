// Copyright 2026 © The Minion Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides utilities for testing minion classes and
// class files.
//
// This package includes:
//   - Scenario definitions for declarative construct-and-call testing
//   - Scripted methods for stubbing implementations
//   - Assertion helpers for common validations
//   - Event collectors for verifying lifecycle behavior
//
// Example usage:
//
//	scenario := testing.NewScenario("counter counts").
//	    WithParams(map[string]any{"start": 10}).
//	    Call("next").
//	    Call("next").
//	    ExpectNoError().
//	    ExpectResult(12)
//
//	result := scenario.Run(t, counterClass)
//	result.Assert(t, scenario)
package testing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/classkit/minion/pkg/minion"
)

// Scenario defines one construct-and-call flow against a compiled
// class.
type Scenario struct {
	name          string
	description   string
	params        map[string]any
	args          []any
	positional    bool
	calls         []callStep
	collector     *EventCollector
	setupFuncs    []func() error
	teardownFuncs []func() error
	expectations  []Expectation
}

type callStep struct {
	selector    string
	args        []any
	semiprivate bool
}

// Expectation defines a condition to verify after running a scenario.
type Expectation interface {
	// Check verifies the expectation against the result.
	Check(result *ScenarioResult) error
	// Description returns a human-readable description of the expectation.
	Description() string
}

// ScenarioResult contains the outcome of running a scenario.
type ScenarioResult struct {
	Instance *minion.Instance
	Result   any
	Error    error
	Events   []minion.Event
	Duration time.Duration
}

// NewScenario creates a new test scenario with the given name.
func NewScenario(name string) *Scenario {
	return &Scenario{
		name:         name,
		expectations: make([]Expectation, 0),
	}
}

// WithDescription adds a description to the scenario.
func (s *Scenario) WithDescription(desc string) *Scenario {
	s.description = desc
	return s
}

// WithParams sets the named construction parameters.
func (s *Scenario) WithParams(params map[string]any) *Scenario {
	s.params = params
	s.positional = false
	return s
}

// WithArgs sets positional construction arguments, routed through the
// class's build_args adapter.
func (s *Scenario) WithArgs(args ...any) *Scenario {
	s.args = args
	s.positional = true
	return s
}

// WithCollector snapshots the collector's events into the result after
// the run. Pass the same collector the class was compiled with.
func (s *Scenario) WithCollector(c *EventCollector) *Scenario {
	s.collector = c
	return s
}

// Call appends a public method call. The result of the last call is
// what ExpectResult checks.
func (s *Scenario) Call(selector string, args ...any) *Scenario {
	s.calls = append(s.calls, callStep{selector: selector, args: args})
	return s
}

// CallSemiprivate appends a semiprivate method call.
func (s *Scenario) CallSemiprivate(selector string, args ...any) *Scenario {
	s.calls = append(s.calls, callStep{selector: selector, args: args, semiprivate: true})
	return s
}

// WithSetup adds a setup function to run before the scenario.
func (s *Scenario) WithSetup(fn func() error) *Scenario {
	s.setupFuncs = append(s.setupFuncs, fn)
	return s
}

// WithTeardown adds a teardown function to run after the scenario.
func (s *Scenario) WithTeardown(fn func() error) *Scenario {
	s.teardownFuncs = append(s.teardownFuncs, fn)
	return s
}

// Expect adds an expectation to the scenario.
func (s *Scenario) Expect(exp Expectation) *Scenario {
	s.expectations = append(s.expectations, exp)
	return s
}

// ExpectNoError expects the whole flow to succeed.
func (s *Scenario) ExpectNoError() *Scenario {
	return s.Expect(&noErrorExpectation{})
}

// ExpectError expects construction or a call to fail with a message
// matching the given pattern.
func (s *Scenario) ExpectError(matcher StringMatcher) *Scenario {
	return s.Expect(&errorExpectation{matcher: matcher})
}

// ExpectResult expects the last call to return the given value.
func (s *Scenario) ExpectResult(want any) *Scenario {
	return s.Expect(&resultExpectation{want: want})
}

// ExpectAttribute expects the constructed instance to hold the given
// attribute value.
func (s *Scenario) ExpectAttribute(name string, want any) *Scenario {
	return s.Expect(&attributeExpectation{name: name, want: want})
}

// ExpectEvent expects an event of the given type in the collector
// snapshot.
func (s *Scenario) ExpectEvent(eventType minion.EventType) *Scenario {
	return s.Expect(&eventExpectation{eventType: eventType})
}

// Run executes the scenario against the given class.
func (s *Scenario) Run(t *testing.T, cls *minion.Class) *ScenarioResult {
	t.Helper()

	for _, setup := range s.setupFuncs {
		if err := setup(); err != nil {
			t.Fatalf("scenario %q setup failed: %v", s.name, err)
		}
	}
	defer func() {
		for _, teardown := range s.teardownFuncs {
			if err := teardown(); err != nil {
				t.Errorf("scenario %q teardown failed: %v", s.name, err)
			}
		}
	}()

	start := time.Now()
	result := &ScenarioResult{}

	var inst *minion.Instance
	var err error
	if s.positional {
		inst, err = cls.Construct(s.args...)
	} else {
		inst, err = cls.New(s.params)
	}
	result.Instance = inst
	result.Error = err

	if err == nil {
		for _, step := range s.calls {
			var out any
			if step.semiprivate {
				out, err = inst.Semiprivate().Call(step.selector, step.args...)
			} else {
				out, err = inst.Call(step.selector, step.args...)
			}
			if err != nil {
				result.Error = err
				break
			}
			result.Result = out
		}
	}

	result.Duration = time.Since(start)
	if s.collector != nil {
		result.Events = s.collector.Events()
	}
	return result
}

// Assert checks all expectations and reports failures to the test.
func (r *ScenarioResult) Assert(t *testing.T, scenario *Scenario) {
	t.Helper()

	for _, exp := range scenario.expectations {
		if err := exp.Check(r); err != nil {
			t.Errorf("expectation %q failed: %v", exp.Description(), err)
		}
	}
}

// StringMatcher defines how to match strings in expectations.
type StringMatcher interface {
	Match(s string) bool
	Description() string
}

// Contains returns a matcher that checks if the string contains the substring.
func Contains(substr string) StringMatcher {
	return &containsMatcher{substr: substr}
}

// Equals returns a matcher that checks exact string equality.
func Equals(expected string) StringMatcher {
	return &equalsMatcher{expected: expected}
}

// Regex returns a matcher that checks against a regular expression.
func Regex(pattern string) StringMatcher {
	return &regexMatcher{pattern: pattern}
}

// HasPrefix returns a matcher that checks if the string has the given prefix.
func HasPrefix(prefix string) StringMatcher {
	return &prefixMatcher{prefix: prefix}
}

type containsMatcher struct {
	substr string
}

func (m *containsMatcher) Match(s string) bool {
	return strings.Contains(s, m.substr)
}

func (m *containsMatcher) Description() string {
	return fmt.Sprintf("contains %q", m.substr)
}

type equalsMatcher struct {
	expected string
}

func (m *equalsMatcher) Match(s string) bool {
	return s == m.expected
}

func (m *equalsMatcher) Description() string {
	return fmt.Sprintf("equals %q", m.expected)
}

type regexMatcher struct {
	pattern string
}

func (m *regexMatcher) Match(s string) bool {
	re, err := regexp.Compile(m.pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (m *regexMatcher) Description() string {
	return fmt.Sprintf("matches regex %q", m.pattern)
}

type prefixMatcher struct {
	prefix string
}

func (m *prefixMatcher) Match(s string) bool {
	return strings.HasPrefix(s, m.prefix)
}

func (m *prefixMatcher) Description() string {
	return fmt.Sprintf("has prefix %q", m.prefix)
}

// Expectation implementations

type noErrorExpectation struct{}

func (e *noErrorExpectation) Check(r *ScenarioResult) error {
	if r.Error != nil {
		return fmt.Errorf("expected no error, got: %v", r.Error)
	}
	return nil
}

func (e *noErrorExpectation) Description() string {
	return "no error"
}

type errorExpectation struct {
	matcher StringMatcher
}

func (e *errorExpectation) Check(r *ScenarioResult) error {
	if r.Error == nil {
		return fmt.Errorf("expected error matching %s, got nil", e.matcher.Description())
	}
	if !e.matcher.Match(r.Error.Error()) {
		return fmt.Errorf("error %q does not match: %s", r.Error.Error(), e.matcher.Description())
	}
	return nil
}

func (e *errorExpectation) Description() string {
	return fmt.Sprintf("error %s", e.matcher.Description())
}

type resultExpectation struct {
	want any
}

func (e *resultExpectation) Check(r *ScenarioResult) error {
	if r.Result != e.want {
		return fmt.Errorf("result = %v, want %v", r.Result, e.want)
	}
	return nil
}

func (e *resultExpectation) Description() string {
	return fmt.Sprintf("result %v", e.want)
}

type attributeExpectation struct {
	name string
	want any
}

func (e *attributeExpectation) Check(r *ScenarioResult) error {
	if r.Instance == nil {
		return fmt.Errorf("no instance constructed")
	}
	got, err := r.Instance.Get(e.name)
	if err != nil {
		return err
	}
	if got != e.want {
		return fmt.Errorf("attribute %q = %v, want %v", e.name, got, e.want)
	}
	return nil
}

func (e *attributeExpectation) Description() string {
	return fmt.Sprintf("attribute %q is %v", e.name, e.want)
}

type eventExpectation struct {
	eventType minion.EventType
}

func (e *eventExpectation) Check(r *ScenarioResult) error {
	for _, ev := range r.Events {
		if ev.Type == e.eventType {
			return nil
		}
	}
	return fmt.Errorf("event type %q was not emitted", e.eventType)
}

func (e *eventExpectation) Description() string {
	return fmt.Sprintf("event %q emitted", e.eventType)
}

// EventCollector collects lifecycle events. It implements
// minion.EventEmitter, so pass it to Minionize via WithEmitter.
type EventCollector struct {
	mu     sync.RWMutex
	events []minion.Event
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]minion.Event, 0),
	}
}

// Emit implements minion.EventEmitter.
func (c *EventCollector) Emit(_ context.Context, event minion.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// Events returns all collected events.
func (c *EventCollector) Events() []minion.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]minion.Event, len(c.events))
	copy(result, c.events)
	return result
}

// EventTypes returns the types of all collected events.
func (c *EventCollector) EventTypes() []minion.EventType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]minion.EventType, len(c.events))
	for i, ev := range c.events {
		types[i] = ev.Type
	}
	return types
}

// HasEvent checks if an event of the given type was collected.
func (c *EventCollector) HasEvent(eventType minion.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ev := range c.events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

// Count returns the number of collected events.
func (c *EventCollector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// Reset clears all collected events.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
