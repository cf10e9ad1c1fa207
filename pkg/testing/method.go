// Copyright 2026 © The Minion Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"fmt"
	"sync"

	"github.com/classkit/minion/pkg/minion"
)

// ScriptedMethod is a method stub for testing dispatch and role
// composition. It replays queued results and captures every call.
type ScriptedMethod struct {
	mu         sync.Mutex
	results    []ScriptedResult
	index      int
	calls      []CallRecord
	defaultErr error
	onCall     func(self *minion.Instance, args []any) (any, error)
}

// ScriptedResult defines one queued return value.
type ScriptedResult struct {
	Value any
	Err   error
}

// CallRecord records one call made to the scripted method.
type CallRecord struct {
	Args []any
}

// NewScriptedMethod creates an empty scripted method.
func NewScriptedMethod() *ScriptedMethod {
	return &ScriptedMethod{
		results: make([]ScriptedResult, 0),
		calls:   make([]CallRecord, 0),
	}
}

// AddResult queues a value to be returned.
func (m *ScriptedMethod) AddResult(value any) *ScriptedMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, ScriptedResult{Value: value})
	return m
}

// AddError queues an error return.
func (m *ScriptedMethod) AddError(err error) *ScriptedMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, ScriptedResult{Err: err})
	return m
}

// WithDefaultError sets the error returned once the queue is drained.
func (m *ScriptedMethod) WithDefaultError(err error) *ScriptedMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// WithCallFunc sets a custom handler, bypassing the queue.
func (m *ScriptedMethod) WithCallFunc(fn func(self *minion.Instance, args []any) (any, error)) *ScriptedMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCall = fn
	return m
}

// Method returns the minion.Method to compose into an Impl or Role.
func (m *ScriptedMethod) Method() minion.Method {
	return func(self *minion.Instance, args ...any) (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.calls = append(m.calls, CallRecord{Args: args})

		if m.onCall != nil {
			return m.onCall(self, args)
		}

		if m.index >= len(m.results) {
			if m.defaultErr != nil {
				return nil, m.defaultErr
			}
			return nil, fmt.Errorf("no more scripted results (call %d)", m.index+1)
		}

		result := m.results[m.index]
		m.index++

		if result.Err != nil {
			return nil, result.Err
		}
		return result.Value, nil
	}
}

// Calls returns all captured calls.
func (m *ScriptedMethod) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]CallRecord, len(m.calls))
	copy(result, m.calls)
	return result
}

// LastCall returns the most recent call.
func (m *ScriptedMethod) LastCall() *CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// CallCount returns the number of calls made.
func (m *ScriptedMethod) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all state.
func (m *ScriptedMethod) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = 0
	m.calls = m.calls[:0]
}

// ImplBuilder helps construct implementations for testing.
type ImplBuilder struct {
	impl *minion.Impl
}

// NewImpl creates a new implementation builder.
func NewImpl() *ImplBuilder {
	return &ImplBuilder{
		impl: &minion.Impl{
			Has:     make(map[string]*minion.Attr),
			Methods: make(map[string]minion.Method),
		},
	}
}

// WithAttr declares an attribute.
func (b *ImplBuilder) WithAttr(name string, attr *minion.Attr) *ImplBuilder {
	b.impl.Has[name] = attr
	return b
}

// WithDefault declares an attribute with a literal default.
func (b *ImplBuilder) WithDefault(name string, value any) *ImplBuilder {
	b.impl.Has[name] = &minion.Attr{Default: value}
	return b
}

// WithMethod declares a method.
func (b *ImplBuilder) WithMethod(selector string, method minion.Method) *ImplBuilder {
	b.impl.Methods[selector] = method
	return b
}

// WithSemiprivate marks selectors as semiprivate.
func (b *ImplBuilder) WithSemiprivate(selectors ...string) *ImplBuilder {
	b.impl.Semiprivate = append(b.impl.Semiprivate, selectors...)
	return b
}

// Build returns the implementation.
func (b *ImplBuilder) Build() *minion.Impl {
	return b.impl
}

// RoleBuilder helps construct roles for testing.
type RoleBuilder struct {
	role *minion.Role
}

// NewRole creates a new role builder.
func NewRole(name string) *RoleBuilder {
	return &RoleBuilder{
		role: &minion.Role{
			Name:    name,
			Has:     make(map[string]*minion.Attr),
			Methods: make(map[string]minion.Method),
		},
	}
}

// WithAttr declares an attribute.
func (b *RoleBuilder) WithAttr(name string, attr *minion.Attr) *RoleBuilder {
	b.role.Has[name] = attr
	return b
}

// WithMethod declares a method.
func (b *RoleBuilder) WithMethod(selector string, method minion.Method) *RoleBuilder {
	b.role.Methods[selector] = method
	return b
}

// WithSemiprivate marks selectors as semiprivate.
func (b *RoleBuilder) WithSemiprivate(selectors ...string) *RoleBuilder {
	b.role.Semiprivate = append(b.role.Semiprivate, selectors...)
	return b
}

// RequiresMethods declares method selectors the role's host must
// provide.
func (b *RoleBuilder) RequiresMethods(selectors ...string) *RoleBuilder {
	b.role.Requires.Methods = append(b.role.Requires.Methods, selectors...)
	return b
}

// RequiresAttributes declares attributes the role's host must provide.
func (b *RoleBuilder) RequiresAttributes(names ...string) *RoleBuilder {
	b.role.Requires.Attributes = append(b.role.Requires.Attributes, names...)
	return b
}

// Build returns the role.
func (b *RoleBuilder) Build() *minion.Role {
	return b.role
}
