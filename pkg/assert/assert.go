// Package assert implements ordered predicate sets used to validate
// attribute and constructor parameter values. Each clause pairs a
// human-readable failure description with a predicate; clauses run in
// declaration order and validation stops at the first failure.
package assert

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Predicate reports whether a value is acceptable.
type Predicate func(value any) bool

// Clause pairs a failure description with the predicate that guards it.
// The description is written as the tail of a sentence, e.g. "is not an
// integer", so failures read "Attribute 'count' is not an integer".
type Clause struct {
	Description string
	Check       Predicate
}

// Failure is returned by Validate when a clause rejects a value.
type Failure struct {
	// Description is the failing clause's description.
	Description string
}

func (f *Failure) Error() string {
	return "assert: value " + f.Description
}

// Set is an ordered collection of clauses. The zero value is not usable;
// construct with NewSet or MustSet. A nil *Set accepts every value.
type Set struct {
	clauses *orderedmap.OrderedMap[string, Predicate]
}

// NewSet builds a Set from clauses, preserving declaration order.
// Duplicate descriptions and nil predicates are rejected.
func NewSet(clauses ...Clause) (*Set, error) {
	s := &Set{clauses: orderedmap.New[string, Predicate]()}
	for _, c := range clauses {
		if err := s.Add(c.Description, c.Check); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSet is NewSet that panics on error. Intended for package-level
// declarations where the clauses are literals.
func MustSet(clauses ...Clause) *Set {
	s, err := NewSet(clauses...)
	if err != nil {
		panic(err)
	}
	return s
}

// Add appends one clause. It fails on an empty or duplicate description
// and on a nil predicate.
func (s *Set) Add(description string, check Predicate) error {
	if description == "" {
		return errors.New("assert: clause description must not be empty")
	}
	if check == nil {
		return fmt.Errorf("assert: clause %q has a nil predicate", description)
	}
	if _, exists := s.clauses.Get(description); exists {
		return fmt.Errorf("assert: duplicate clause %q", description)
	}
	s.clauses.Set(description, check)
	return nil
}

// Len returns the number of clauses. A nil Set has zero clauses.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.clauses.Len()
}

// Clauses returns the clauses in declaration order.
func (s *Set) Clauses() []Clause {
	if s == nil {
		return nil
	}
	out := make([]Clause, 0, s.clauses.Len())
	for pair := s.clauses.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Clause{Description: pair.Key, Check: pair.Value})
	}
	return out
}

// Descriptions returns the clause descriptions in declaration order.
func (s *Set) Descriptions() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, s.clauses.Len())
	for pair := s.clauses.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Validate runs the clauses in declaration order and returns a *Failure
// for the first predicate that rejects the value. A nil Set passes.
func (s *Set) Validate(value any) error {
	if s == nil {
		return nil
	}
	for pair := s.clauses.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value(value) {
			return &Failure{Description: pair.Key}
		}
	}
	return nil
}
