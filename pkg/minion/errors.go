package minion

import "fmt"

// Surface identifies which dispatch table a call went through.
type Surface string

const (
	// SurfacePublic is the ordinary instance call surface.
	SurfacePublic Surface = "public"
	// SurfaceSemiprivate is the reserved internal handle.
	SurfaceSemiprivate Surface = "semiprivate"
	// SurfaceClass is the class-level method surface where new lives.
	SurfaceClass Surface = "class"
)

// SpecError reports a malformed or incomplete specification. Build
// aborts before any composition work happens.
type SpecError struct {
	Class  string
	Detail string
}

func (e *SpecError) Error() string {
	if e.Class == "" {
		return "minion: invalid specification: " + e.Detail
	}
	return fmt.Sprintf("minion: class %q: invalid specification: %s", e.Class, e.Detail)
}

// CompositionError reports a name conflict between method/attribute
// sources or an unmet role requirement. Kind is "method" or "attribute",
// Name the capability in question.
type CompositionError struct {
	Class  string
	Kind   string
	Name   string
	Detail string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("minion: class %q: %s", e.Class, e.Detail)
}

// AssertionError reports a constructor parameter or attribute value
// rejected by a declared predicate. Its text is a stable shape that
// calling code matches on, so Error adds no prefix.
type AssertionError struct {
	// Name is the offending parameter or attribute.
	Name string
	// Description is the failing clause's description.
	Description string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("Attribute '%s' %s", e.Name, e.Description)
}

// NoSuchMethodError reports a call to a selector the class does not
// expose on the attempted surface. The class surface mirrors the
// classic "can't locate object method" shape; both forms are stable
// and matched on by calling code.
type NoSuchMethodError struct {
	Class    string
	Selector string
	Surface  Surface
}

func (e *NoSuchMethodError) Error() string {
	switch e.Surface {
	case SurfaceClass:
		return fmt.Sprintf("Can't locate object method %q via package %q", e.Selector, e.Class)
	case SurfaceSemiprivate:
		return fmt.Sprintf("no such semiprivate method %q on class %q", e.Selector, e.Class)
	default:
		return fmt.Sprintf("no such public method %q on class %q", e.Selector, e.Class)
	}
}

// SealedRecordError reports access to an attribute key outside the
// compiled schema. Op is "get" or "set".
type SealedRecordError struct {
	Class string
	Key   string
	Op    string
}

func (e *SealedRecordError) Error() string {
	return fmt.Sprintf("minion: class %q: access to undeclared attribute %q", e.Class, e.Key)
}

// AlreadyRegisteredError reports a second registration under a name the
// registry already holds.
type AlreadyRegisteredError struct {
	Name string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("minion: class %q already registered", e.Name)
}
