// Copyright 2026 © The Minion Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry integration with rich
// attributes for class lifecycle observability.
package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/classkit/minion/pkg/minion"
)

// Semantic conventions for minion telemetry. These follow OpenTelemetry
// naming conventions where applicable.
const (
	// Class attributes
	AttrClassName      = "minion.class.name"
	AttrClassAnonymous = "minion.class.anonymous"
	AttrClassAttrs     = "minion.class.attribute_count"
	AttrClassParams    = "minion.class.param_count"
	AttrClassSelectors = "minion.class.selector_count"

	// Instance attributes
	AttrInstanceID = "minion.instance.id"

	// Dispatch attributes
	AttrSelector = "minion.dispatch.selector"
	AttrSurface  = "minion.dispatch.surface"

	// Session attributes (MCP tool sessions)
	AttrSessionID = "minion.session.id"

	// Event attributes
	AttrEventType = "minion.event.type"

	// Error attributes
	AttrErrorKind = "minion.error.kind"
)

// ClassAttributes returns common attributes for class build spans.
// Anonymous classes are flagged instead of reporting an empty name.
func ClassAttributes(name string, attrCount, paramCount, selectorCount int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if name == "" {
		attrs = append(attrs, attribute.Bool(AttrClassAnonymous, true))
	} else {
		attrs = append(attrs, attribute.String(AttrClassName, name))
	}
	if attrCount > 0 {
		attrs = append(attrs, attribute.Int(AttrClassAttrs, attrCount))
	}
	if paramCount > 0 {
		attrs = append(attrs, attribute.Int(AttrClassParams, paramCount))
	}
	if selectorCount > 0 {
		attrs = append(attrs, attribute.Int(AttrClassSelectors, selectorCount))
	}
	return attrs
}

// InstanceAttributes returns attributes for construction spans.
func InstanceAttributes(className, instanceID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrClassName, className),
	}
	if instanceID != "" {
		attrs = append(attrs, attribute.String(AttrInstanceID, instanceID))
	}
	return attrs
}

// CallAttributes returns attributes for a method dispatch span.
func CallAttributes(className, selector, surface string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrClassName, className),
		attribute.String(AttrSelector, selector),
		attribute.String(AttrSurface, surface),
	}
}

// EventAttributes returns attributes describing a lifecycle event.
func EventAttributes(event minion.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrEventType, string(event.Type)),
	}
	if event.Class != "" {
		attrs = append(attrs, attribute.String(AttrClassName, event.Class))
	} else {
		attrs = append(attrs, attribute.Bool(AttrClassAnonymous, true))
	}
	if event.InstanceID != "" {
		attrs = append(attrs, attribute.String(AttrInstanceID, event.InstanceID))
	}
	return attrs
}

// ErrorKind classifies an error into a low-cardinality metric label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		specErr       *minion.SpecError
		compErr       *minion.CompositionError
		assertErr     *minion.AssertionError
		methodErr     *minion.NoSuchMethodError
		sealedErr     *minion.SealedRecordError
		registeredErr *minion.AlreadyRegisteredError
	)
	switch {
	case errors.As(err, &specErr):
		return "spec"
	case errors.As(err, &compErr):
		return "composition"
	case errors.As(err, &assertErr):
		return "assertion"
	case errors.As(err, &methodErr):
		return "no_such_method"
	case errors.As(err, &sealedErr):
		return "sealed_record"
	case errors.As(err, &registeredErr):
		return "already_registered"
	default:
		return "internal"
	}
}
