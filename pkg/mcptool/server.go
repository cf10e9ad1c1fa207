// Package mcptool exposes compiled classes as MCP tools. Each exposed
// class gets a constructor tool and a dispatch tool, so MCP clients can
// build instances and call their public selectors over stdio.
package mcptool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/classkit/minion/pkg/minion"
	"github.com/classkit/minion/pkg/telemetry"
)

// Server wraps the mcp-go server and a class registry. Constructed
// instances live in a session table keyed by instance id until they
// are released.
type Server struct {
	mcpServer *server.MCPServer
	registry  *minion.Registry
	logger    *slog.Logger
	tracer    trace.Tracer

	mu       sync.RWMutex
	sessions map[string]*session
}

// session serializes calls into one instance. Instances are not
// internally synchronized, so concurrent tool calls must take turns.
type session struct {
	mu   sync.Mutex
	inst *minion.Instance
}

// NewServer creates a new MCP server backed by reg. A nil registry
// falls back to the process-wide default.
func NewServer(name, version string, reg *minion.Registry) *Server {
	if reg == nil {
		reg = minion.DefaultRegistry()
	}
	s := &Server{
		mcpServer: server.NewMCPServer(name, version),
		registry:  reg,
		logger:    slog.Default(),
		tracer:    otel.Tracer("minion/mcptool"),
		sessions:  make(map[string]*session),
	}
	s.registerGlobalTools()
	return s
}

// ExposeClass registers <name>_new, <name>_call and <name>_describe
// tools for a compiled class. Anonymous classes have no stable tool
// name and are rejected.
func (s *Server) ExposeClass(cls *minion.Class) error {
	if cls == nil {
		return fmt.Errorf("mcptool: nil class")
	}
	name := cls.Name()
	if name == "" {
		return fmt.Errorf("mcptool: anonymous class cannot be exposed")
	}

	newTool := mcp.NewTool(name+"_new",
		mcp.WithDescription(fmt.Sprintf("Construct a %s instance. Arguments are the class construct_with parameters.", name)))
	s.mcpServer.AddTool(newTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return s.handleNew(ctx, cls, args)
	})

	callTool := mcp.NewTool(name+"_call",
		mcp.WithDescription(fmt.Sprintf("Call a public method on a %s instance. Arguments: instance_id, selector, args (optional array).", name)))
	s.mcpServer.AddTool(callTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return s.handleCall(ctx, cls, args)
	})

	describeTool := mcp.NewTool(name+"_describe",
		mcp.WithDescription(fmt.Sprintf("Describe the %s class: interface, parameters and attributes.", name)))
	s.mcpServer.AddTool(describeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.handleDescribe(cls)
	})

	return nil
}

// ExposeRegistry exposes every class currently registered.
func (s *Server) ExposeRegistry() error {
	for _, name := range s.registry.ClassNames() {
		cls, ok := s.registry.LookupClass(name)
		if !ok {
			continue
		}
		if err := s.ExposeClass(cls); err != nil {
			return err
		}
	}
	return nil
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerGlobalTools() {
	classesTool := mcp.NewTool("minion_classes",
		mcp.WithDescription("List registered class names."))
	s.mcpServer.AddTool(classesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{
			StructuredContent: map[string]interface{}{"classes": s.registry.ClassNames()},
		}, nil
	})

	releaseTool := mcp.NewTool("minion_release",
		mcp.WithDescription("Release a constructed instance. Argument: instance_id."))
	s.mcpServer.AddTool(releaseTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		return s.handleRelease(args)
	})
}

func (s *Server) handleNew(ctx context.Context, cls *minion.Class, args map[string]interface{}) (*mcp.CallToolResult, error) {
	ctx, span := s.tracer.Start(ctx, "mcp.instance.new",
		trace.WithAttributes(telemetry.InstanceAttributes(cls.DisplayName(), "")...))
	defer span.End()

	inst, err := cls.New(args)
	if err != nil {
		span.RecordError(err)
		return errorResult(err.Error()), nil
	}

	s.mu.Lock()
	s.sessions[inst.ID()] = &session{inst: inst}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "minion.mcp.instance_constructed",
		slog.String("class", cls.DisplayName()),
		slog.String("instance_id", inst.ID()))

	return &mcp.CallToolResult{
		StructuredContent: map[string]interface{}{
			"instance_id": inst.ID(),
			"class":       cls.DisplayName(),
		},
	}, nil
}

func (s *Server) handleCall(ctx context.Context, cls *minion.Class, args map[string]interface{}) (*mcp.CallToolResult, error) {
	instanceID, _ := args["instance_id"].(string)
	if instanceID == "" {
		return errorResult("instance_id is required"), nil
	}
	selector, _ := args["selector"].(string)
	if selector == "" {
		return errorResult("selector is required"), nil
	}
	var callArgs []any
	if raw, ok := args["args"].([]interface{}); ok {
		callArgs = raw
	}

	s.mu.RLock()
	sess, ok := s.sessions[instanceID]
	s.mu.RUnlock()
	if !ok {
		return errorResult(fmt.Sprintf("no such instance %q", instanceID)), nil
	}
	if sess.inst.Class() != cls {
		return errorResult(fmt.Sprintf("instance %q does not belong to class %q", instanceID, cls.DisplayName())), nil
	}

	_, span := s.tracer.Start(ctx, "mcp.instance.call",
		trace.WithAttributes(telemetry.CallAttributes(cls.DisplayName(), selector, string(minion.SurfacePublic))...))
	defer span.End()

	sess.mu.Lock()
	result, err := sess.inst.Call(selector, callArgs...)
	sess.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		return errorResult(err.Error()), nil
	}

	// Methods may hand back another instance; keep it callable by
	// registering a session for it and returning its id.
	if returned, ok := result.(*minion.Instance); ok {
		s.mu.Lock()
		s.sessions[returned.ID()] = &session{inst: returned}
		s.mu.Unlock()
		return &mcp.CallToolResult{
			StructuredContent: map[string]interface{}{
				"instance_id": returned.ID(),
				"class":       returned.Class().DisplayName(),
			},
		}, nil
	}

	return &mcp.CallToolResult{
		StructuredContent: map[string]interface{}{"result": result},
	}, nil
}

func (s *Server) handleDescribe(cls *minion.Class) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		StructuredContent: map[string]interface{}{
			"class":         cls.DisplayName(),
			"interface":     cls.Interface(),
			"attributes":    cls.AttributeNames(),
			"params":        cls.ParamNames(),
			"semiprivate":   cls.SemiprivateSelectors(),
			"class_methods": cls.ClassSelectors(),
		},
	}, nil
}

func (s *Server) handleRelease(args map[string]interface{}) (*mcp.CallToolResult, error) {
	instanceID, _ := args["instance_id"].(string)
	if instanceID == "" {
		return errorResult("instance_id is required"), nil
	}
	s.mu.Lock()
	_, ok := s.sessions[instanceID]
	delete(s.sessions, instanceID)
	s.mu.Unlock()
	if !ok {
		return errorResult(fmt.Sprintf("no such instance %q", instanceID)), nil
	}
	return textResult("released"), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}
