package engine

import (
	"context"
	"fmt"
	"time"
)

// LaunchConfig is everything needed to spawn and interrogate one server
// process. The orchestrator receives it ready-made; environment
// construction (HOME isolation etc.) happens upstream.
type LaunchConfig struct {
	Command string
	Args    []string
	// Env is the full child environment; nil inherits the parent's.
	Env []string
	// Dir is the child working directory; empty means inherit.
	Dir string
	// CallTimeout bounds each individual transport call.
	CallTimeout time.Duration
	// DiscardStderr drops the child's diagnostics instead of capturing
	// them. Auth/crash classification is unavailable in that mode.
	DiscardStderr bool
}

// CommandLine returns the exact launched command for the report.
func (c LaunchConfig) CommandLine() []string {
	return append([]string{c.Command}, c.Args...)
}

// ToolInfo is a declared tool as reported by the transport.
type ToolInfo struct {
	Name        string
	Description string
}

// PromptInfo is a declared prompt as reported by the transport.
type PromptInfo struct {
	Name        string
	Arguments   []string
	Description string
}

// ServerIdentity is what the server stated at session initialization.
// The capability flags are non-nil here; tri-state nil only appears in
// reports whose initialize never completed.
type ServerIdentity struct {
	Name            string
	ProtocolVersion string
	Capabilities    Capabilities
}

// Session is one live connection to a spawned server. Each listing call is
// individually bounded by the launch config's call timeout and reports
// failures with an explicit CallError kind, so the orchestrator never has
// to sniff wrapped failure shapes.
type Session interface {
	Identity() ServerIdentity
	ListTools(ctx context.Context) ([]ToolInfo, error)
	ListResources(ctx context.Context) ([]string, error)
	ListResourceTemplates(ctx context.Context) ([]string, error)
	ListPrompts(ctx context.Context) ([]PromptInfo, error)
	ReadResource(ctx context.Context, uri string) ([]byte, error)
	// Stderr returns the diagnostics captured so far.
	Stderr() string
	// Close terminates the session and reaps the child process. Idempotent.
	Close() error
}

// Launcher spawns a server process and establishes a session, performing
// the mandatory initialize under the call timeout.
type Launcher interface {
	Launch(ctx context.Context, cfg LaunchConfig) (Session, error)
}

// CallKind is the explicit failure kind of a scoped transport call.
type CallKind string

const (
	// CallTimedOut means the bounded wait for this call expired.
	CallTimedOut CallKind = "timeout"
	// CallCanceled means the surrounding probe was canceled or the stream
	// was torn down mid-call.
	CallCanceled CallKind = "canceled"
	// CallProtocol means the server answered with an error or garbage.
	CallProtocol CallKind = "protocol"
)

// CallError wraps a failed transport call with its operation name and kind.
type CallError struct {
	Op   string
	Kind CallKind
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// TimeoutLike reports whether the failure is a bounded-wait expiration or
// an interruption indistinguishable from one (stream teardown on cancel).
func (e *CallError) TimeoutLike() bool {
	return e.Kind == CallTimedOut || e.Kind == CallCanceled
}

// LaunchError is a failed Launch: it carries whatever diagnostics the child
// wrote before dying, so fatal-path classification can still run.
type LaunchError struct {
	Kind   CallKind
	Stderr string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("initialize: %s: %v", e.Kind, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
