// Package mcpclient spawns an MCP server process over stdio and exposes
// the scoped, individually-bounded introspection calls the probe engine
// consumes. Every failure carries an explicit kind (timeout, canceled,
// protocol) so callers never have to unwrap transport error shapes.
package mcpclient

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jordanstarrk/mcp-preflight/internal/engine"
)

const (
	clientName    = "mcp-preflight"
	clientVersion = "1.0.0"

	// reapDelay bounds how long Close waits for a child that ignores the
	// kill before giving up on Wait.
	reapDelay = 5 * time.Second
)

// Launcher spawns server processes. The zero value is usable.
type Launcher struct {
	Logger *slog.Logger
}

var _ engine.Launcher = (*Launcher)(nil)

// Launch starts the configured command, wires its stderr into a bounded
// capture buffer, and performs the MCP initialize handshake under the
// per-call timeout. On failure the child is reaped and the captured
// diagnostics are returned inside an *engine.LaunchError.
func (l *Launcher) Launch(ctx context.Context, cfg engine.LaunchConfig) (engine.Session, error) {
	procCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	cmd := exec.CommandContext(procCtx, cfg.Command, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Dir = cfg.Dir
	// The server may spawn children of its own; a process group kill on
	// cancel keeps the "no leaked child" guarantee.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil
	}
	cmd.WaitDelay = reapDelay

	var stderr *tailBuffer
	if !cfg.DiscardStderr {
		stderr = newTailBuffer(stderrCap)
		cmd.Stderr = stderr
	}

	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)

	initCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
	defer cancel()

	sess, err := client.Connect(initCtx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		stop()
		return nil, &engine.LaunchError{
			Kind:   classifyKind(initCtx, ctx, err),
			Stderr: bufferText(stderr),
			Err:    err,
		}
	}

	ps := &probeSession{
		sess:    sess,
		stderr:  stderr,
		stop:    stop,
		timeout: cfg.CallTimeout,
	}
	ps.identity = buildIdentity(sess.InitializeResult())

	if l.Logger != nil {
		l.Logger.Debug("server initialized",
			slog.String("name", ps.identity.Name),
			slog.String("protocol", ps.identity.ProtocolVersion))
	}
	return ps, nil
}

// probeSession is one live stdio session against a spawned server.
type probeSession struct {
	sess      *mcp.ClientSession
	stderr    *tailBuffer
	stop      context.CancelFunc
	timeout   time.Duration
	identity  engine.ServerIdentity
	closeOnce sync.Once
	closeErr  error
}

var _ engine.Session = (*probeSession)(nil)

func (p *probeSession) Identity() engine.ServerIdentity { return p.identity }

func (p *probeSession) ListTools(ctx context.Context) ([]engine.ToolInfo, error) {
	res, err := scoped(ctx, p, "list_tools", func(callCtx context.Context) (*mcp.ListToolsResult, error) {
		return p.sess.ListTools(callCtx, nil)
	})
	if err != nil {
		return nil, err
	}
	tools := make([]engine.ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, engine.ToolInfo{Name: t.Name, Description: t.Description})
	}
	return tools, nil
}

func (p *probeSession) ListResources(ctx context.Context) ([]string, error) {
	res, err := scoped(ctx, p, "list_resources", func(callCtx context.Context) (*mcp.ListResourcesResult, error) {
		return p.sess.ListResources(callCtx, nil)
	})
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(res.Resources))
	for _, r := range res.Resources {
		uris = append(uris, r.URI)
	}
	return uris, nil
}

func (p *probeSession) ListResourceTemplates(ctx context.Context) ([]string, error) {
	res, err := scoped(ctx, p, "list_resource_templates", func(callCtx context.Context) (*mcp.ListResourceTemplatesResult, error) {
		return p.sess.ListResourceTemplates(callCtx, nil)
	})
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(res.ResourceTemplates))
	for _, t := range res.ResourceTemplates {
		uris = append(uris, t.URITemplate)
	}
	return uris, nil
}

func (p *probeSession) ListPrompts(ctx context.Context) ([]engine.PromptInfo, error) {
	res, err := scoped(ctx, p, "list_prompts", func(callCtx context.Context) (*mcp.ListPromptsResult, error) {
		return p.sess.ListPrompts(callCtx, nil)
	})
	if err != nil {
		return nil, err
	}
	prompts := make([]engine.PromptInfo, 0, len(res.Prompts))
	for _, pr := range res.Prompts {
		info := engine.PromptInfo{Name: pr.Name, Description: pr.Description}
		for _, a := range pr.Arguments {
			info.Arguments = append(info.Arguments, a.Name)
		}
		prompts = append(prompts, info)
	}
	return prompts, nil
}

func (p *probeSession) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	res, err := scoped(ctx, p, "read_resource", func(callCtx context.Context) (*mcp.ReadResourceResult, error) {
		return p.sess.ReadResource(callCtx, &mcp.ReadResourceParams{URI: uri})
	})
	if err != nil {
		return nil, err
	}
	for _, c := range res.Contents {
		if c.Text != "" {
			return []byte(c.Text), nil
		}
		if len(c.Blob) > 0 {
			return c.Blob, nil
		}
	}
	return nil, nil
}

func (p *probeSession) Stderr() string {
	return strings.TrimSpace(bufferText(p.stderr))
}

// Close tears the session down and guarantees the child process group is
// reaped, whatever state the session is in.
func (p *probeSession) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.sess.Close()
		p.stop()
	})
	return p.closeErr
}

// scoped runs one transport call under the session's per-call timeout and
// maps the outcome to an explicit engine.CallError kind. The timeout
// policy cancels the call's context on expiry, so a stuck server cannot
// hold the probe hostage.
func scoped[T any](ctx context.Context, p *probeSession, op string, fn func(context.Context) (T, error)) (T, error) {
	policy := timeout.New[T](p.timeout)
	res, err := failsafe.With[T](policy).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[T]) (T, error) {
			return fn(exec.Context())
		})
	if err != nil {
		var zero T
		kind := engine.CallProtocol
		switch {
		case errors.Is(err, timeout.ErrExceeded):
			kind = engine.CallTimedOut
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			kind = engine.CallCanceled
		}
		return zero, &engine.CallError{Op: op, Kind: kind, Err: err}
	}
	return res, nil
}

// classifyKind maps an initialize failure to its explicit kind.
func classifyKind(initCtx, parentCtx context.Context, err error) engine.CallKind {
	switch {
	case errors.Is(initCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return engine.CallTimedOut
	case parentCtx.Err() != nil || errors.Is(err, context.Canceled):
		return engine.CallCanceled
	default:
		return engine.CallProtocol
	}
}

func buildIdentity(init *mcp.InitializeResult) engine.ServerIdentity {
	id := engine.ServerIdentity{Name: "unknown", ProtocolVersion: "unknown"}
	declared := func(present bool) *bool { return &present }
	id.Capabilities = engine.Capabilities{
		Tools:     declared(false),
		Resources: declared(false),
		Prompts:   declared(false),
	}
	if init == nil {
		return id
	}
	if init.ServerInfo != nil && init.ServerInfo.Name != "" {
		id.Name = init.ServerInfo.Name
	}
	if init.ProtocolVersion != "" {
		id.ProtocolVersion = init.ProtocolVersion
	}
	if caps := init.Capabilities; caps != nil {
		id.Capabilities = engine.Capabilities{
			Tools:     declared(caps.Tools != nil),
			Resources: declared(caps.Resources != nil),
			Prompts:   declared(caps.Prompts != nil),
		}
	}
	return id
}

func bufferText(b *tailBuffer) string {
	if b == nil {
		return ""
	}
	return b.String()
}
