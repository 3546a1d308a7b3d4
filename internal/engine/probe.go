package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ProbeOptions tune a single probe run.
type ProbeOptions struct {
	// IncludeSignals enables the content heuristics (on by default from
	// the CLI, disabled by --no-signals).
	IncludeSignals bool
	Logger         *slog.Logger
}

// ProbeOutcome bundles the report with the raw captured diagnostics (the
// CLI decides whether to surface them) and the fatal error, if any.
// Report is always non-nil: even a fatal probe emits a best-effort report
// so downstream tooling has something to save and diff.
type ProbeOutcome struct {
	Report *Report
	Stderr string
	Fatal  error
}

// Probe runs one end-to-end inspection: launch, initialize, enumerate
// whatever the server declares, classify, scan, expand, finalize. Stages
// run strictly in sequence; each transport call carries its own bounded
// wait. Expected failure modes (timeouts, erroring optional stages, auth
// gating) become statuses, never panics or lost reports.
func Probe(ctx context.Context, launcher Launcher, cfg LaunchConfig, opts ProbeOptions) ProbeOutcome {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rep := NewReport(cfg.CommandLine())

	sess, err := launcher.Launch(ctx, cfg)
	if err != nil {
		logger.Debug("initialize failed", slog.Any("error", err))
		return fatalOutcome(rep, cfg, err)
	}
	defer sess.Close()

	identity := sess.Identity()
	rep.Server = ServerInfo{Name: identity.Name, ProtocolVersion: identity.ProtocolVersion}
	rep.Capabilities = identity.Capabilities

	// Tools are enumerated unconditionally: plenty of servers omit the
	// capability declaration yet still serve tools. Failure here is an
	// Error (tools are the mandatory surface) but the probe continues
	// with an empty tool set.
	rawTools, err := sess.ListTools(ctx)
	if err != nil {
		rep.Status = Escalate(rep.Status, StatusPartial)
		rep.Errors = append(rep.Errors, callRecord("list_tools", cfg, err))
		logger.Debug("list_tools failed", slog.Any("error", err))
	}
	for _, t := range rawTools {
		desc := t.Description
		if desc == "" {
			desc = "(no description)"
		}
		rep.Tools = append(rep.Tools, Tool{
			Name:        t.Name,
			Description: normalizeText(desc),
			Risk:        ClassifyTool(t.Name, desc),
		})
	}
	rep.Risk = CountRisks(rep.Tools)

	// Resources and templates are attempted only when declared; an
	// undeclared capability is silently skipped, not a failure. Failures
	// on declared-optional stages are Notes, softer than tool errors.
	if boolVal(rep.Capabilities.Resources) {
		uris, err := sess.ListResources(ctx)
		if err != nil {
			rep.Status = Escalate(rep.Status, StatusPartial)
			rep.Notes = append(rep.Notes, callRecord("list_resources", cfg, err))
		}
		rep.Resources = append(rep.Resources, uris...)

		templates, err := sess.ListResourceTemplates(ctx)
		if err != nil {
			rep.Status = Escalate(rep.Status, StatusPartial)
			rep.Notes = append(rep.Notes, callRecord("list_resource_templates", cfg, err))
		}
		rep.ResourceTemplates = append(rep.ResourceTemplates, templates...)
	}

	if boolVal(rep.Capabilities.Prompts) {
		prompts, err := sess.ListPrompts(ctx)
		if err != nil {
			rep.Status = Escalate(rep.Status, StatusPartial)
			rep.Notes = append(rep.Notes, callRecord("list_prompts", cfg, err))
		}
		for _, p := range prompts {
			args := p.Arguments
			if args == nil {
				args = []string{}
			}
			rep.Prompts = append(rep.Prompts, Prompt{
				Name:        p.Name,
				Arguments:   args,
				Description: normalizeText(p.Description),
			})
		}
	}

	fetchManifest(ctx, sess, cfg, rep, logger)

	if opts.IncludeSignals {
		rep.sortLists()
		rep.Signals = CollectSignals(rep.Tools, rep.Resources, rep.ResourceTemplates, rep.Prompts)
	}

	serverErr := sess.Stderr()
	stderrNotes, flags := ClassifyStderr(serverErr)
	rep.Notes = append(rep.Notes, stderrNotes...)

	// A server that initialized fine but enumerated nothing while hinting
	// at missing credentials is auth-gated, not merely empty.
	if flags.HasAuthHint && rep.Empty() {
		rep.Status = Escalate(rep.Status, StatusAuthGated)
	}

	rep.sortLists()
	return ProbeOutcome{Report: rep, Stderr: serverErr}
}

// fetchManifest reads and expands the optional capability manifest when a
// resource advertises one. Malformed or unreadable manifests are treated
// as absence; a read failure leaves a note but never degrades status.
func fetchManifest(ctx context.Context, sess Session, cfg LaunchConfig, rep *Report, logger *slog.Logger) {
	// Scan in sorted order so multi-manifest servers read the same URI on
	// every run, regardless of transport arrival order.
	uris := append([]string(nil), rep.Resources...)
	sort.Strings(uris)
	uri := ""
	for _, u := range uris {
		if IsManifestURI(u) {
			uri = u
			break
		}
	}
	if uri == "" {
		return
	}

	raw, err := sess.ReadResource(ctx, uri)
	if err != nil {
		rep.Notes = append(rep.Notes, callRecord("read_resource", cfg, err))
		logger.Debug("manifest read failed", slog.String("uri", uri), slog.Any("error", err))
		return
	}
	doc, ok := ParseManifest(raw)
	if !ok {
		logger.Debug("manifest malformed, ignoring", slog.String("uri", uri))
		return
	}
	rep.Manifest = ExpandManifest(doc)
}

// fatalOutcome builds the best-effort report for a probe that never got
// past initialize. Classification priority: auth hint > stack trace >
// timeout > generic error. A stack trace overrides a timeout-shaped I/O
// failure, since a crashed child tears its streams down the same way a
// cancellation does.
func fatalOutcome(rep *Report, cfg LaunchConfig, launchErr error) ProbeOutcome {
	serverErr := ""
	kind := CallProtocol
	var le *LaunchError
	if errors.As(launchErr, &le) {
		serverErr = le.Stderr
		kind = le.Kind
	}

	notes, flags := ClassifyStderr(serverErr)
	rep.Notes = notes

	isTimeout := kind == CallTimedOut || kind == CallCanceled
	if flags.HasStacktrace {
		isTimeout = false
	}

	switch {
	case flags.HasAuthHint:
		rep.Status = StatusAuthRequired
	case isTimeout:
		rep.Status = StatusTimeout
	default:
		rep.Status = StatusStartupError
	}

	rule := "error"
	var snippet string
	switch {
	case isTimeout:
		rule = "timeout"
		snippet = fmt.Sprintf("Timed out after %s", cfg.CallTimeout)
	case stackSnippet(notes) != "":
		// Prefer the server's own stack trace over transport wrapper noise.
		snippet = stackSnippet(notes)
	default:
		snippet = normalizeText(launchErr.Error())
	}
	rep.Errors = append(rep.Errors, Record{Kind: "mcp", Name: "initialize", Rule: rule, Snippet: snippet})

	rep.sortLists()
	return ProbeOutcome{Report: rep, Stderr: serverErr, Fatal: launchErr}
}

// callRecord turns a failed transport call into a report record, mapping
// the explicit error kind onto the timeout/error rule split.
func callRecord(op string, cfg LaunchConfig, err error) Record {
	var ce *CallError
	if errors.As(err, &ce) && ce.Kind == CallTimedOut {
		return Record{
			Kind:    "mcp",
			Name:    op,
			Rule:    "timeout",
			Snippet: fmt.Sprintf("Timed out after %s", cfg.CallTimeout),
		}
	}
	return Record{Kind: "mcp", Name: op, Rule: "error", Snippet: normalizeText(err.Error())}
}

func stackSnippet(notes []Record) string {
	for _, n := range notes {
		if n.Rule == "startup_stacktrace" {
			return n.Snippet
		}
	}
	return ""
}

func boolVal(b *bool) bool { return b != nil && *b }
