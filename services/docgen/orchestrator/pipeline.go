// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator runs the docgen pipeline end to end: scan, analyze,
// index, plan, retrieve, render, validate, patch, report.
//
// The pipeline only regenerates sections the change set invalidates; the
// rest of the document is carried byte for byte. Rendered text that fails
// grounding is replaced by the deterministic fallback so a run never
// publishes unvalidated prose.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/docgen/services/docgen/analyzers"
	"github.com/AleutianAI/docgen/services/docgen/config"
	"github.com/AleutianAI/docgen/services/docgen/evidence"
	"github.com/AleutianAI/docgen/services/docgen/patch"
	"github.com/AleutianAI/docgen/services/docgen/plan"
	"github.com/AleutianAI/docgen/services/docgen/render"
	"github.com/AleutianAI/docgen/services/docgen/retrieval"
	"github.com/AleutianAI/docgen/services/docgen/scanner"
	"github.com/AleutianAI/docgen/services/docgen/validation"
)

// indexDirName is the evidence store location inside the state dir.
const indexDirName = "index"

// Pipeline wires the docgen stages over one repository.
//
// Thread Safety: A Pipeline is safe for sequential use. Concurrent Update
// calls on the same repository are serialized by runMu; section rendering
// inside a run is parallel.
type Pipeline struct {
	root      string
	cfg       config.Config
	manager   *evidence.Manager
	scanner   *scanner.Scanner
	registry  *analyzers.Registry
	retriever *retrieval.Retriever
	validator *validation.Validator
	planner   *plan.Planner
	patcher   *patch.Patcher
	renderer  render.Renderer
	fallback  *render.FallbackRenderer
	logger    *slog.Logger

	runMu sync.Mutex
}

// New assembles a pipeline for the repository at root.
//
// Inputs:
//
//	root - Absolute repository root.
//	cfg - Loaded configuration.
//	renderer - Primary section renderer. Nil selects the fallback.
//	logger - Structured logger. Nil disables logging.
//
// Outputs:
//
//	*Pipeline - Ready to run. Close releases the evidence store.
//	error - Non-nil if the state dir or evidence store cannot be opened.
func New(root string, cfg config.Config, renderer render.Renderer, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fallback := render.NewFallbackRenderer()
	if renderer == nil {
		renderer = fallback
	}

	stateDir := filepath.Join(root, cfg.StateDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	manager, err := evidence.OpenManaged(filepath.Join(stateDir, indexDirName), evidence.StoreConfig{
		Chunker: cfg.Chunker,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening evidence store: %w", err)
	}

	// The scanner must never index the managed document or docgen's own
	// state; that is the other half of the feedback-loop guard.
	excludes := append([]string{cfg.ReadmePath, cfg.StateDir + "/"}, cfg.Excludes...)

	return &Pipeline{
		root:      root,
		cfg:       cfg,
		manager:   manager,
		scanner:   scanner.New(excludes...),
		registry:  analyzers.Default(logger),
		retriever: retrieval.NewRetriever(cfg.Retriever.TopK),
		validator: validation.New(cfg.Validator),
		planner:   plan.NewPlanner(cfg.Rules, cfg.PlannerExcludes()),
		patcher:   patch.NewPatcher(cfg.Sections),
		renderer:  renderer,
		fallback:  fallback,
		logger:    logger,
	}, nil
}

// Close releases the evidence store.
func (p *Pipeline) Close() error {
	return p.manager.Close()
}

// StateDir returns the absolute docgen state directory.
func (p *Pipeline) StateDir() string {
	return filepath.Join(p.root, p.cfg.StateDir)
}

// Scanner exposes the pipeline's scanner so watchers share its
// exclude rules.
func (p *Pipeline) Scanner() *scanner.Scanner {
	return p.scanner
}

// IndexSummary describes one indexing pass.
type IndexSummary struct {
	// Files is how many files the scan produced.
	Files int `json:"files"`

	// Facts is how many facts the analyzers emitted.
	Facts int `json:"facts"`

	// Rebuilt reports whether the store was rebuilt from scratch.
	Rebuilt bool `json:"rebuilt"`
}

// Index refreshes the evidence store from the repository.
//
// Description:
//
//	Scans the repo, runs the analyzers, and synchronizes the store:
//	unchanged files are skipped by content hash, changed files are
//	re-chunked, vanished files are invalidated. When force is true, or
//	the store was found corrupted or schema-stale at open, the store is
//	rebuilt from scratch behind an atomic generation swap.
//
// Inputs:
//
//	ctx - Cancels the pass between files.
//	force - Rebuild from scratch regardless of store health.
//
// Outputs:
//
//	*IndexSummary - Counts for logging and the CLI.
//	error - Non-nil on scan failure or store IO errors.
func (p *Pipeline) Index(ctx context.Context, force bool) (*IndexSummary, error) {
	manifest, err := p.scanner.Scan(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}
	facts := p.registry.Run(ctx, manifest)

	rebuilt, err := p.syncStore(ctx, manifest, facts, force)
	if err != nil {
		return nil, err
	}
	return &IndexSummary{
		Files:   len(manifest.Files),
		Facts:   len(facts),
		Rebuilt: rebuilt,
	}, nil
}

// Update runs one full pipeline pass.
//
// Description:
//
//	Refreshes the evidence store, plans which sections the change set
//	invalidates, renders and validates those sections in parallel, and
//	patches only their marker blocks into the managed document. Rendered
//	text that fails grounding is replaced by the deterministic fallback
//	and the rejection is recorded in the run report. A missing document,
//	or a store rebuild, escalates to a full regeneration of every
//	configured section.
//
//	Applying the same change set twice yields a byte-identical document:
//	rendering is deterministic given unchanged evidence, and the patcher
//	preserves unplanned blocks verbatim.
//
// Inputs:
//
//	ctx - Cancels rendering; the report of a cancelled run is not saved.
//	changed - Repo-relative changed paths. Nil or empty plans only the
//	          anchor section (unless the run escalates to full).
//
// Outputs:
//
//	*RunReport - Per-section outcomes; also persisted to the state dir.
//	error - Non-nil on scan, store, patch, or document IO failure.
//	        Validation rejections are not errors.
func (p *Pipeline) Update(ctx context.Context, changed map[string]struct{}) (*RunReport, error) {
	return p.update(ctx, changed, false)
}

// UpdateAll regenerates every configured section regardless of changes.
func (p *Pipeline) UpdateAll(ctx context.Context) (*RunReport, error) {
	return p.update(ctx, nil, true)
}

func (p *Pipeline) update(ctx context.Context, changed map[string]struct{}, forceFull bool) (*RunReport, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	started := time.Now().UTC()

	manifest, err := p.scanner.Scan(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}
	facts := p.registry.Run(ctx, manifest)
	rebuilt, err := p.syncStore(ctx, manifest, facts, false)
	if err != nil {
		return nil, err
	}

	document, bootstrap, err := p.readDocument()
	if err != nil {
		return nil, err
	}

	up := p.planRun(changed, bootstrap || forceFull, rebuilt)
	p.logger.Info("update planned",
		"strategy", up.Strategy,
		"sections", up.Sections,
		"changed", len(changed))

	snapshot, err := p.manager.Store().Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshotting evidence: %w", err)
	}

	updates := make(map[string]string, len(up.Sections))
	sections := make(map[string]SectionReport, len(up.Sections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, sectionKey := range up.Sections {
		sectionKey := sectionKey
		g.Go(func() error {
			text, report := p.renderSection(gctx, sectionKey, snapshot)
			report.Reason = up.Reasons[sectionKey]
			mu.Lock()
			updates[sectionKey] = text
			sections[sectionKey] = report
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	patched, err := p.patcher.Apply(document, updates)
	if err != nil {
		return nil, fmt.Errorf("patching document: %w", err)
	}
	documentChanged := patched != document
	if documentChanged {
		if err := p.writeDocument(patched); err != nil {
			return nil, err
		}
	}

	report := &RunReport{
		StartedAt:       started,
		FinishedAt:      time.Now().UTC(),
		Strategy:        up.Strategy,
		ChangedPaths:    sortedPaths(changed),
		Sections:        sections,
		DocumentChanged: documentChanged,
		IndexRebuilt:    rebuilt,
	}
	if err := saveReport(p.StateDir(), report); err != nil {
		p.logger.Error("persisting run report failed", "error", err)
	}
	recordRun(ctx, string(up.Strategy), report.FallbackCount())
	p.logger.Info("update finished",
		"sections", len(sections),
		"fallbacks", report.FallbackCount(),
		"document_changed", documentChanged)
	return report, nil
}

// planRun decides the run's plan, escalating to full regeneration when the
// document does not exist yet, a full run was requested, or the evidence
// store was rebuilt.
func (p *Pipeline) planRun(changed map[string]struct{}, full, rebuilt bool) *plan.UpdatePlan {
	if full || rebuilt {
		reason := "full regeneration"
		if !full {
			reason = "evidence store rebuilt"
		}
		up := &plan.UpdatePlan{
			Strategy: plan.StrategyFull,
			Sections: append([]string(nil), p.cfg.Sections...),
			Reasons:  make(map[string]string, len(p.cfg.Sections)),
		}
		for _, key := range p.cfg.Sections {
			up.Reasons[key] = reason
		}
		return up
	}
	return p.planner.Plan(changed)
}

// renderSection renders, validates, and if necessary falls back for one
// section. It never returns unvalidated text.
func (p *Pipeline) renderSection(ctx context.Context, sectionKey string, snapshot *evidence.Snapshot) (string, SectionReport) {
	ev := p.buildSectionEvidence(snapshot, sectionKey)

	text, renderErr := p.renderer.RenderSection(ctx, sectionKey, ev)
	if renderErr == nil {
		result := p.validator.Validate(sectionKey, text, ev)
		if result.Accepted {
			return text, SectionReport{
				Accepted: true,
				Tier:     result.Tier,
			}
		}
		p.logger.Warn("section rejected by validator",
			"section", sectionKey,
			"issues", len(result.Issues))
		return p.fallbackSection(ctx, sectionKey, ev, SectionReport{
			FellBack: true,
			Issues:   result.Issues,
		})
	}

	p.logger.Warn("renderer failed, using fallback",
		"section", sectionKey, "error", renderErr)
	return p.fallbackSection(ctx, sectionKey, ev, SectionReport{
		FellBack:    true,
		RenderError: renderErr.Error(),
	})
}

// fallbackSection substitutes the deterministic stub and records its
// validation outcome on top of the partially filled report.
func (p *Pipeline) fallbackSection(ctx context.Context, sectionKey string, ev *evidence.SectionEvidence, report SectionReport) (string, SectionReport) {
	text, err := p.fallback.RenderSection(ctx, sectionKey, ev)
	if err != nil {
		// Only context cancellation reaches here; emit an empty body so
		// the patcher leaves the section's previous content length zero
		// rather than aborting the whole run.
		report.RenderError = err.Error()
		return "", report
	}
	result := p.validator.Validate(sectionKey, text, ev)
	report.Accepted = result.Accepted
	report.Tier = result.Tier
	recordFallback(ctx, sectionKey)
	return text, report
}

// buildSectionEvidence assembles grounding material for one section from a
// store snapshot: all facts as observed tokens, retrieved chunks as
// inferred tokens.
func (p *Pipeline) buildSectionEvidence(snapshot *evidence.Snapshot, sectionKey string) *evidence.SectionEvidence {
	ev := &evidence.SectionEvidence{
		SectionKey:     sectionKey,
		ObservedTokens: make(map[string]struct{}),
		InferredTokens: make(map[string]struct{}),
		Facts:          snapshot.Facts,
	}
	for _, fact := range snapshot.Facts {
		addTokens(ev.ObservedTokens, evidence.KindLabel(fact.Kind))
		addTokens(ev.ObservedTokens, fact.Name)
		for _, value := range fact.Attributes {
			addTokens(ev.ObservedTokens, value)
		}
	}

	query := append(strings.Fields(strings.ToLower(render.Title(sectionKey))), sectionKey)
	ev.Chunks = p.retriever.Retrieve(snapshot, sectionKey, query)
	for _, chunk := range ev.Chunks {
		for token := range evidence.Tokenize(chunk.Text) {
			if _, observed := ev.ObservedTokens[token]; observed {
				continue
			}
			ev.InferredTokens[token] = struct{}{}
		}
	}
	return ev
}

func addTokens(set map[string]struct{}, text string) {
	for token := range evidence.Tokenize(text) {
		set[token] = struct{}{}
	}
}

// syncStore brings the evidence store in line with the manifest. Returns
// whether a from-scratch rebuild happened.
func (p *Pipeline) syncStore(ctx context.Context, manifest *scanner.Manifest, facts []evidence.Fact, force bool) (bool, error) {
	if force || p.manager.Store().RebuildNeeded() {
		err := p.manager.Rebuild(ctx, func(ctx context.Context, store *evidence.Store) error {
			return p.populateStore(ctx, store, manifest, facts)
		})
		if err != nil {
			return false, fmt.Errorf("rebuilding evidence store: %w", err)
		}
		return true, nil
	}
	if err := p.populateStore(ctx, p.manager.Store(), manifest, facts); err != nil {
		return false, err
	}
	return false, nil
}

// populateStore ingests the manifest into a store and prunes entries for
// files that no longer exist. Unchanged files are hash-skipped by Ingest.
func (p *Pipeline) populateStore(ctx context.Context, store *evidence.Store, manifest *scanner.Manifest, facts []evidence.Fact) error {
	if err := store.ReplaceFacts(ctx, facts); err != nil {
		return fmt.Errorf("replacing facts: %w", err)
	}

	present := make(map[string]struct{}, len(manifest.Files))
	for _, file := range manifest.Files {
		if !indexable(file) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.root, filepath.FromSlash(file.Path)))
		if err != nil {
			p.logger.Warn("skipping unreadable file", "path", file.Path, "error", err)
			continue
		}
		if !utf8.Valid(data) {
			continue
		}
		present[file.Path] = struct{}{}
		tags := p.sectionTagsFor(file)
		if _, err := store.Ingest(ctx, file.Path, string(data), file.Hash, tags); err != nil {
			return fmt.Errorf("ingesting %s: %w", file.Path, err)
		}
	}

	stored, err := store.Paths()
	if err != nil {
		return fmt.Errorf("listing stored paths: %w", err)
	}
	for _, path := range stored {
		if _, ok := present[path]; ok {
			continue
		}
		if err := store.Invalidate(ctx, path); err != nil {
			return fmt.Errorf("invalidating %s: %w", path, err)
		}
	}
	return nil
}

// indexable reports whether a file's text is worth chunking as evidence.
// Binary-ish and unclassified files contribute nothing retrievable.
func indexable(file scanner.FileMeta) bool {
	return file.Language != "" || file.Role != scanner.RoleOther
}

// sectionTagsFor assigns the sections a file's chunks may ground: every
// section whose invalidation rule matches the path, plus the anchor
// section for documentation files. Files nothing claims fall to the
// anchor so no evidence is unreachable.
func (p *Pipeline) sectionTagsFor(file scanner.FileMeta) []string {
	var tags []string
	for _, rule := range p.cfg.Rules {
		for _, pattern := range rule.Patterns {
			if plan.MatchPattern(pattern, file.Path) {
				tags = append(tags, rule.SectionKey)
				break
			}
		}
	}
	if file.Role == scanner.RoleDocs && !containsKey(tags, plan.AnchorSection) {
		tags = append(tags, plan.AnchorSection)
	}
	if len(tags) == 0 {
		tags = []string{plan.AnchorSection}
	}
	return tags
}

func containsKey(keys []string, want string) bool {
	for _, key := range keys {
		if key == want {
			return true
		}
	}
	return false
}

// readDocument loads the managed document. A missing file means bootstrap.
func (p *Pipeline) readDocument() (text string, bootstrap bool, err error) {
	path := filepath.Join(p.root, filepath.FromSlash(p.cfg.ReadmePath))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", p.cfg.ReadmePath, err)
	}
	return string(data), false, nil
}

// writeDocument atomically replaces the managed document.
func (p *Pipeline) writeDocument(text string) error {
	path := filepath.Join(p.root, filepath.FromSlash(p.cfg.ReadmePath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating document dir: %w", err)
	}
	tmp := path + ".docgen.tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p.cfg.ReadmePath, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", p.cfg.ReadmePath, err)
	}
	return nil
}

func sortedPaths(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	paths := make([]string, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
