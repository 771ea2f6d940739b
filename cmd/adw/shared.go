package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"kotadb/internal/adw"
	"kotadb/internal/extractor"
	"kotadb/internal/indexer"
	"kotadb/internal/kerrors"
	"kotadb/internal/query"
	"kotadb/internal/store"
	syncpkg "kotadb/internal/sync"
	"kotadb/internal/tools"
)

// adwDeps bundles everything a run/resume/batch command needs: the store
// backing checkpoints/manifest/curator memory lookups, a full-toolset
// registry for the curator's code-intelligence tool calls, and the
// owner/repo GitHub slug PRs are opened against.
type adwDeps struct {
	st    *store.Store
	reg   *tools.Registry
	owner string
	name  string
}

func openADWDeps() (*adwDeps, error) {
	owner, name, err := splitRepoSlug(repoSlug)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Store.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	idx := indexer.New(st, extractor.NewFactory())
	q := query.New(st)
	sv := syncpkg.New(st)
	tools.SetDomainGlobs(cfg.Query.DomainRules)

	reg := tools.NewRegistry()
	if err := tools.RegisterCore(reg, st, idx, q, sv); err != nil {
		st.Close()
		return nil, fmt.Errorf("register core tools: %w", err)
	}
	if err := tools.RegisterSearch(reg, st, q); err != nil {
		st.Close()
		return nil, fmt.Errorf("register search tool: %w", err)
	}
	if err := adw.RegisterExpertiseTools(reg, st); err != nil {
		st.Close()
		return nil, fmt.Errorf("register expertise tools: %w", err)
	}

	if _, err := st.UpsertRepository(repoSlug, repoSlug); err != nil {
		st.Close()
		return nil, fmt.Errorf("upsert repository %s: %w", repoSlug, err)
	}

	return &adwDeps{st: st, reg: reg, owner: owner, name: name}, nil
}

func (d *adwDeps) Close() {
	d.st.Close()
}

func splitRepoSlug(slug string) (owner, name string, err error) {
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: --repo must be \"owner/repo\", got %q", kerrors.ErrInvalidParams, slug)
	}
	return parts[0], parts[1], nil
}

// newOrchestrator wires one Orchestrator from the loaded config and deps,
// rooted at the given worktree root (the workspace).
func newOrchestrator(d *adwDeps) (*adw.Orchestrator, error) {
	checkpointDir := filepath.Join(workspace, "automation", ".data", "checkpoints")
	checkpoints, err := adw.NewCheckpointStore(checkpointDir)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	worktrees := adw.NewWorktreeManager(workspace, cfg.ADW.BaseBranch)

	agent := adw.NewCLIAgent(cfg.ADW.AgentBinary, workspace)
	curator := adw.NewCurator(agent, d.st, d.reg)
	ghClient := adw.NewGitHubClient(cfg.ADW.GithubToken)

	backoff := kerrors.BackoffParams{Base: cfg.GetRetryBackoffBase(), Max: cfg.GetRetryBackoffMax()}

	prFactory := func(wt *adw.Worktree, issue adw.Issue) *adw.PRModule {
		return adw.NewPRModule(wt.Path, d.owner, d.name, cfg.ADW.BaseBranch, ghClient, backoff)
	}

	orch := adw.NewOrchestrator(agent, curator, checkpoints, worktrees, prFactory, backoff, 3)
	return orch, nil
}
