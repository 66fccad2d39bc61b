// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pdiddy/groundtruth/internal/autofix"
	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/internal/orchestrate"
	"github.com/pdiddy/groundtruth/internal/review"
	"github.com/pdiddy/groundtruth/internal/verify"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// pipeline is the composed verification stack: the network-backed oracle is
// created here and nowhere else.
type pipeline struct {
	orchestrator *orchestrate.Orchestrator
	finalizer    *review.Finalizer
	store        *review.Store
}

func newPipeline(cfg types.PipelineConfig, logger *slog.Logger) (*pipeline, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not found: set .secrets/anthropic-api-key or ANTHROPIC_API_KEY")
	}

	backend := &oracle.ClaudeBackend{
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Client:      &http.Client{},
	}
	o := oracle.WithRetry(backend, oracle.RetryPolicy{
		MaxRetries: cfg.AI.MaxRetries,
		Timeout:    cfg.AI.Timeout,
	}, logger)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		orchestrator: orchestrate.New(verify.NewRunner(o, cfg.Verify, logger), autofix.New(logger), cfg.Verify, logger),
		finalizer:    review.NewFinalizer(store, logger),
		store:        store,
	}, nil
}

func openStore(cfg types.PipelineConfig) (*review.Store, error) {
	store, err := review.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening ground-truth store %s: %w", cfg.Store.Path, err)
	}
	return store, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// finalize persists a finished run and prints a one-line summary to w.
func (p *pipeline) finalize(ctx context.Context, w io.Writer, job orchestrate.Job, res *orchestrate.Result, ref *types.ReferenceClassification) error {
	fin, err := p.finalizer.Finalize(ctx, review.Outcome{
		Bundle:    job.Bundle,
		Proposed:  job.Classification,
		Final:     res.Classification,
		Report:    res.Report,
		Decision:  res.Decision,
		Reference: ref,
	})
	if err != nil {
		return fmt.Errorf("finalizing %s: %w", job.Bundle.DocumentID, err)
	}

	switch {
	case fin.Record != nil:
		fmt.Fprintf(w, "accepted  %s (attempts: %d, issues: %d)\n",
			job.Bundle.DocumentID, res.Attempts, len(res.Report.Issues))
	case fin.Packet != nil:
		fmt.Fprintf(w, "escalated %s (attempts: %d, issues: %d): %s\n",
			job.Bundle.DocumentID, res.Attempts, fin.Packet.TotalIssues, res.Decision.Reason)
	}
	return nil
}
