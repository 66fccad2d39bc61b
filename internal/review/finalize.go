// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// Finalized is what Finalize wrote: a record for an accepted document or a
// pending packet for an escalated one.
type Finalized struct {
	Record *types.GroundTruthRecord
	Packet *types.EscalationPacket
}

// Finalizer routes terminal outcomes to the store and applies reviews.
type Finalizer struct {
	store  *Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewFinalizer creates a Finalizer backed by store.
func NewFinalizer(store *Store, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finalizer{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.With("component", "review"),
	}
}

// Finalize persists o: an auto-accept becomes a ground-truth record and an
// escalation becomes a pending packet.
func (f *Finalizer) Finalize(ctx context.Context, o Outcome) (Finalized, error) {
	now := f.now().UTC()

	switch o.Decision.Disposition {
	case types.AutoAccept:
		rec, err := AcceptRecord(o, now)
		if err != nil {
			return Finalized{}, err
		}
		if err := f.keepCreatedAt(ctx, rec); err != nil {
			return Finalized{}, err
		}
		if err := f.store.SaveRecord(ctx, rec); err != nil {
			return Finalized{}, err
		}
		f.logger.InfoContext(ctx, "ground truth recorded", "doc_id", rec.DocumentID, "provenance", rec.Provenance)
		return Finalized{Record: rec}, nil

	case types.EscalateToSME:
		p, err := BuildPacket(o, now)
		if err != nil {
			return Finalized{}, err
		}
		if err := f.store.SavePacket(ctx, p); err != nil {
			return Finalized{}, err
		}
		f.logger.InfoContext(ctx, "escalation packet created", "doc_id", p.DocumentID, "issues", p.TotalIssues)
		return Finalized{Packet: p}, nil
	}
	return Finalized{}, fmt.Errorf("cannot finalize non-terminal decision %q", o.Decision.Disposition)
}

// Submit applies a reviewer's decision to the pending packet for
// sub.DocumentID and records the resulting ground truth.
func (f *Finalizer) Submit(ctx context.Context, sub types.ReviewSubmission) (*types.GroundTruthRecord, error) {
	p, err := f.store.Packet(ctx, sub.DocumentID)
	if err != nil {
		return nil, err
	}
	rec, err := ApplyReview(p, sub, f.newID(), f.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := f.keepCreatedAt(ctx, rec); err != nil {
		return nil, err
	}
	if err := f.store.CompleteReview(ctx, p, rec); err != nil {
		return nil, err
	}
	f.logger.InfoContext(ctx, "review recorded",
		"doc_id", rec.DocumentID,
		"reviewer", sub.Reviewer,
		"provenance", rec.Provenance,
	)
	return rec, nil
}

// keepCreatedAt turns rec into an amendment when a record already exists.
func (f *Finalizer) keepCreatedAt(ctx context.Context, rec *types.GroundTruthRecord) error {
	prev, err := f.store.Record(ctx, rec.DocumentID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	updated := rec.CreatedAt
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = &updated
	return nil
}
