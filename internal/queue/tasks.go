// Package queue defines the asynq task types TalentFlow hands to the worker
// and the enqueue side of each.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TalentFlow/internal/automation"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

const (
	// IngestCandidateTask runs the ingestion pipeline for an uploaded CV.
	IngestCandidateTask = "candidate:ingest"
	// StageChangedTask carries a committed stage transition to automation.
	StageChangedTask = "automation:stage_changed"
	// OfferNotifyTask sends the offer email / PDF export for an offer change.
	OfferNotifyTask = "offer:notify"
)

// IngestPayload points the worker at a stored CV.
type IngestPayload struct {
	JobID     string `json:"job_id"`
	ObjectKey string `json:"object_key"`
	FileName  string `json:"file_name"`
}

// StageChangedPayload describes one committed transition.
type StageChangedPayload struct {
	CandidateID string      `json:"candidate_id"`
	From        model.Stage `json:"from"`
	To          model.Stage `json:"to"`
	TriggeredAt time.Time   `json:"triggered_at"`
}

// OfferNotifyPayload names the offer whose status changed.
type OfferNotifyPayload struct {
	OfferID     string            `json:"offer_id"`
	CandidateID string            `json:"candidate_id"`
	Status      model.OfferStatus `json:"status"`
}

// Enqueuer is the part of *asynq.Client the producers use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func enqueue(ctx context.Context, client Enqueuer, typename string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(typename, data)
	if _, err := client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s task: %w", typename, err)
	}
	return nil
}

// EnqueueIngest schedules ingestion of a stored CV.
func EnqueueIngest(ctx context.Context, client Enqueuer, payload IngestPayload) error {
	return enqueue(ctx, client, IngestCandidateTask, payload, asynq.MaxRetry(5))
}

// StageChangeEnqueuer is an automation handler that forwards transitions to
// the worker so slow automation never runs on the request path.
type StageChangeEnqueuer struct {
	client Enqueuer
}

func NewStageChangeEnqueuer(client Enqueuer) *StageChangeEnqueuer {
	return &StageChangeEnqueuer{client: client}
}

func (e *StageChangeEnqueuer) Name() string { return "enqueue_stage_changed" }

func (e *StageChangeEnqueuer) Handle(ctx context.Context, ev automation.Event) error {
	return enqueue(ctx, e.client, StageChangedTask, StageChangedPayload{
		CandidateID: ev.CandidateID,
		From:        ev.From,
		To:          ev.To,
		TriggeredAt: ev.TriggeredAt,
	}, asynq.MaxRetry(3))
}

// Notifier enqueues offer notifications. It satisfies offer.Notifier.
type Notifier struct {
	client Enqueuer
}

func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) OfferSent(ctx context.Context, o model.Offer) error {
	return n.notify(ctx, o)
}

func (n *Notifier) OfferStatusChanged(ctx context.Context, o model.Offer) error {
	return n.notify(ctx, o)
}

func (n *Notifier) notify(ctx context.Context, o model.Offer) error {
	return enqueue(ctx, n.client, OfferNotifyTask, OfferNotifyPayload{
		OfferID:     o.ID,
		CandidateID: o.CandidateID,
		Status:      o.Status,
	}, asynq.MaxRetry(5))
}
