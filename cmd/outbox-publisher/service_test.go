package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/config"
	"github.com/peersenco/storefront-backend/pkg/db/models"
	"github.com/peersenco/storefront-backend/pkg/enums"
	"github.com/peersenco/storefront-backend/pkg/logger"
	"github.com/peersenco/storefront-backend/pkg/outbox"
	"gorm.io/gorm"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	dead      []uuid.UUID
}

func (r *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return r.events, nil
}

func (r *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeRepo) MarkDeadTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	r.dead = append(r.dead, id)
	return nil
}

type fakeSink struct {
	errs []error
	sent []outbox.Message
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Publish(_ context.Context, msg outbox.Message) error {
	s.sent = append(s.sent, msg)
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *fakeSink) Ping(context.Context) error { return nil }
func (s *fakeSink) Close() error               { return nil }

func mustEnvelope(t *testing.T, eventID string) []byte {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    eventID,
		EventType:  enums.EventOrderCreated,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func newEvent(t *testing.T, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, uuid.NewString()),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, sink *fakeSink) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
		Logger:     logger.Nop(),
		DB:         fakeDB{},
		Sink:       sink,
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newEvent(t, 0), newEvent(t, 0)}}
	sink := &fakeSink{errs: []error{errors.New("transient")}}
	svc := newTestService(t, repo, sink)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows %v", repo.published)
	}
	if sink.sent[1].Key != repo.events[1].AggregateID.String() {
		t.Fatalf("message key should be the aggregate id")
	}
}

func TestProcessBatchMarksDeadOnLastAttempt(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{newEvent(t, 2)}}
	sink := &fakeSink{errs: []error{errors.New("still down")}}
	svc := newTestService(t, repo, sink)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.dead) != 1 || len(repo.failed) != 0 {
		t.Fatalf("expected dead row, got dead=%v failed=%v", repo.dead, repo.failed)
	}
}

func TestProcessBatchMarksUndecodablePayloadDead(t *testing.T) {
	event := newEvent(t, 0)
	event.Payload = []byte("not json")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	sink := &fakeSink{}
	svc := newTestService(t, repo, sink)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(repo.dead) != 1 || len(sink.sent) != 0 {
		t.Fatalf("expected dead row without publish, got dead=%v sent=%d", repo.dead, len(sink.sent))
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeSink{})
	processed, err := svc.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestNextBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	if got := nextBackoff(0, base, time.Second); got != 200*time.Millisecond {
		t.Fatalf("unexpected backoff %s", got)
	}
	if got := nextBackoff(800*time.Millisecond, base, time.Second); got != time.Second {
		t.Fatalf("backoff should cap, got %s", got)
	}
}
