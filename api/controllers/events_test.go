package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/db/models"
	"github.com/kbwebsolutions/datasender/pkg/enums"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
)

type testSyncService struct {
	handleFn func(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error)
}

func (s *testSyncService) HandleEvent(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error) {
	if s.handleFn != nil {
		return s.handleFn(ctx, ev)
	}
	return &syncsvc.Result{Outcome: metrics.OutcomeAccepted}, nil
}

type testGuard struct {
	seen    map[string]bool
	deleted []string
}

func (g *testGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	was := g.seen[eventID]
	g.seen[eventID] = true
	return was, nil
}

func (g *testGuard) Delete(ctx context.Context, eventID string) error {
	g.deleted = append(g.deleted, eventID)
	delete(g.seen, eventID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

const quizBody = `{
	"id": "evt-1",
	"kind": "quiz_attempt_submitted",
	"courseid": 1,
	"relateduserid": 100,
	"contextinstanceid": 30,
	"timecreated": 1681291815,
	"other": {}
}`

func TestReceiveEventAccepted(t *testing.T) {
	var got syncsvc.Event
	svc := &testSyncService{
		handleFn: func(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error) {
			got = ev
			return &syncsvc.Result{
				Outcome: metrics.OutcomeAccepted,
				Record:  &models.QueueRecord{ID: 12},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(quizBody))
	resp := httptest.NewRecorder()
	ReceiveEvent(svc, nil, testLogger())(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Kind != enums.EventQuizAttemptSubmitted {
		t.Fatalf("unexpected kind %q", got.Kind)
	}
	if got.OccurredAt.Unix() != 1681291815 {
		t.Fatalf("unexpected timestamp %v", got.OccurredAt)
	}

	var envelope struct {
		Data EventResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.RecordID != 12 {
		t.Fatalf("unexpected record id %d", envelope.Data.RecordID)
	}
}

func TestReceiveEventRejectsUnknownKind(t *testing.T) {
	body := strings.Replace(quizBody, "quiz_attempt_submitted", "course_deleted", 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	resp := httptest.NewRecorder()
	ReceiveEvent(&testSyncService{}, nil, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReceiveEventRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"kind":"quiz_attempt_submitted"}`))
	resp := httptest.NewRecorder()
	ReceiveEvent(&testSyncService{}, nil, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestReceiveEventDeduplicates(t *testing.T) {
	calls := 0
	svc := &testSyncService{
		handleFn: func(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error) {
			calls++
			return &syncsvc.Result{Outcome: metrics.OutcomeAccepted}, nil
		},
	}
	guard := &testGuard{}
	handler := ReceiveEvent(svc, guard, testLogger())

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(quizBody)))
	second := httptest.NewRecorder()
	handler(second, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(quizBody)))

	if calls != 1 {
		t.Fatalf("expected 1 processing call, got %d", calls)
	}
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "duplicate") {
		t.Fatalf("expected duplicate outcome, got %s", second.Body.String())
	}
}

func TestReceiveEventReleasesDedupeMarkOnFailure(t *testing.T) {
	svc := &testSyncService{
		handleFn: func(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "lookup failed")
		},
	}
	guard := &testGuard{}
	resp := httptest.NewRecorder()
	ReceiveEvent(svc, guard, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(quizBody)))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "evt-1" {
		t.Fatalf("expected dedupe mark released, got %v", guard.deleted)
	}
}

func TestReceiveEventDiscardedOutcome(t *testing.T) {
	svc := &testSyncService{
		handleFn: func(ctx context.Context, ev syncsvc.Event) (*syncsvc.Result, error) {
			return &syncsvc.Result{Outcome: metrics.OutcomeDiscarded}, nil
		},
	}
	resp := httptest.NewRecorder()
	ReceiveEvent(svc, nil, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(quizBody)))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for discarded event, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), metrics.OutcomeDiscarded) {
		t.Fatalf("expected discarded outcome, got %s", resp.Body.String())
	}
}
