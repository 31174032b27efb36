package sync

import (
	"context"
	"time"

	"github.com/kbwebsolutions/datasender/pkg/db/models"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
	"github.com/kbwebsolutions/datasender/pkg/queue"
)

// Result reports what happened to one inbound event. Record is nil when the
// event was discarded as out of scope.
type Result struct {
	Outcome string
	Record  *models.QueueRecord
}

type Service interface {
	HandleEvent(ctx context.Context, ev Event) (*Result, error)
}

type service struct {
	mapper    *Mapper
	queue     *queue.Service
	queueRepo *queue.Repository
	router    *Router
	metrics   *metrics.PipelineMetrics
	logg      *logger.Logger

	// inlineDispatch sends each record to the CRM as soon as it is
	// persisted. When false a drainer owns delivery.
	inlineDispatch bool
}

func NewService(
	mapper *Mapper,
	queueSvc *queue.Service,
	queueRepo *queue.Repository,
	router *Router,
	pm *metrics.PipelineMetrics,
	logg *logger.Logger,
	inlineDispatch bool,
) (Service, error) {
	if mapper == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mapper is required")
	}
	if queueSvc == nil || queueRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "queue service and repository are required")
	}
	if inlineDispatch && router == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inline dispatch requires a router")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	if pm == nil {
		pm = metrics.NewPipelineMetrics(nil)
	}
	return &service{
		mapper:         mapper,
		queue:          queueSvc,
		queueRepo:      queueRepo,
		router:         router,
		metrics:        pm,
		logg:           logg,
		inlineDispatch: inlineDispatch,
	}, nil
}

// HandleEvent runs the pipeline for one event: validate, map, persist, then
// optionally dispatch. Persistence always precedes dispatch so a CRM outage
// never loses a record. A dispatch failure is recorded against the queue row
// and does not surface to the caller; the row stays eligible for the
// drainer's retry.
func (s *service) HandleEvent(ctx context.Context, ev Event) (*Result, error) {
	ctx = s.logg.WithEventKind(ctx, string(ev.Kind))
	ctx = s.logg.WithCourse(ctx, ev.CourseID)
	ctx = s.logg.WithUser(ctx, ev.RelatedUserID)

	if err := ev.Validate(); err != nil {
		s.metrics.ObserveEvent(string(ev.Kind), metrics.OutcomeFailed)
		return nil, err
	}

	dispatch, err := s.mapper.Map(ctx, ev)
	if err != nil {
		s.metrics.ObserveEvent(string(ev.Kind), metrics.OutcomeFailed)
		s.logg.Error(ctx, "event mapping failed", err)
		return nil, err
	}
	if dispatch == nil {
		s.metrics.ObserveEvent(string(ev.Kind), metrics.OutcomeDiscarded)
		s.logg.Debug(ctx, "event out of scope, discarded")
		return &Result{Outcome: metrics.OutcomeDiscarded}, nil
	}

	record, err := s.queue.Append(ctx, dispatch.QueueEvent, dispatch.Record, dispatch.Path, dispatch.Method)
	if err != nil {
		s.metrics.ObserveEvent(string(ev.Kind), metrics.OutcomeFailed)
		return nil, err
	}
	s.metrics.ObserveEvent(string(ev.Kind), metrics.OutcomeAccepted)

	if s.inlineDispatch {
		s.dispatch(ctx, ev, dispatch, record)
	}
	return &Result{Outcome: metrics.OutcomeAccepted, Record: record}, nil
}

func (s *service) dispatch(ctx context.Context, ev Event, d *Dispatch, record *models.QueueRecord) {
	start := time.Now()
	if err := s.router.Send(ctx, d); err != nil {
		s.metrics.IncDispatchFailure(string(ev.Kind))
		s.logg.Error(ctx, "dispatch failed, record queued for retry", err)
		if markErr := s.queueRepo.MarkFailed(ctx, record.ID, err); markErr != nil {
			s.logg.Error(ctx, "failed to mark queue record", markErr)
		}
		return
	}
	s.metrics.ObserveDispatch(string(ev.Kind), time.Since(start))
	if err := s.queueRepo.MarkDispatched(ctx, record.ID); err != nil {
		s.logg.Error(ctx, "failed to mark queue record dispatched", err)
	}
}
