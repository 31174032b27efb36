package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/multierr"

	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/db/models"
	"github.com/kbwebsolutions/datasender/pkg/enums"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type pinger interface {
	Ping(context.Context) error
}

type queueRepository interface {
	FetchUndispatched(ctx context.Context, limit, maxAttempts int) ([]models.QueueRecord, error)
	MarkDispatched(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	Repository queueRepository
	Router     *syncsvc.Router
	Metrics    *metrics.PipelineMetrics
}

// Service drains undispatched queue records to the CRM in arrival order.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           pinger
	repo         queueRepository
	router       *syncsvc.Router
	metrics      *metrics.PipelineMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("queue repository is required")
	}
	if params.Router == nil {
		return nil, errors.New("dispatch router is required")
	}

	pm := params.Metrics
	if pm == nil {
		pm = metrics.NewPipelineMetrics(nil)
	}

	batch := params.Config.Queue.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := params.Config.Queue.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	interval := params.Config.Queue.PollInterval()
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		router:       params.Router,
		metrics:      pm,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: interval,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "queue sender context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "queue sender batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.pollInterval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch delivers one fetch worth of records. A failed delivery is
// marked against its row and does not stop the batch; bookkeeping failures
// are collected and abort the cycle.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	records, err := s.repo.FetchUndispatched(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}

	var markErrs error
	for _, record := range records {
		fields := map[string]any{
			"queue_id":    record.ID,
			"queue_event": record.Event,
			"attempts":    record.AttemptCount,
		}
		recCtx := s.logg.WithFields(ctx, fields)

		if err := s.send(ctx, record); err != nil {
			s.metrics.IncDispatchFailure(record.Event)
			s.logg.Warn(s.logg.WithField(recCtx, "error", err.Error()), "queue record delivery failed")
			if markErr := s.repo.MarkFailed(ctx, record.ID, err); markErr != nil {
				markErrs = multierr.Append(markErrs, fmt.Errorf("mark failed %d: %w", record.ID, markErr))
			}
			continue
		}

		if markErr := s.repo.MarkDispatched(ctx, record.ID); markErr != nil {
			markErrs = multierr.Append(markErrs, fmt.Errorf("mark dispatched %d: %w", record.ID, markErr))
			continue
		}
		s.logg.Info(recCtx, "queue record delivered")
	}
	return true, markErrs
}

func (s *Service) send(ctx context.Context, record models.QueueRecord) error {
	method, err := enums.ParseDispatchMethod(record.Method)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.router.Send(ctx, &syncsvc.Dispatch{
		QueueEvent: record.Event,
		Record:     json.RawMessage(record.Data),
		Path:       record.Path,
		Method:     method,
		LogLine:    fmt.Sprintf("queue record %d %s redelivery", record.ID, record.Event),
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveDispatch(record.Event, time.Since(start))
	return nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, floor, ceiling time.Duration) time.Duration {
	next := current * 2
	if next < floor {
		next = floor
	}
	if next > ceiling {
		next = ceiling
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
