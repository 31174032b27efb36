package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kbwebsolutions/datasender/pkg/db/models"
	"github.com/kbwebsolutions/datasender/pkg/enums"
	"github.com/kbwebsolutions/datasender/pkg/logger"
)

// Service appends every accepted event to the durable queue table before any
// dispatch attempt is made. The write is the audit trail: it must succeed for
// the pipeline to continue, and it never depends on CRM reachability.
type Service struct {
	repo    *Repository
	logg    *logger.Logger
	adapter string
}

func NewService(repo *Repository, logg *logger.Logger, adapter string) (*Service, error) {
	if repo == nil {
		return nil, errors.New("queue repository required")
	}
	if adapter == "" {
		adapter = "1"
	}
	return &Service{repo: repo, logg: logg, adapter: adapter}, nil
}

// Append serializes the record payload and inserts one queue row. The
// dispatch path and method are stored with the row so a drainer can deliver
// it without re-deriving the target.
func (s *Service) Append(ctx context.Context, eventName string, record any, path string, method enums.DispatchMethod) (*models.QueueRecord, error) {
	if eventName == "" {
		return nil, errors.New("event name required")
	}
	if !method.IsValid() {
		return nil, errors.New("invalid dispatch method")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	row := &models.QueueRecord{
		Event:       eventName,
		Data:        string(payload),
		Adapter:     s.adapter,
		Path:        path,
		Method:      string(method),
		TimeCreated: time.Now().Unix(),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"queue_id":    row.ID,
			"queue_event": eventName,
		})
		s.logg.Info(logCtx, "queue record appended")
	}
	return row, nil
}
