package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/kbwebsolutions/datasender/api/responses"
	"github.com/kbwebsolutions/datasender/api/validators"
	syncsvc "github.com/kbwebsolutions/datasender/internal/sync"
	"github.com/kbwebsolutions/datasender/pkg/enums"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
	"github.com/kbwebsolutions/datasender/pkg/logger"
	"github.com/kbwebsolutions/datasender/pkg/metrics"
)

// EventRequest mirrors the event source's webhook body. Field names follow
// the source's own event payload keys.
type EventRequest struct {
	ID                string            `json:"id" validate:"required"`
	Kind              string            `json:"kind" validate:"required"`
	CourseID          int64             `json:"courseid" validate:"required,gt=0"`
	RelatedUserID     int64             `json:"relateduserid" validate:"required,gt=0"`
	ContextInstanceID int64             `json:"contextinstanceid"`
	TimeCreated       int64             `json:"timecreated" validate:"required,gt=0"`
	Other             EventRequestOther `json:"other"`
}

type EventRequestOther struct {
	ID       int64  `json:"id"`
	MarkerID int64  `json:"markerid"`
	NewState string `json:"newstate"`
}

type EventResponse struct {
	Outcome  string `json:"outcome"`
	RecordID int64  `json:"record_id,omitempty"`
}

// DedupeGuard remembers which event ids have already been accepted.
type DedupeGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// ReceiveEvent ingests one platform event. Duplicate deliveries of the same
// event id are acknowledged without reprocessing.
func ReceiveEvent(svc syncsvc.Service, guard DedupeGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sync service unavailable"))
			return
		}

		var req EventRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseEventKind(req.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event kind"))
			return
		}

		ctx := r.Context()
		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, req.ID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if seen {
				if logg != nil {
					logg.Info(logg.WithField(ctx, "event_id", req.ID), "duplicate event acknowledged")
				}
				responses.WriteSuccess(w, EventResponse{Outcome: "duplicate"})
				return
			}
		}

		result, err := svc.HandleEvent(ctx, syncsvc.Event{
			ID:                req.ID,
			Kind:              kind,
			CourseID:          req.CourseID,
			RelatedUserID:     req.RelatedUserID,
			ContextInstanceID: req.ContextInstanceID,
			OccurredAt:        time.Unix(req.TimeCreated, 0).UTC(),
			RoleAssignmentID:  req.Other.ID,
			MarkerID:          req.Other.MarkerID,
			NewState:          req.Other.NewState,
		})
		if err != nil {
			// A failed event may be retried by the source under the
			// same id.
			if guard != nil {
				if delErr := guard.Delete(ctx, req.ID); delErr != nil && logg != nil {
					logg.Error(ctx, "failed to release dedupe mark", delErr)
				}
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := EventResponse{Outcome: result.Outcome}
		status := http.StatusOK
		if result.Outcome == metrics.OutcomeAccepted {
			status = http.StatusAccepted
			if result.Record != nil {
				resp.RecordID = result.Record.ID
			}
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}
