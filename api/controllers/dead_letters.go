package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/magisurprise/backend/api/responses"
	"github.com/magisurprise/backend/api/validators"
	"github.com/magisurprise/backend/pkg/db/models"
	"github.com/magisurprise/backend/pkg/enums"
	pkgerrors "github.com/magisurprise/backend/pkg/errors"
	"github.com/magisurprise/backend/pkg/logger"
	"github.com/magisurprise/backend/pkg/outbox"
)

type deadLetterLister interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
}

type deadLetterDTO struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"eventId"`
	EventType     enums.OutboxEventType      `json:"eventType"`
	AggregateType enums.OutboxAggregateType  `json:"aggregateType"`
	AggregateID   uuid.UUID                  `json:"aggregateId"`
	Payload       json.RawMessage            `json:"payload"`
	ErrorReason   enums.OutboxDLQErrorReason `json:"errorReason"`
	ErrorMessage  string                     `json:"errorMessage,omitempty"`
	AttemptCount  int                        `json:"attemptCount"`
	FailedAt      time.Time                  `json:"failedAt"`
}

// AdminDeadLetters lists notifications that were not delivered, newest first.
func AdminDeadLetters(repo deadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := outbox.DLQFilter{Limit: limit}
		if raw := strings.TrimSpace(r.URL.Query().Get("eventType")); raw != "" {
			eventType, err := enums.ParseOutboxEventType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Tipo de evento inválido"))
				return
			}
			filter.EventType = eventType
		}

		rows, err := repo.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		responses.WriteSuccess(w, "ok", map[string]any{
			"deadLetters": lo.Map(rows, func(row models.OutboxDLQ, _ int) deadLetterDTO {
				return deadLetterDTO{
					ID:            row.ID,
					EventID:       row.EventID,
					EventType:     row.EventType,
					AggregateType: row.AggregateType,
					AggregateID:   row.AggregateID,
					Payload:       row.Payload,
					ErrorReason:   row.ErrorReason,
					ErrorMessage:  lo.FromPtr(row.ErrorMessage),
					AttemptCount:  row.AttemptCount,
					FailedAt:      row.FailedAt,
				}
			}),
		})
	}
}
