package repository

import (
	"context"
	"time"

	"github.com/amirasaad/banking/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates an outbox repository bound to db.
func NewOutboxRepository(db *gorm.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

// Create implements repository.OutboxRepository.
func (r *outboxRepository) Create(ctx context.Context, e *repository.OutboxEvent) error {
	if e.Status == "" {
		e.Status = repository.OutboxStatusPending
	}
	m := OutboxEvent{
		ID:          e.ID,
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		Payload:     e.Payload,
		Status:      string(e.Status),
		Attempts:    e.Attempts,
		LastError:   e.LastError,
		PublishedAt: e.PublishedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
}

// GetByIDs implements repository.OutboxRepository.
func (r *outboxRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*repository.OutboxEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []OutboxEvent
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapOutboxRows(rows), nil
}

// ListPending implements repository.OutboxRepository.
func (r *outboxRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]*repository.OutboxEvent, error) {
	var rows []OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND attempts < ?", []string{
			string(repository.OutboxStatusPending),
			string(repository.OutboxStatusFailed),
		}, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapOutboxRows(rows), nil
}

// MarkPublished implements repository.OutboxRepository.
func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	return WrapError(func() error {
		return r.db.WithContext(ctx).
			Model(&OutboxEvent{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":       string(repository.OutboxStatusPublished),
				"attempts":     gorm.Expr("attempts + 1"),
				"published_at": at,
				"last_error":   "",
				"updated_at":   at,
			}).Error
	})
}

// MarkFailed implements repository.OutboxRepository.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).
			Model(&OutboxEvent{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":     string(repository.OutboxStatusFailed),
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": reason,
				"updated_at": time.Now().UTC(),
			}).Error
	})
}

func mapOutboxRows(rows []OutboxEvent) []*repository.OutboxEvent {
	out := make([]*repository.OutboxEvent, 0, len(rows))
	for i := range rows {
		m := rows[i]
		out = append(out, &repository.OutboxEvent{
			ID:          m.ID,
			EventType:   m.EventType,
			AggregateID: m.AggregateID,
			Payload:     m.Payload,
			Status:      repository.OutboxStatus(m.Status),
			Attempts:    m.Attempts,
			LastError:   m.LastError,
			PublishedAt: m.PublishedAt,
			CreatedAt:   m.CreatedAt.UTC(),
			UpdatedAt:   m.UpdatedAt.UTC(),
		})
	}
	return out
}
