package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questboard/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Application struct {
	ApplicationID uuid.UUID  `db:"application_id"`
	QuestID       uuid.UUID  `db:"quest_id"`
	ApplicantID   int64      `db:"applicant_id"`
	Status        string     `db:"status"`
	Reason        string     `db:"reason"`
	AppliedAt     time.Time  `db:"applied_at"`
	ReviewedAt    *time.Time `db:"reviewed_at"`
	ReviewedBy    *int64     `db:"reviewed_by"`
}

var applicationColumns = []string{
	"application_id", "quest_id", "applicant_id", "status", "reason", "applied_at", "reviewed_at", "reviewed_by",
}

func (r *Application) toModel() *model.Application {
	return &model.Application{
		ApplicationID: r.ApplicationID,
		QuestID:       r.QuestID,
		ApplicantID:   r.ApplicantID,
		Status:        model.ApplicationStatus(r.Status),
		Reason:        r.Reason,
		AppliedAt:     r.AppliedAt,
		ReviewedAt:    r.ReviewedAt,
		ReviewedBy:    r.ReviewedBy,
	}
}

type applicationCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

func (q *queries) InsertApplication(ctx context.Context, app *model.Application) error {
	query, args, err := squirrel.
		Insert("applications").
		SetMap(map[string]interface{}{
			"application_id": app.ApplicationID,
			"quest_id":       app.QuestID,
			"applicant_id":   app.ApplicantID,
			"status":         string(app.Status),
			"reason":         app.Reason,
			"applied_at":     app.AppliedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build application insert query: %w", err)
	}

	_, err = q.ext.ExecContext(ctx, query, args...)
	return translateError(err)
}

func (q *queries) UpdateApplication(ctx context.Context, app *model.Application) error {
	query, args, err := squirrel.
		Update("applications").
		SetMap(map[string]interface{}{
			"status":      string(app.Status),
			"reason":      app.Reason,
			"reviewed_at": app.ReviewedAt,
			"reviewed_by": app.ReviewedBy,
		}).
		Where(squirrel.Eq{"application_id": app.ApplicationID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build application update query: %w", err)
	}

	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (q *queries) getApplication(ctx context.Context, where squirrel.Sqlizer, suffix string) (*model.Application, error) {
	builder := squirrel.
		Select(applicationColumns...).
		From("applications").
		Where(where).
		PlaceholderFormat(squirrel.Dollar)
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var row Application
	if err := sqlx.GetContext(ctx, q.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (q *queries) GetApplication(ctx context.Context, applicationID uuid.UUID) (*model.Application, error) {
	return q.getApplication(ctx, squirrel.Eq{"application_id": applicationID}, "")
}

func (q *queries) LockApplication(ctx context.Context, applicationID uuid.UUID) (*model.Application, error) {
	return q.getApplication(ctx, squirrel.Eq{"application_id": applicationID}, "FOR UPDATE")
}

// FindActiveApplication returns the applicant's pending or approved application on the quest.
func (q *queries) FindActiveApplication(ctx context.Context, questID uuid.UUID, applicantID int64) (*model.Application, error) {
	return q.getApplication(ctx, squirrel.Eq{
		"quest_id":     questID,
		"applicant_id": applicantID,
		"status":       []string{string(model.ApplicationPending), string(model.ApplicationApproved)},
	}, "ORDER BY applied_at DESC LIMIT 1")
}

// ListApplications returns the quest's full application log, oldest first.
func (q *queries) ListApplications(ctx context.Context, questID uuid.UUID) ([]*model.Application, error) {
	query, args, err := squirrel.
		Select(applicationColumns...).
		From("applications").
		Where(squirrel.Eq{"quest_id": questID}).
		OrderBy("applied_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Application
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, err
	}

	apps := make([]*model.Application, len(rows))
	for i := range rows {
		apps[i] = rows[i].toModel()
	}
	return apps, nil
}

func (q *queries) CountApplications(ctx context.Context, questID uuid.UUID) (model.ApplicationCounts, error) {
	query, args, err := squirrel.
		Select("status", "COUNT(*) AS count").
		From("applications").
		Where(squirrel.Eq{"quest_id": questID}).
		GroupBy("status").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []applicationCount
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, err
	}

	counts := make(model.ApplicationCounts, len(rows))
	for _, row := range rows {
		counts[model.ApplicationStatus(row.Status)] = row.Count
	}
	return counts, nil
}
