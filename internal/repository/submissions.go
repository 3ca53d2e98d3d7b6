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
	"github.com/lib/pq"
)

type Submission struct {
	SubmissionID      uuid.UUID      `db:"submission_id"`
	QuestID           uuid.UUID      `db:"quest_id"`
	ParticipantUserID *int64         `db:"participant_user_id"`
	ApplicationID     *uuid.UUID     `db:"application_id"`
	SequenceNumber    int            `db:"sequence_number"`
	Status            string         `db:"status"`
	Text              string         `db:"text"`
	Link              string         `db:"link"`
	Files             pq.StringArray `db:"files"`
	Feedback          string         `db:"feedback"`
	SubmittedAt       time.Time      `db:"submitted_at"`
	ReviewedAt        *time.Time     `db:"reviewed_at"`
}

var submissionColumns = []string{
	"submission_id", "quest_id", "participant_user_id", "application_id", "sequence_number", "status",
	"text", "link", "files", "feedback", "submitted_at", "reviewed_at",
}

func (r *Submission) toModel() *model.Submission {
	return &model.Submission{
		SubmissionID: r.SubmissionID,
		QuestID:      r.QuestID,
		ParticipantRef: model.ParticipantRef{
			UserID:        r.ParticipantUserID,
			ApplicationID: r.ApplicationID,
		},
		SequenceNumber: r.SequenceNumber,
		Status:         model.SubmissionStatus(r.Status),
		Payload: model.SubmissionPayload{
			Text:  r.Text,
			Link:  r.Link,
			Files: []string(r.Files),
		},
		Feedback:    r.Feedback,
		SubmittedAt: r.SubmittedAt,
		ReviewedAt:  r.ReviewedAt,
	}
}

func (q *queries) InsertSubmission(ctx context.Context, sub *model.Submission) error {
	files := sub.Payload.Files
	if files == nil {
		files = []string{}
	}

	query, args, err := squirrel.
		Insert("submissions").
		SetMap(map[string]interface{}{
			"submission_id":       sub.SubmissionID,
			"quest_id":            sub.QuestID,
			"participant_user_id": sub.ParticipantRef.UserID,
			"application_id":      sub.ParticipantRef.ApplicationID,
			"sequence_number":     sub.SequenceNumber,
			"status":              string(sub.Status),
			"text":                sub.Payload.Text,
			"link":                sub.Payload.Link,
			"files":               pq.StringArray(files),
			"feedback":            sub.Feedback,
			"submitted_at":        sub.SubmittedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build submission insert query: %w", err)
	}

	_, err = q.ext.ExecContext(ctx, query, args...)
	return err
}

func (q *queries) UpdateSubmission(ctx context.Context, sub *model.Submission) error {
	query, args, err := squirrel.
		Update("submissions").
		SetMap(map[string]interface{}{
			"status":      string(sub.Status),
			"feedback":    sub.Feedback,
			"reviewed_at": sub.ReviewedAt,
		}).
		Where(squirrel.Eq{"submission_id": sub.SubmissionID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build submission update query: %w", err)
	}

	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (q *queries) getSubmission(ctx context.Context, submissionID uuid.UUID, forUpdate bool) (*model.Submission, error) {
	builder := squirrel.
		Select(submissionColumns...).
		From("submissions").
		Where(squirrel.Eq{"submission_id": submissionID}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var row Submission
	if err := sqlx.GetContext(ctx, q.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (q *queries) GetSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	return q.getSubmission(ctx, submissionID, false)
}

func (q *queries) LockSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	return q.getSubmission(ctx, submissionID, true)
}

func (q *queries) ListSubmissions(ctx context.Context, questID uuid.UUID) ([]*model.Submission, error) {
	query, args, err := squirrel.
		Select(submissionColumns...).
		From("submissions").
		Where(squirrel.Eq{"quest_id": questID}).
		OrderBy("submitted_at ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Submission
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, err
	}

	subs := make([]*model.Submission, len(rows))
	for i := range rows {
		subs[i] = rows[i].toModel()
	}
	return subs, nil
}

// CountSubmissions counts submissions filed by user id or through any of the applicant's
// applications on the quest.
func (q *queries) CountSubmissions(ctx context.Context, questID uuid.UUID, applicantID int64) (int, error) {
	query, args, err := squirrel.
		Select("COUNT(*)").
		From("submissions").
		Where(squirrel.Eq{"quest_id": questID}).
		Where(squirrel.Or{
			squirrel.Eq{"participant_user_id": applicantID},
			squirrel.Expr("application_id IN (SELECT application_id FROM applications WHERE quest_id = ? AND applicant_id = ?)", questID, applicantID),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := sqlx.GetContext(ctx, q.ext, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}
