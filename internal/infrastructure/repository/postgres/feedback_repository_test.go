package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lexhelp/precedent-search/internal/core/domain"
)

func newFeedbackRepoWithMock(t *testing.T) (*FeedbackEventRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewFeedbackEventRepository(db), mock
}

func TestFeedbackEventRepositoryAppend(t *testing.T) {
	repo, mock := newFeedbackRepoWithMock(t)

	score := 4
	event := &domain.FeedbackEvent{
		ID:             "evt-1",
		DocumentID:     "doc-1",
		UserID:         "user-1",
		Query:          "termination clause precedent",
		IsHelpful:      true,
		RelevanceScore: &score,
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
	}

	mock.ExpectExec(`INSERT INTO feedback_events`).
		WithArgs(event.ID, event.DocumentID, event.UserID, nil, event.Query,
			event.IsHelpful, event.RelevanceScore, nil, event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Append(context.Background(), event); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFeedbackEventRepositoryAppendError(t *testing.T) {
	repo, mock := newFeedbackRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO feedback_events`).
		WillReturnError(errors.New("connection refused"))

	err := repo.Append(context.Background(), &domain.FeedbackEvent{
		ID:         "evt-1",
		DocumentID: "doc-1",
		IsHelpful:  false,
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	})
	if err == nil {
		t.Fatalf("expected insert error to propagate")
	}
}

func TestFeedbackEventRepositorySumForDocument(t *testing.T) {
	repo, mock := newFeedbackRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"likes", "dislikes", "avg"}).
		AddRow(7, 3, 3.6)
	mock.ExpectQuery(`SELECT`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	likes, dislikes, avg, err := repo.SumForDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("SumForDocument() error = %v", err)
	}
	if likes != 7 || dislikes != 3 {
		t.Fatalf("got likes=%d dislikes=%d, want 7/3", likes, dislikes)
	}
	if avg == nil || *avg != 3.6 {
		t.Fatalf("got avg=%v, want 3.6", avg)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFeedbackEventRepositorySumForDocumentNoEvents(t *testing.T) {
	repo, mock := newFeedbackRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"likes", "dislikes", "avg"}).
		AddRow(0, 0, nil)
	mock.ExpectQuery(`SELECT`).
		WithArgs("doc-none").
		WillReturnRows(rows)

	likes, dislikes, avg, err := repo.SumForDocument(context.Background(), "doc-none")
	if err != nil {
		t.Fatalf("SumForDocument() error = %v", err)
	}
	if likes != 0 || dislikes != 0 {
		t.Fatalf("got likes=%d dislikes=%d, want 0/0", likes, dislikes)
	}
	if avg != nil {
		t.Fatalf("expected nil average when no scored events, got %v", *avg)
	}
}
