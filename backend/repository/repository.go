// Package repository holds the gorm queries shared by controllers and services.
// Every function takes the *gorm.DB to run on, so callers inside a
// transaction pass the tx handle and everything else passes the pool.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"quizplatform/backend/models"
)

// VersionedModel is a gorm model carrying an optimistic-concurrency version.
type VersionedModel interface {
	models.Versioned
}

// Create inserts a new aggregate at version 1.
func Create(ctx context.Context, db *gorm.DB, m VersionedModel) error {
	if m.CurrentVersion() == 0 {
		m.SetVersion(1)
	}
	return db.WithContext(ctx).Create(m).Error
}

// SaveVersioned writes the whole aggregate if nobody else bumped its version
// since it was read. A lost race is reported as models.ErrWriteConflict.
func SaveVersioned(ctx context.Context, db *gorm.DB, m VersionedModel) error {
	prev := m.CurrentVersion()
	m.SetVersion(prev + 1)

	res := db.WithContext(ctx).Model(m).Where("version = ?", prev).Select("*").Updates(m)
	if res.Error != nil {
		m.SetVersion(prev)
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.SetVersion(prev)
		return fmt.Errorf("%w: %T changed since version %d", models.ErrWriteConflict, m, prev)
	}
	return nil
}

// IsWriteConflict reports errors worth retrying the whole transaction for:
// version mismatches, a second open submission for the same pair, and
// postgres serialization failures or deadlocks.
func IsWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrWriteConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		case "23505":
			return pgErr.ConstraintName == OpenSubmissionIndex
		}
	}
	return false
}

func first(ctx context.Context, db *gorm.DB, dest interface{}, notFound error, query string, args ...interface{}) error {
	err := db.WithContext(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func GetAdminByEmail(ctx context.Context, db *gorm.DB, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := first(ctx, db, &admin, models.ErrAdminNotFound, "email = ?", email); err != nil {
		return nil, err
	}
	return &admin, nil
}

func GetQuestionSet(ctx context.Context, db *gorm.DB, id string) (*models.QuestionSet, error) {
	var qs models.QuestionSet
	if err := first(ctx, db, &qs, models.ErrQuestionSetNotFound, "id = ?", id); err != nil {
		return nil, err
	}
	return &qs, nil
}

func GetQuiz(ctx context.Context, db *gorm.DB, id string) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := first(ctx, db, &quiz, models.ErrQuizNotFound, "id = ?", id); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func GetQuizTaker(ctx context.Context, db *gorm.DB, id string) (*models.QuizTaker, error) {
	var taker models.QuizTaker
	if err := first(ctx, db, &taker, models.ErrQuizTakerNotFound, "id = ?", id); err != nil {
		return nil, err
	}
	return &taker, nil
}

func GetQuizTakerByEmail(ctx context.Context, db *gorm.DB, email string) (*models.QuizTaker, error) {
	var taker models.QuizTaker
	if err := first(ctx, db, &taker, models.ErrQuizTakerNotFound, "email = ?", email); err != nil {
		return nil, err
	}
	return &taker, nil
}

func GetSubmission(ctx context.Context, db *gorm.DB, id string) (*models.QuizSubmission, error) {
	var sub models.QuizSubmission
	if err := first(ctx, db, &sub, models.ErrSubmissionNotFound, "id = ?", id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindOpenSubmission returns the in-progress submission of the pair, or nil when none exists.
func FindOpenSubmission(ctx context.Context, db *gorm.DB, quizID, takerID string) (*models.QuizSubmission, error) {
	var sub models.QuizSubmission
	err := db.WithContext(ctx).
		Where("quiz_id = ? AND quiz_taker_id = ? AND status = ?", quizID, takerID, models.SubmissionInProgress).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// LatestSubmission returns the most recent attempt of the pair.
func LatestSubmission(ctx context.Context, db *gorm.DB, quizID, takerID string) (*models.QuizSubmission, error) {
	var sub models.QuizSubmission
	err := db.WithContext(ctx).
		Where("quiz_id = ? AND quiz_taker_id = ?", quizID, takerID).
		Order("attempt_number DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CountAttempts counts every submission of the pair, open or closed.
func CountAttempts(ctx context.Context, db *gorm.DB, quizID, takerID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&models.QuizSubmission{}).
		Where("quiz_id = ? AND quiz_taker_id = ?", quizID, takerID).
		Count(&n).Error
	return n, err
}

type SubmissionFilter struct {
	QuizID      string
	QuizTakerID string
	Status      models.SubmissionStatus
}

func ListSubmissions(ctx context.Context, db *gorm.DB, f SubmissionFilter) ([]models.QuizSubmission, error) {
	query := db.WithContext(ctx).Model(&models.QuizSubmission{})
	if f.QuizID != "" {
		query = query.Where("quiz_id = ?", f.QuizID)
	}
	if f.QuizTakerID != "" {
		query = query.Where("quiz_taker_id = ?", f.QuizTakerID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var subs []models.QuizSubmission
	if err := query.Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListQuizzesByIDs keeps the order of ids and skips missing quizzes.
func ListQuizzesByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]models.Quiz, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Quiz
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Quiz, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	out := make([]models.Quiz, 0, len(found))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// ListOpenQuizzes returns active quizzes regular quiz takers may take.
func ListOpenQuizzes(ctx context.Context, db *gorm.DB) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := db.WithContext(ctx).
		Where("is_active = ? AND mode = ?", true, models.QuizModeOpen).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

// QuestionSetInCombination reports whether any quiz taker's combination references id.
// The combination is a JSON column, so the check runs in Go to stay portable
// across postgres and sqlite.
func QuestionSetInCombination(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var takers []models.QuizTaker
	if err := db.WithContext(ctx).Select("id", "question_set_combination").Find(&takers).Error; err != nil {
		return false, err
	}
	for _, t := range takers {
		for _, ref := range t.Combination() {
			if ref == id {
				return true, nil
			}
		}
	}
	return false, nil
}
