package faq

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"chat-backend/internal/database"
)

// DefaultLimit is the number of FAQ records pulled into a prompt.
const DefaultLimit = 3

type Record struct {
	Category string
	Question string
	Answer   string
}

// Retriever finds FAQ records relevant to a user question. Retrieval is best
// effort: callers treat errors as a missing context block, not a failure.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]Record, error)
}

// SQLRetriever does a substring search over the faqs table, matching the
// question or the answer.
type SQLRetriever struct {
	db *gorm.DB
}

func NewSQLRetriever(db *gorm.DB) *SQLRetriever {
	return &SQLRetriever{db: db}
}

func (r *SQLRetriever) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	pattern := "%" + query + "%"
	matcher := "question LIKE ? OR answer LIKE ?"
	if r.db.Dialector.Name() == "postgres" {
		matcher = "question ILIKE ? OR answer ILIKE ?"
	}

	var rows []database.Faq
	err := r.db.WithContext(ctx).
		Where(matcher, pattern, pattern).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error searching faqs: %w", err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{Category: row.Category, Question: row.Question, Answer: row.Answer}
	}
	return records, nil
}

// Seed inserts FAQ records, used by tests and local setup.
func Seed(ctx context.Context, db *gorm.DB, records []Record) error {
	for _, record := range records {
		row := database.Faq{Category: record.Category, Question: record.Question, Answer: record.Answer}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("error seeding faq %q: %w", record.Question, err)
		}
	}
	return nil
}
