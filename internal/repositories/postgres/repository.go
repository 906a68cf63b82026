// Package postgres implements the repository interfaces on gorm. The same
// implementation backs the embedded sqlite fallback store, since gorm
// abstracts the driver.
package postgres

import (
	"gorm.io/gorm"

	"github.com/brightclass/assessment-delivery/internal/repositories"
)

type gormRepository struct {
	assessment repositories.AssessmentRepository
	attempt    repositories.AttemptRepository
	answer     repositories.AnswerRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		assessment: NewAssessmentPostgreSQL(db),
		attempt:    NewAttemptPostgreSQL(db),
		answer:     NewAnswerPostgreSQL(db),
	}
}

func (r *gormRepository) Assessment() repositories.AssessmentRepository { return r.assessment }
func (r *gormRepository) Attempt() repositories.AttemptRepository       { return r.attempt }
func (r *gormRepository) Answer() repositories.AnswerRepository         { return r.answer }
