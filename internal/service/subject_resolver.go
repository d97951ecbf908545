package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
	appErrors "github.com/noah-isme/coe-exam-api/pkg/errors"
)

type resolverSubjectRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
}

// SubjectResolver maps a staff member's declared subject onto exactly
// one canonical subject row, keyed by subject code. Concurrent
// resolutions of the same code must converge on a single row.
type SubjectResolver struct {
	subjects resolverSubjectRepository
	logger   *zap.Logger
}

// NewSubjectResolver instantiates SubjectResolver.
func NewSubjectResolver(subjects resolverSubjectRepository, logger *zap.Logger) *SubjectResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectResolver{subjects: subjects, logger: logger}
}

// Resolve finds the canonical subject for the staff member's declared
// code, creating it from the staff record when absent. A unique
// violation on create means another resolution won the race, so the
// lookup is retried once and the winner's row is returned.
func (r *SubjectResolver) Resolve(ctx context.Context, staff *models.Staff) (*models.Subject, error) {
	code := strings.TrimSpace(staff.SubjectCode)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staff member has no declared subject code")
	}

	subject, err := r.subjects.FindByCode(ctx, code)
	if err == nil {
		return subject, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subject by code")
	}

	sharedCode := code
	now := time.Now()
	candidate := &models.Subject{
		ID:                uuid.NewString(),
		Code:              code,
		Name:              strings.TrimSpace(staff.SubjectName),
		Department:        strings.TrimSpace(staff.Department),
		IsShared:          true,
		SharedSubjectCode: &sharedCode,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := r.subjects.Create(ctx, candidate); err != nil {
		if isUniqueViolation(err) {
			r.logger.Debug("lost subject creation race, reusing winner", zap.String("code", code))
			subject, lookupErr := r.subjects.FindByCode(ctx, code)
			if lookupErr != nil {
				return nil, appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload subject after create race")
			}
			return subject, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	return candidate, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
