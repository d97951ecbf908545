package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/coe-exam-api/internal/models"
)

type mockResolverSubjectRepo struct {
	byCode    map[string]*models.Subject
	createErr error
	created   []*models.Subject
}

func (m *mockResolverSubjectRepo) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	if s, ok := m.byCode[code]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResolverSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.byCode == nil {
		m.byCode = make(map[string]*models.Subject)
	}
	m.byCode[subject.Code] = subject
	m.created = append(m.created, subject)
	return nil
}

func TestSubjectResolverFindsExisting(t *testing.T) {
	existing := &models.Subject{ID: "sub-1", Code: "MA8351", Name: "Discrete Mathematics", Department: "CSE"}
	repo := &mockResolverSubjectRepo{byCode: map[string]*models.Subject{"MA8351": existing}}
	resolver := NewSubjectResolver(repo, zap.NewNop())

	subject, err := resolver.Resolve(context.Background(), &models.Staff{SubjectCode: "MA8351", SubjectName: "Discrete Mathematics", Department: "ECE"})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", subject.ID)
	assert.Empty(t, repo.created)
}

func TestSubjectResolverCreatesMissing(t *testing.T) {
	repo := &mockResolverSubjectRepo{}
	resolver := NewSubjectResolver(repo, zap.NewNop())

	subject, err := resolver.Resolve(context.Background(), &models.Staff{SubjectCode: " MA8351 ", SubjectName: "Discrete Mathematics", Department: "CSE"})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "MA8351", subject.Code)
	assert.Equal(t, "Discrete Mathematics", subject.Name)
	assert.True(t, subject.IsShared)
	require.NotNil(t, subject.SharedSubjectCode)
	assert.Equal(t, "MA8351", *subject.SharedSubjectCode)
	assert.NotEmpty(t, subject.ID)
}

func TestSubjectResolverRetriesAfterUniqueViolation(t *testing.T) {
	winner := &models.Subject{ID: "sub-winner", Code: "MA8351", Name: "Discrete Mathematics", Department: "ECE"}
	resolver := NewSubjectResolver(&raceRepo{winner: winner}, zap.NewNop())

	subject, err := resolver.Resolve(context.Background(), &models.Staff{SubjectCode: "MA8351", SubjectName: "Discrete Mathematics", Department: "CSE"})
	require.NoError(t, err)
	assert.Equal(t, "sub-winner", subject.ID)
}

func TestSubjectResolverRejectsBlankCode(t *testing.T) {
	resolver := NewSubjectResolver(&mockResolverSubjectRepo{}, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), &models.Staff{SubjectCode: "  ", SubjectName: "Discrete Mathematics"})
	assert.Error(t, err)
}

// raceRepo simulates another writer landing the row between the first
// lookup and the create: FindByCode misses once, the create hits the
// unique index, and the retry lookup sees the winner.
type raceRepo struct {
	winner  *models.Subject
	lookups int
}

func (r *raceRepo) FindByCode(ctx context.Context, code string) (*models.Subject, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, sql.ErrNoRows
	}
	return r.winner, nil
}

func (r *raceRepo) Create(ctx context.Context, subject *models.Subject) error {
	return &pq.Error{Code: "23505"}
}
