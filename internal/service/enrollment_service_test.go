package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/policy"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	items     map[string]*models.Enrollment
	createErr error
	updated   []*models.Enrollment
	deleted   []string
}

func newMockEnrollmentRepo(items ...*models.Enrollment) *mockEnrollmentRepo {
	repo := &mockEnrollmentRepo{items: map[string]*models.Enrollment{}}
	for _, e := range items {
		repo.items[e.ID] = e
	}
	return repo
}

func (m *mockEnrollmentRepo) find(studentID, courseID string) *models.Enrollment {
	for _, e := range m.items {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e
		}
	}
	return nil
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string) (bool, error) {
	return m.find(studentID, courseID) != nil, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	m.items[enrollment.ID] = enrollment
	return nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.items[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) LockByStudentAndCourse(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (*models.Enrollment, error) {
	if e := m.find(studentID, courseID); e != nil {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	m.updated = append(m.updated, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.items {
		if e.StudentID == studentID {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.items {
		if e.CourseID == courseID {
			out = append(out, models.EnrollmentDetail{Enrollment: *e, StudentName: "Student " + e.StudentID})
		}
	}
	return out, nil
}

type fakeLectureStore struct {
	lectures map[string]*models.Lecture
}

func (f *fakeLectureStore) FindByID(ctx context.Context, id string) (*models.Lecture, error) {
	if l, ok := f.lectures[id]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLectureStore) CountByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error) {
	count := 0
	for _, l := range f.lectures {
		if l.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func testCourses() *fakeCourseStore {
	return &fakeCourseStore{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", InstructorID: "teacher-1", Title: "Go", Published: true, Active: true},
		"draft":    {ID: "draft", InstructorID: "teacher-1", Title: "Draft", Published: false, Active: true},
		"archived": {ID: "archived", InstructorID: "teacher-1", Title: "Old", Published: true, Active: false},
	}}
}

func testLectures() *fakeLectureStore {
	return &fakeLectureStore{lectures: map[string]*models.Lecture{
		"lec-1": {ID: "lec-1", CourseID: "course-1", Title: "Intro"},
		"lec-2": {ID: "lec-2", CourseID: "course-1", Title: "Types"},
		"lec-x": {ID: "lec-x", CourseID: "draft", Title: "Elsewhere"},
	}}
}

var studentActor = policy.Actor{UserID: "student-1", Role: models.RoleStudent}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := newMockEnrollmentRepo()
	audit := &recordingAudit{}
	svc := NewEnrollmentService(nil, repo, testCourses(), testLectures(), audit, validator.New(), zap.NewNop())

	enrollment, err := svc.Enroll(context.Background(), studentActor, dto.EnrollRequest{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, "student-1", enrollment.StudentID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEnroll, audit.logs[0].Action)

	_, err = svc.Enroll(context.Background(), studentActor, dto.EnrollRequest{CourseID: "course-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollDuplicateRace(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.createErr = repository.ErrDuplicate
	svc := NewEnrollmentService(nil, repo, testCourses(), testLectures(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), studentActor, dto.EnrollRequest{CourseID: "course-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollRejects(t *testing.T) {
	svc := NewEnrollmentService(nil, newMockEnrollmentRepo(), testCourses(), testLectures(), nil, nil, nil)

	cases := []struct {
		name   string
		actor  policy.Actor
		course string
		code   string
	}{
		{"missing course", studentActor, "nope", appErrors.ErrNotFound.Code},
		{"unpublished course", studentActor, "draft", appErrors.ErrNotFound.Code},
		{"inactive course", studentActor, "archived", appErrors.ErrNotFound.Code},
		{"own course", policy.Actor{UserID: "teacher-1", Role: models.RoleTeacher}, "course-1", appErrors.ErrForbidden.Code},
		{"no course id", studentActor, "", appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Enroll(context.Background(), tc.actor, dto.EnrollRequest{CourseID: tc.course})
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestEnrollmentServiceUnenroll(t *testing.T) {
	repo := newMockEnrollmentRepo(&models.Enrollment{ID: "enr-1", StudentID: "student-1", CourseID: "course-1"})
	svc := NewEnrollmentService(nil, repo, testCourses(), testLectures(), nil, nil, nil)

	err := svc.Unenroll(context.Background(), policy.Actor{UserID: "student-2", Role: models.RoleStudent}, "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Unenroll(context.Background(), studentActor, "enr-1"))
	assert.Equal(t, []string{"enr-1"}, repo.deleted)

	err = svc.Unenroll(context.Background(), studentActor, "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUpdateProgress(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := newMockEnrollmentRepo(&models.Enrollment{ID: "enr-1", StudentID: "student-1", CourseID: "course-1", Progress: models.LectureProgress{}})
	svc := NewEnrollmentService(tx, repo, testCourses(), testLectures(), nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()
	enrollment, err := svc.UpdateProgress(context.Background(), studentActor, dto.ProgressRequest{CourseID: "course-1", LectureID: "lec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.CompletionInProgress, enrollment.CompletionStatus)

	mock.ExpectBegin()
	mock.ExpectCommit()
	enrollment, err = svc.UpdateProgress(context.Background(), studentActor, dto.ProgressRequest{CourseID: "course-1", LectureID: "lec-2"})
	require.NoError(t, err)
	assert.Equal(t, models.CompletionCompleted, enrollment.CompletionStatus)
	assert.True(t, enrollment.Progress["lec-1"])
	assert.True(t, enrollment.Progress["lec-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentServiceUpdateProgressRejects(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	repo := newMockEnrollmentRepo()
	svc := NewEnrollmentService(tx, repo, testCourses(), testLectures(), nil, nil, nil)

	_, err := svc.UpdateProgress(context.Background(), studentActor, dto.ProgressRequest{CourseID: "course-1", LectureID: "lec-x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.UpdateProgress(context.Background(), studentActor, dto.ProgressRequest{CourseID: "course-1", LectureID: "lec-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentServiceCourseStudents(t *testing.T) {
	repo := newMockEnrollmentRepo(&models.Enrollment{ID: "enr-1", StudentID: "student-1", CourseID: "course-1"})
	svc := NewEnrollmentService(nil, repo, testCourses(), testLectures(), nil, nil, nil)

	_, err := svc.CourseStudents(context.Background(), studentActor, "course-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	items, err := svc.CourseStudents(context.Background(), policy.Actor{UserID: "teacher-1", Role: models.RoleTeacher}, "course-1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	mine, err := svc.MyCourses(context.Background(), studentActor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
