package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"academy-backend/internal/models"
	"academy-backend/internal/repository"
	"academy-backend/pkg/logger"
)

// GuestPrefix marks learner ids issued to anonymous visitors. Guests never hold
// paid access.
const GuestPrefix = "guest:"

type AccessService struct {
	repo        repository.AccessRepository
	catalogRepo repository.CatalogRepository
	now         func() time.Time
}

func NewAccessService(repo repository.AccessRepository, catalogRepo repository.CatalogRepository) *AccessService {
	return &AccessService{repo: repo, catalogRepo: catalogRepo, now: time.Now}
}

func IsGuest(learnerID string) bool {
	return strings.HasPrefix(learnerID, GuestPrefix)
}

func (s *AccessService) HasPaidAccess(ctx context.Context, learnerID, courseID string) (bool, error) {
	if s == nil || s.repo == nil {
		return false, errors.New("course access repository is not configured")
	}
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" || IsGuest(learnerID) {
		return false, nil
	}

	access, err := s.repo.GetByLearnerAndCourse(ctx, learnerID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return access.ActiveAt(s.now()), nil
}

func (s *AccessService) Grant(ctx context.Context, courseID string, req models.GrantAccessRequest, grantedBy string) (*models.CourseAccess, error) {
	if s == nil || s.repo == nil || s.catalogRepo == nil {
		return nil, errors.New("course access repository is not configured")
	}

	learnerID := strings.TrimSpace(req.LearnerID)
	if learnerID == "" {
		return nil, newValidationError("learner id is required")
	}
	if IsGuest(learnerID) {
		return nil, newValidationError("guest learners cannot receive course access")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, newValidationError("access expiry must be in the future")
	}

	exists, err := s.catalogRepo.Exists(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}

	access := &models.CourseAccess{
		LearnerID: learnerID,
		CourseID:  courseID,
		GrantedBy: grantedBy,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.repo.Upsert(ctx, access); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"course_id":  courseID,
		"learner_id": learnerID,
		"granted_by": grantedBy,
	}).Info("Course access granted")

	return s.repo.GetByLearnerAndCourse(ctx, learnerID, courseID)
}

func (s *AccessService) Revoke(ctx context.Context, courseID, learnerID string) error {
	if s == nil || s.repo == nil {
		return errors.New("course access repository is not configured")
	}
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return newValidationError("learner id is required")
	}
	if err := s.repo.Delete(ctx, learnerID, courseID); err != nil {
		return err
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"course_id":  courseID,
		"learner_id": learnerID,
	}).Info("Course access revoked")
	return nil
}
