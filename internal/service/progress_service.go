package service

import (
	"context"
	"errors"
	"strings"

	"academy-backend/internal/course"
	"academy-backend/internal/models"
	"academy-backend/internal/repository"
	"academy-backend/pkg/logger"
)

// CourseCatalog is the read side of the catalog used by progress tracking.
type CourseCatalog interface {
	CourseLoader
	IDs(ctx context.Context) ([]string, error)
}

type ProgressService struct {
	catalog CourseCatalog
	access  AccessChecker
	repo    repository.ProgressRepository
	tracker course.Tracker
}

func NewProgressService(catalog CourseCatalog, access AccessChecker, repo repository.ProgressRepository, threshold float64) *ProgressService {
	initMetrics()
	return &ProgressService{
		catalog: catalog,
		access:  access,
		repo:    repo,
		tracker: course.NewTracker(threshold),
	}
}

// CourseView is what a learner sees when opening a course.
type CourseView struct {
	Course        *course.Course   `json:"course"`
	HasPaidAccess bool             `json:"hasPaidAccess"`
	LockedLessons map[string]bool  `json:"lockedLessons"`
	FirstLesson   *course.Position `json:"firstLesson,omitempty"`
	Progress      course.Document  `json:"progress"`
}

// NavigationResult carries the lesson after (or before) From. AtEnd is set
// when there is no lesson in that direction.
type NavigationResult struct {
	From   course.Position  `json:"from"`
	Lesson *course.Position `json:"lesson,omitempty"`
	AtEnd  bool             `json:"atEnd"`
}

func (s *ProgressService) ready() error {
	if s == nil || s.catalog == nil || s.access == nil || s.repo == nil {
		return errors.New("progress service is not configured")
	}
	return nil
}

func (s *ProgressService) CourseView(ctx context.Context, courseID, learnerID string) (*CourseView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	c, paid, err := s.resolve(ctx, courseID, learnerID)
	if err != nil {
		return nil, err
	}
	partition, err := s.repo.Get(ctx, courseID, learnerID)
	if err != nil {
		return nil, err
	}
	progress := models.ProgressToDomain(courseID, learnerID, &partition.State, partition.Records)

	view := &CourseView{
		Course:        c,
		HasPaidAccess: paid,
		LockedLessons: course.LockedLessons(c, paid),
		Progress:      course.BuildDocument(c, progress),
	}
	if first, err := course.FirstLesson(c); err == nil {
		view.FirstLesson = &first
	}
	return view, nil
}

func (s *ProgressService) SelectLesson(ctx context.Context, courseID, learnerID string, pos course.Position) (*course.Document, error) {
	return s.apply(ctx, "select", courseID, learnerID, func(c *course.Course, p *course.Progress, paid bool) (course.LessonProgress, error) {
		return s.tracker.Select(c, p, pos, paid)
	})
}

func (s *ProgressService) RecordProgress(ctx context.Context, courseID, learnerID, lessonID string, watchedPercent float64) (*course.Document, error) {
	return s.apply(ctx, "progress", courseID, learnerID, func(c *course.Course, p *course.Progress, paid bool) (course.LessonProgress, error) {
		return s.tracker.RecordProgress(c, p, lessonID, watchedPercent, paid)
	})
}

func (s *ProgressService) MarkComplete(ctx context.Context, courseID, learnerID, lessonID string) (*course.Document, error) {
	return s.apply(ctx, "complete", courseID, learnerID, func(c *course.Course, p *course.Progress, paid bool) (course.LessonProgress, error) {
		return s.tracker.MarkComplete(c, p, lessonID, paid)
	})
}

func (s *ProgressService) GetProgress(ctx context.Context, courseID, learnerID string) (*course.Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(learnerID) == "" {
		return nil, newValidationError("learner id is required")
	}

	c, err := s.catalog.Load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	partition, err := s.repo.Get(ctx, courseID, learnerID)
	if err != nil {
		return nil, err
	}

	doc := course.BuildDocument(c, models.ProgressToDomain(courseID, learnerID, &partition.State, partition.Records))
	return &doc, nil
}

func (s *ProgressService) NextLesson(ctx context.Context, courseID string, pos course.Position) (*NavigationResult, error) {
	return s.navigate(ctx, courseID, pos, course.NextLesson)
}

func (s *ProgressService) PreviousLesson(ctx context.Context, courseID string, pos course.Position) (*NavigationResult, error) {
	return s.navigate(ctx, courseID, pos, course.PreviousLesson)
}

func (s *ProgressService) navigate(
	ctx context.Context,
	courseID string,
	pos course.Position,
	step func(c *course.Course, chapterID, lessonID string) (course.Position, bool, error),
) (*NavigationResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	c, err := s.catalog.Load(ctx, courseID)
	if err != nil {
		return nil, err
	}

	target, ok, err := step(c, pos.ChapterID, pos.LessonID)
	if err != nil {
		return nil, err
	}
	result := &NavigationResult{From: pos, AtEnd: !ok}
	if ok {
		result.Lesson = &target
	}
	return result, nil
}

// Reconcile recomputes the stored aggregate of every partition of the course
// and rewrites those that drifted. It returns how many were corrected.
func (s *ProgressService) Reconcile(ctx context.Context, courseID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	c, err := s.catalog.Load(ctx, courseID)
	if err != nil {
		return 0, err
	}
	learners, err := s.repo.ListLearners(ctx, courseID)
	if err != nil {
		return 0, err
	}

	drifted := 0
	for _, learnerID := range learners {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		err := s.repo.WithPartition(ctx, courseID, learnerID, func(partition *repository.Partition) error {
			records := make([]course.LessonProgress, 0, len(partition.Records))
			for _, record := range partition.Records {
				records = append(records, record.ToDomain())
			}
			summary := course.ComputeOverallProgress(c, records)
			if summary.CompletedLessons == partition.State.CompletedLessons &&
				summary.OverallProgress == partition.State.OverallProgress {
				return nil
			}
			drifted++
			partition.State.CompletedLessons = summary.CompletedLessons
			partition.State.OverallProgress = summary.OverallProgress
			return nil
		})
		if err != nil {
			return drifted, err
		}
	}

	if drifted > 0 {
		logger.FromContext(ctx).WithFields(map[string]interface{}{
			"course_id": courseID,
			"drifted":   drifted,
		}).Warn("Corrected drifted course progress")
	}
	return drifted, nil
}

// ReconcileAll runs Reconcile for every catalog course and returns the number
// of corrected partitions. Malformed courses are skipped and logged.
func (s *ProgressService) ReconcileAll(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	ids, err := s.catalog.IDs(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, id := range ids {
		drifted, err := s.Reconcile(ctx, id)
		total += drifted
		if err != nil {
			if course.IsMalformedCourse(err) {
				logger.FromContext(ctx).WithError(err).WithField("course_id", id).Warn("Skipping malformed course during reconciliation")
				continue
			}
			return total, err
		}
	}

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"courses": len(ids),
		"drifted": total,
	}).Info("Progress reconciliation finished")
	return total, nil
}

type progressMutation func(c *course.Course, p *course.Progress, paid bool) (course.LessonProgress, error)

// apply runs a progress event inside the partition lock. A rejected event
// rolls back, leaving the stored progress untouched.
func (s *ProgressService) apply(ctx context.Context, event, courseID, learnerID string, mutation progressMutation) (doc *course.Document, err error) {
	defer func() {
		progressEventsTotal.WithLabelValues(event, outcomeLabel(err)).Inc()
	}()

	if err := s.ready(); err != nil {
		return nil, err
	}

	c, paid, err := s.resolve(ctx, courseID, learnerID)
	if err != nil {
		return nil, err
	}

	entry := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"event":      event,
		"course_id":  courseID,
		"learner_id": learnerID,
	})

	var result course.Document
	err = s.repo.WithPartition(ctx, courseID, learnerID, func(partition *repository.Partition) error {
		progress := models.ProgressToDomain(courseID, learnerID, &partition.State, partition.Records)
		before := completedSet(progress)

		record, err := mutation(c, progress, paid)
		if err != nil {
			return err
		}

		writeBack(c, progress, partition)
		result = course.BuildDocument(c, progress)

		if record.Completed && !before[record.LessonID] {
			lessonsCompletedTotal.WithLabelValues(courseID).Inc()
			entry.WithField("lesson_id", record.LessonID).Info("Lesson completed")
		}
		return nil
	})
	if err != nil {
		switch {
		case course.IsUnknownLesson(err):
			entry.WithError(err).Warn("Progress event for unknown lesson")
		case course.IsAccessDenied(err):
			entry.WithError(err).Debug("Progress event for locked lesson")
		case course.IsMalformedCourse(err):
			entry.WithError(err).Error("Progress event against malformed course")
		}
		return nil, err
	}
	return &result, nil
}

func (s *ProgressService) resolve(ctx context.Context, courseID, learnerID string) (*course.Course, bool, error) {
	if strings.TrimSpace(learnerID) == "" {
		return nil, false, newValidationError("learner id is required")
	}
	c, err := s.catalog.Load(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	paid, err := s.access.HasPaidAccess(ctx, learnerID, courseID)
	if err != nil {
		return nil, false, err
	}
	return c, paid, nil
}

func completedSet(p *course.Progress) map[string]bool {
	set := make(map[string]bool)
	for _, record := range p.Records() {
		if record.Completed {
			set[record.LessonID] = true
		}
	}
	return set
}

// writeBack copies the domain progress and its recomputed aggregate into the
// stored partition.
func writeBack(c *course.Course, p *course.Progress, partition *repository.Partition) {
	records := p.Records()
	partition.Records = make([]models.LessonProgress, 0, len(records))
	for _, record := range records {
		partition.Records = append(partition.Records, models.LessonProgress{
			CourseID:       p.CourseID,
			LearnerID:      p.LearnerID,
			LessonID:       record.LessonID,
			Completed:      record.Completed,
			WatchedPercent: record.WatchedPercent,
		})
	}

	if p.Current != nil {
		partition.State.CurrentChapterID = p.Current.ChapterID
		partition.State.CurrentLessonID = p.Current.LessonID
	}

	summary := course.ComputeOverallProgress(c, records)
	partition.State.CompletedLessons = summary.CompletedLessons
	partition.State.OverallProgress = summary.OverallProgress
}
