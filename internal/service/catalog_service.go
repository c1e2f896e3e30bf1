package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"academy-backend/internal/course"
	"academy-backend/internal/models"
	"academy-backend/internal/repository"
	"academy-backend/pkg/cache"
	"academy-backend/pkg/logger"
	"academy-backend/pkg/validator"
)

const defaultCatalogTTL = 10 * time.Minute

type CatalogService struct {
	repo  repository.CatalogRepository
	cache *cache.Cache
	ttl   time.Duration
}

func NewCatalogService(repo repository.CatalogRepository, cacheService *cache.Cache, ttl time.Duration) *CatalogService {
	initMetrics()
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &CatalogService{repo: repo, cache: cacheService, ttl: ttl}
}

func (s *CatalogService) ready() error {
	if s == nil || s.repo == nil {
		return errors.New("catalog repository is not configured")
	}
	return nil
}

// Load returns the validated course. Cached copies are served when the cache
// is enabled; a stored course that breaks the catalog invariants yields a
// MalformedCourseError.
func (s *CatalogService) Load(ctx context.Context, courseID string) (*course.Course, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, newValidationError("course id is required")
	}

	if s.cache.Enabled() {
		var cached course.Course
		if err := s.cache.GetCachedCourse(ctx, courseID, &cached); err == nil && cached.ID == courseID {
			catalogLoadsTotal.WithLabelValues("cache").Inc()
			return &cached, nil
		} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx).WithError(err).WithField("course_id", courseID).Warn("Failed to read course from cache")
		}
	}

	c, err := s.loadStored(ctx, courseID)
	if err != nil {
		return nil, err
	}
	catalogLoadsTotal.WithLabelValues("store").Inc()

	if err := c.Validate(); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("course_id", courseID).Error("Stored course violates catalog invariants")
		return nil, err
	}

	if err := s.cache.CacheCourse(ctx, courseID, c, s.ttl); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("course_id", courseID).Warn("Failed to cache course")
	}
	return c, nil
}

func (s *CatalogService) loadStored(ctx context.Context, courseID string) (*course.Course, error) {
	record, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return record.ToDomain(), nil
}

func (s *CatalogService) List(ctx context.Context) ([]models.Course, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		var cached []models.Course
		if err := s.cache.GetCachedCourseList(ctx, &cached); err == nil {
			return cached, nil
		}
	}

	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.CacheCourseList(ctx, courses, s.ttl); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to cache course list")
	}
	return courses, nil
}

func (s *CatalogService) IDs(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.repo.ListIDs(ctx)
}

// Import stores a complete course tree unless a course with the same id already
// exists. It reports whether the course was written.
func (s *CatalogService) Import(ctx context.Context, c *course.Course) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if c == nil {
		return false, newValidationError("course is required")
	}
	c.Recount()
	if err := c.Validate(); err != nil {
		return false, newValidationError("%v", err)
	}

	exists, err := s.repo.Exists(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.repo.Replace(ctx, models.FromDomain(c)); err != nil {
		return false, err
	}
	s.invalidate(ctx, c.ID)
	return true, nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, req models.CreateCourseRequest) (*course.Course, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if !validator.ValidateIdentifier(id) {
		return nil, newValidationError("course id %q is invalid", req.ID)
	}
	title, err := cleanTitle(req.Title, "course")
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newValidationError("course %q already exists", id)
	}

	record := &models.Course{
		ID:          id,
		Title:       title,
		Description: validator.SanitizeString(req.Description),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if isDuplicateKeyError(err) {
			return nil, newValidationError("course %q already exists", id)
		}
		return nil, err
	}
	s.invalidate(ctx, id)

	return s.Load(ctx, id)
}

func (s *CatalogService) UpdateCourse(ctx context.Context, courseID string, req models.UpdateCourseRequest) (*course.Course, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title, err := cleanTitle(*req.Title, "course")
		if err != nil {
			return nil, err
		}
		record.Title = title
	}
	if req.Description != nil {
		record.Description = validator.SanitizeString(*req.Description)
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	s.invalidate(ctx, courseID)

	return s.Load(ctx, courseID)
}

func (s *CatalogService) DeleteCourse(ctx context.Context, courseID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, courseID); err != nil {
		return err
	}
	s.invalidate(ctx, courseID)
	return nil
}

func (s *CatalogService) CreateChapter(ctx context.Context, courseID string, req models.CreateChapterRequest) (*course.Course, error) {
	id := strings.TrimSpace(req.ID)
	if !validator.ValidateIdentifier(id) {
		return nil, newValidationError("chapter id %q is invalid", req.ID)
	}
	title, err := cleanTitle(req.Title, "chapter")
	if err != nil {
		return nil, err
	}

	row := &models.Chapter{ID: id, CourseID: courseID, Title: title, Order: req.Order}
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		if _, ok := findChapter(c, id); ok {
			return newValidationError("chapter %q already exists", id)
		}
		if row.Order <= 0 {
			row.Order = nextChapterOrder(c)
		}
		c.Chapters = append(c.Chapters, course.Chapter{ID: id, Title: title, Order: row.Order})
		return nil
	}, func() error {
		return s.repo.CreateChapter(ctx, row)
	})
}

func (s *CatalogService) UpdateChapter(ctx context.Context, courseID, chapterID string, req models.UpdateChapterRequest) (*course.Course, error) {
	row := &models.Chapter{ID: chapterID, CourseID: courseID}
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		idx, ok := findChapter(c, chapterID)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		chapter := &c.Chapters[idx]
		if req.Title != nil {
			title, err := cleanTitle(*req.Title, "chapter")
			if err != nil {
				return err
			}
			chapter.Title = title
		}
		if req.Order != nil {
			chapter.Order = *req.Order
		}
		row.Title = chapter.Title
		row.Order = chapter.Order
		return nil
	}, func() error {
		return s.repo.UpdateChapter(ctx, row)
	})
}

func (s *CatalogService) DeleteChapter(ctx context.Context, courseID, chapterID string) (*course.Course, error) {
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		idx, ok := findChapter(c, chapterID)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		c.Chapters = append(c.Chapters[:idx], c.Chapters[idx+1:]...)
		return nil
	}, func() error {
		return s.repo.DeleteChapter(ctx, courseID, chapterID)
	})
}

// ReorderChapters rewrites chapter orders to 1..n following chapterIDs, which
// must list every chapter of the course exactly once.
func (s *CatalogService) ReorderChapters(ctx context.Context, courseID string, chapterIDs []string) (*course.Course, error) {
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		existing := make([]string, 0, len(c.Chapters))
		for _, chapter := range c.Chapters {
			existing = append(existing, chapter.ID)
		}
		if err := samePermutation(existing, chapterIDs, "chapter"); err != nil {
			return err
		}
		for order, id := range chapterIDs {
			idx, _ := findChapter(c, id)
			c.Chapters[idx].Order = order + 1
		}
		return nil
	}, func() error {
		return s.repo.ReorderChapters(ctx, courseID, chapterIDs)
	})
}

func (s *CatalogService) CreateLesson(ctx context.Context, courseID, chapterID string, req models.CreateLessonRequest) (*course.Course, error) {
	id := strings.TrimSpace(req.ID)
	if !validator.ValidateIdentifier(id) {
		return nil, newValidationError("lesson id %q is invalid", req.ID)
	}
	title, err := cleanTitle(req.Title, "lesson")
	if err != nil {
		return nil, err
	}
	if req.Duration < 0 {
		return nil, newValidationError("lesson duration must be zero or positive")
	}
	resources, err := buildResources(req.Resources)
	if err != nil {
		return nil, err
	}

	row := &models.Lesson{
		ID:        id,
		CourseID:  courseID,
		ChapterID: chapterID,
		Title:     title,
		Order:     req.Order,
		Duration:  req.Duration,
		IsFree:    req.IsFree,
		Resources: models.Resources(resources),
	}
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		idx, ok := findChapter(c, chapterID)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		if c.HasLesson(id) {
			return newValidationError("lesson %q already exists in course %q", id, courseID)
		}
		chapter := &c.Chapters[idx]
		if row.Order <= 0 {
			row.Order = nextLessonOrder(*chapter)
		}
		chapter.Lessons = append(chapter.Lessons, row.ToDomain())
		return nil
	}, func() error {
		return s.repo.CreateLesson(ctx, row)
	})
}

func (s *CatalogService) UpdateLesson(ctx context.Context, courseID, lessonID string, req models.UpdateLessonRequest) (*course.Course, error) {
	var row *models.Lesson
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		chapterIdx, lessonIdx, ok := findLesson(c, lessonID)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		lesson := &c.Chapters[chapterIdx].Lessons[lessonIdx]
		if req.Title != nil {
			title, err := cleanTitle(*req.Title, "lesson")
			if err != nil {
				return err
			}
			lesson.Title = title
		}
		if req.Order != nil {
			lesson.Order = *req.Order
		}
		if req.Duration != nil {
			if *req.Duration < 0 {
				return newValidationError("lesson duration must be zero or positive")
			}
			lesson.Duration = *req.Duration
		}
		if req.IsFree != nil {
			lesson.IsFree = *req.IsFree
		}
		if req.Resources != nil {
			resources, err := buildResources(req.Resources)
			if err != nil {
				return err
			}
			lesson.Resources = resources
		}

		row = &models.Lesson{
			ID:        lesson.ID,
			CourseID:  courseID,
			ChapterID: c.Chapters[chapterIdx].ID,
			Title:     lesson.Title,
			Order:     lesson.Order,
			Duration:  lesson.Duration,
			IsFree:    lesson.IsFree,
			Resources: models.Resources(lesson.Resources),
		}
		return nil
	}, func() error {
		return s.repo.UpdateLesson(ctx, row)
	})
}

func (s *CatalogService) DeleteLesson(ctx context.Context, courseID, lessonID string) (*course.Course, error) {
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		chapterIdx, lessonIdx, ok := findLesson(c, lessonID)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		lessons := c.Chapters[chapterIdx].Lessons
		c.Chapters[chapterIdx].Lessons = append(lessons[:lessonIdx], lessons[lessonIdx+1:]...)
		return nil
	}, func() error {
		return s.repo.DeleteLesson(ctx, courseID, lessonID)
	})
}

func (s *CatalogService) ReorderLessons(ctx context.Context, courseID, chapterID string, lessonIDs []string) (*course.Course, error) {
	return s.mutate(ctx, courseID, func(c *course.Course) error {
		idx, ok := findChapter(c, chapterID)
		if !ok {
			return gorm.ErrRecordNotFound
		}
		chapter := &c.Chapters[idx]
		existing := make([]string, 0, len(chapter.Lessons))
		for _, lesson := range chapter.Lessons {
			existing = append(existing, lesson.ID)
		}
		if err := samePermutation(existing, lessonIDs, "lesson"); err != nil {
			return err
		}
		positions := make(map[string]int, len(lessonIDs))
		for order, id := range lessonIDs {
			positions[id] = order + 1
		}
		for i := range chapter.Lessons {
			chapter.Lessons[i].Order = positions[chapter.Lessons[i].ID]
		}
		return nil
	}, func() error {
		return s.repo.ReorderLessons(ctx, courseID, chapterID, lessonIDs)
	})
}

func (s *CatalogService) FlushCache(ctx context.Context) error {
	if s == nil {
		return errors.New("catalog service is not configured")
	}
	return s.cache.InvalidateCourses(ctx)
}

// mutate applies an edit to the stored course, checks that the result still
// satisfies the catalog invariants and only then persists it.
func (s *CatalogService) mutate(ctx context.Context, courseID string, apply func(c *course.Course) error, persist func() error) (*course.Course, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	c, err := s.loadStored(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := apply(c); err != nil {
		return nil, err
	}
	c.Recount()
	if err := c.Validate(); err != nil {
		return nil, newValidationError("%v", err)
	}

	if err := persist(); err != nil {
		if isDuplicateKeyError(err) {
			return nil, newValidationError("an entry with the same id already exists")
		}
		return nil, err
	}
	s.invalidate(ctx, courseID)

	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"course_id":     courseID,
		"total_lessons": c.TotalLessons,
	}).Info("Course catalog updated")

	return s.Load(ctx, courseID)
}

func (s *CatalogService) invalidate(ctx context.Context, courseID string) {
	if err := s.cache.InvalidateCourse(ctx, courseID); err != nil {
		logger.FromContext(ctx).WithError(err).WithField("course_id", courseID).Warn("Failed to invalidate course cache")
	}
}

func cleanTitle(value, kind string) (string, error) {
	title := validator.SanitizeString(value)
	if title == "" {
		return "", newValidationError("%s title is required", kind)
	}
	return title, nil
}

func buildResources(requests []models.ResourceRequest) ([]course.Resource, error) {
	resources := make([]course.Resource, 0, len(requests))
	for _, req := range requests {
		resourceType := course.ResourceType(strings.ToLower(strings.TrimSpace(req.Type)))
		if !resourceType.Valid() {
			return nil, newValidationError("resource type %q is not supported", req.Type)
		}
		title, err := cleanTitle(req.Title, "resource")
		if err != nil {
			return nil, err
		}
		resources = append(resources, course.Resource{
			Title: title,
			Type:  resourceType,
			URL:   strings.TrimSpace(req.URL),
		})
	}
	return resources, nil
}

func findChapter(c *course.Course, chapterID string) (int, bool) {
	for i, chapter := range c.Chapters {
		if chapter.ID == chapterID {
			return i, true
		}
	}
	return -1, false
}

func findLesson(c *course.Course, lessonID string) (int, int, bool) {
	for i, chapter := range c.Chapters {
		for j, lesson := range chapter.Lessons {
			if lesson.ID == lessonID {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

func nextChapterOrder(c *course.Course) int {
	highest := 0
	for _, chapter := range c.Chapters {
		if chapter.Order > highest {
			highest = chapter.Order
		}
	}
	return highest + 1
}

func nextLessonOrder(chapter course.Chapter) int {
	highest := 0
	for _, lesson := range chapter.Lessons {
		if lesson.Order > highest {
			highest = lesson.Order
		}
	}
	return highest + 1
}

func samePermutation(existing, requested []string, kind string) error {
	if len(existing) != len(requested) {
		return newValidationError("expected %d %s ids, got %d", len(existing), kind, len(requested))
	}
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		if !known[id] {
			return newValidationError("%s %q does not belong here", kind, id)
		}
		if seen[id] {
			return newValidationError("%s %q is listed twice", kind, id)
		}
		seen[id] = true
	}
	return nil
}
