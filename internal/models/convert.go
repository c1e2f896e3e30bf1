package models

import (
	"academy-backend/internal/course"
)

// ToDomain converts a course loaded with Chapters.Lessons into the catalog
// model used by navigation and progress. Stored totals are ignored and
// recomputed from the loaded lessons.
func (c *Course) ToDomain() *course.Course {
	if c == nil {
		return nil
	}

	chapters := make([]course.Chapter, 0, len(c.Chapters))
	for _, chapter := range c.Chapters {
		lessons := make([]course.Lesson, 0, len(chapter.Lessons))
		for _, lesson := range chapter.Lessons {
			lessons = append(lessons, lesson.ToDomain())
		}
		chapters = append(chapters, course.Chapter{
			ID:      chapter.ID,
			Title:   chapter.Title,
			Order:   chapter.Order,
			Lessons: lessons,
		})
	}

	return course.New(c.ID, c.Title, chapters)
}

func (l Lesson) ToDomain() course.Lesson {
	resources := make([]course.Resource, len(l.Resources))
	copy(resources, l.Resources)
	return course.Lesson{
		ID:        l.ID,
		Title:     l.Title,
		Order:     l.Order,
		Duration:  l.Duration,
		IsFree:    l.IsFree,
		Resources: resources,
	}
}

// FromDomain builds the persistence rows for a catalog course.
func FromDomain(c *course.Course) *Course {
	if c == nil {
		return nil
	}

	record := &Course{
		ID:            c.ID,
		Title:         c.Title,
		TotalLessons:  c.TotalLessons,
		TotalDuration: c.TotalDuration,
		Chapters:      make([]Chapter, 0, len(c.Chapters)),
	}
	for _, chapter := range c.Chapters {
		row := Chapter{
			ID:       chapter.ID,
			CourseID: c.ID,
			Title:    chapter.Title,
			Order:    chapter.Order,
			Lessons:  make([]Lesson, 0, len(chapter.Lessons)),
		}
		for _, lesson := range chapter.Lessons {
			row.Lessons = append(row.Lessons, Lesson{
				ID:        lesson.ID,
				CourseID:  c.ID,
				ChapterID: chapter.ID,
				Title:     lesson.Title,
				Order:     lesson.Order,
				Duration:  lesson.Duration,
				IsFree:    lesson.IsFree,
				Resources: Resources(lesson.Resources),
			})
		}
		record.Chapters = append(record.Chapters, row)
	}
	return record
}

func (p LessonProgress) ToDomain() course.LessonProgress {
	return course.LessonProgress{
		LessonID:       p.LessonID,
		Completed:      p.Completed,
		WatchedPercent: p.WatchedPercent,
	}
}

// ProgressToDomain assembles a partition from its stored rows. state may be nil
// when the learner never touched the course.
func ProgressToDomain(courseID, learnerID string, state *CourseProgress, records []LessonProgress) *course.Progress {
	domain := make([]course.LessonProgress, 0, len(records))
	for _, record := range records {
		domain = append(domain, record.ToDomain())
	}

	progress := course.NewProgress(courseID, learnerID, domain...)
	if state != nil && state.CurrentLessonID != "" {
		progress.Current = &course.Position{
			ChapterID: state.CurrentChapterID,
			LessonID:  state.CurrentLessonID,
		}
	}
	return progress
}
