// Package course holds the course-progress domain: the ordered catalog of
// chapters and lessons, lesson access rules, sequential navigation, and the
// per-learner progress aggregate. It has no storage or transport dependencies;
// services load state, call into this package, and persist the result.
package course

import (
	"fmt"
	"sort"
	"strings"
)

type ResourceType string

const (
	ResourceTypePDF   ResourceType = "pdf"
	ResourceTypeVideo ResourceType = "video"
	ResourceTypeLink  ResourceType = "link"
	ResourceTypeFile  ResourceType = "file"
)

// Valid reports whether t is one of the supported resource kinds.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypePDF, ResourceTypeVideo, ResourceTypeLink, ResourceTypeFile:
		return true
	}
	return false
}

type Resource struct {
	Title string       `json:"title" yaml:"title"`
	Type  ResourceType `json:"type" yaml:"type"`
	URL   string       `json:"url" yaml:"url"`
}

type Lesson struct {
	ID        string     `json:"lessonId" yaml:"lessonId"`
	Title     string     `json:"title" yaml:"title"`
	Order     int        `json:"order" yaml:"order"`
	Duration  int        `json:"duration" yaml:"duration"`
	IsFree    bool       `json:"isFree" yaml:"isFree"`
	Resources []Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
}

type Chapter struct {
	ID      string   `json:"chapterId" yaml:"chapterId"`
	Title   string   `json:"title" yaml:"title"`
	Order   int      `json:"order" yaml:"order"`
	Lessons []Lesson `json:"lessons" yaml:"lessons"`
}

type Course struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Chapters      []Chapter `json:"chapters" yaml:"chapters"`
	TotalLessons  int       `json:"totalLessons" yaml:"totalLessons"`
	TotalDuration int       `json:"totalDuration" yaml:"totalDuration"`
}

// New builds a course and fills in the denormalized totals.
func New(id, title string, chapters []Chapter) *Course {
	c := &Course{ID: id, Title: title, Chapters: chapters}
	c.Recount()
	return c
}

// Recount recomputes TotalLessons and TotalDuration from the chapters.
func (c *Course) Recount() {
	if c == nil {
		return
	}
	lessons, duration := 0, 0
	for _, chapter := range c.Chapters {
		lessons += len(chapter.Lessons)
		for _, lesson := range chapter.Lessons {
			duration += lesson.Duration
		}
	}
	c.TotalLessons = lessons
	c.TotalDuration = duration
}

// Validate checks the catalog invariants: unique chapter ids and orders,
// positive orders, course-wide unique lesson ids, non-negative durations,
// known resource types and consistent totals. Empty chapters are allowed.
func (c *Course) Validate() error {
	if c == nil {
		return malformed("", "course is nil")
	}
	if strings.TrimSpace(c.ID) == "" {
		return malformed(c.ID, "course id is required")
	}

	chapterIDs := make(map[string]struct{}, len(c.Chapters))
	chapterOrders := make(map[int]string, len(c.Chapters))
	lessonIDs := make(map[string]string)
	lessons, duration := 0, 0

	for _, chapter := range c.Chapters {
		if strings.TrimSpace(chapter.ID) == "" {
			return malformed(c.ID, "chapter id is required")
		}
		if _, dup := chapterIDs[chapter.ID]; dup {
			return malformed(c.ID, "duplicate chapter id %q", chapter.ID)
		}
		chapterIDs[chapter.ID] = struct{}{}

		if chapter.Order <= 0 {
			return malformed(c.ID, "chapter %q has non-positive order %d", chapter.ID, chapter.Order)
		}
		if other, dup := chapterOrders[chapter.Order]; dup {
			return malformed(c.ID, "chapters %q and %q share order %d", other, chapter.ID, chapter.Order)
		}
		chapterOrders[chapter.Order] = chapter.ID

		for _, lesson := range chapter.Lessons {
			if strings.TrimSpace(lesson.ID) == "" {
				return malformed(c.ID, "lesson id is required in chapter %q", chapter.ID)
			}
			if owner, dup := lessonIDs[lesson.ID]; dup {
				return malformed(c.ID, "lesson id %q appears in chapters %q and %q", lesson.ID, owner, chapter.ID)
			}
			lessonIDs[lesson.ID] = chapter.ID

			if lesson.Order <= 0 {
				return malformed(c.ID, "lesson %q has non-positive order %d", lesson.ID, lesson.Order)
			}
			if lesson.Duration < 0 {
				return malformed(c.ID, "lesson %q has negative duration", lesson.ID)
			}
			for _, resource := range lesson.Resources {
				if !resource.Type.Valid() {
					return malformed(c.ID, "lesson %q has resource of unknown type %q", lesson.ID, resource.Type)
				}
			}
			lessons++
			duration += lesson.Duration
		}
	}

	if c.TotalLessons != lessons {
		return malformed(c.ID, "totalLessons is %d, chapters hold %d", c.TotalLessons, lessons)
	}
	if c.TotalDuration != duration {
		return malformed(c.ID, "totalDuration is %d, lessons sum to %d", c.TotalDuration, duration)
	}
	return nil
}

// OrderedChapters returns the chapters sorted ascending by Order. Ties keep
// their original sequence. The course itself is not modified.
func OrderedChapters(c *Course) []Chapter {
	if c == nil {
		return nil
	}
	chapters := make([]Chapter, len(c.Chapters))
	copy(chapters, c.Chapters)
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Order < chapters[j].Order
	})
	return chapters
}

// OrderedLessons returns the chapter's lessons sorted ascending by Order.
// Ties keep their original sequence.
func OrderedLessons(chapter Chapter) []Lesson {
	lessons := make([]Lesson, len(chapter.Lessons))
	copy(lessons, chapter.Lessons)
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Order < lessons[j].Order
	})
	return lessons
}

// FindLesson locates a lesson anywhere in the course.
func (c *Course) FindLesson(lessonID string) (Chapter, Lesson, bool) {
	if c == nil {
		return Chapter{}, Lesson{}, false
	}
	for _, chapter := range c.Chapters {
		for _, lesson := range chapter.Lessons {
			if lesson.ID == lessonID {
				return chapter, lesson, true
			}
		}
	}
	return Chapter{}, Lesson{}, false
}

// HasLesson reports whether lessonID exists in any chapter.
func (c *Course) HasLesson(lessonID string) bool {
	_, _, ok := c.FindLesson(lessonID)
	return ok
}

func (c *Course) String() string {
	if c == nil {
		return "<nil course>"
	}
	return fmt.Sprintf("course %q (%d chapters, %d lessons)", c.ID, len(c.Chapters), c.TotalLessons)
}
