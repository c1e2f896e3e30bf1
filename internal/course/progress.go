package course

import (
	"math"
	"sort"
)

// DefaultCompletionThreshold is the watched percentage at which a lesson
// counts as completed.
const DefaultCompletionThreshold = 90.0

type LessonProgress struct {
	LessonID       string  `json:"lessonId"`
	Completed      bool    `json:"completed"`
	WatchedPercent float64 `json:"watchedPercent"`
}

// Progress is the state of one (course, learner) partition: the current
// lesson and the per-lesson records. It is not safe for concurrent use;
// callers serialize writes per partition.
type Progress struct {
	CourseID  string
	LearnerID string
	Current   *Position
	Lessons   map[string]LessonProgress
}

func NewProgress(courseID, learnerID string, records ...LessonProgress) *Progress {
	p := &Progress{
		CourseID:  courseID,
		LearnerID: learnerID,
		Lessons:   make(map[string]LessonProgress, len(records)),
	}
	for _, record := range records {
		p.Lessons[record.LessonID] = record
	}
	return p
}

func (p *Progress) Lesson(lessonID string) (LessonProgress, bool) {
	if p == nil || p.Lessons == nil {
		return LessonProgress{}, false
	}
	record, ok := p.Lessons[lessonID]
	return record, ok
}

// Records returns the lesson records sorted by lesson id.
func (p *Progress) Records() []LessonProgress {
	if p == nil {
		return nil
	}
	records := make([]LessonProgress, 0, len(p.Lessons))
	for _, record := range p.Lessons {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].LessonID < records[j].LessonID
	})
	return records
}

func (p *Progress) put(record LessonProgress) {
	if p.Lessons == nil {
		p.Lessons = make(map[string]LessonProgress)
	}
	p.Lessons[record.LessonID] = record
}

// Tracker applies selection and playback events to a Progress.
type Tracker struct {
	threshold float64
}

// NewTracker returns a tracker completing lessons at the given watched
// percentage. Values outside (0, 100] fall back to the default.
func NewTracker(threshold float64) Tracker {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 100 {
		threshold = DefaultCompletionThreshold
	}
	return Tracker{threshold: threshold}
}

func (t Tracker) Threshold() float64 {
	if t.threshold == 0 {
		return DefaultCompletionThreshold
	}
	return t.threshold
}

// Select makes the lesson at pos the learner's current lesson and creates an
// empty record for it if none exists. A locked lesson is rejected with an
// AccessDeniedError and leaves the progress untouched. p must not be nil.
func (t Tracker) Select(c *Course, p *Progress, pos Position, hasPaidAccess bool) (LessonProgress, error) {
	if p == nil {
		return LessonProgress{}, ErrNilProgress
	}
	lesson, err := Locate(c, pos)
	if err != nil {
		return LessonProgress{}, err
	}
	if !CanAccess(lesson, hasPaidAccess) {
		return LessonProgress{}, &AccessDeniedError{LessonID: lesson.ID}
	}

	current := pos
	p.Current = &current

	record, ok := p.Lesson(lesson.ID)
	if !ok {
		record = LessonProgress{LessonID: lesson.ID}
		p.put(record)
	}
	return record, nil
}

// RecordProgress folds a playback event into the lesson record. The watched
// percentage is clamped to [0, 100] and never moves backwards; a lesson that
// was completed stays completed.
func (t Tracker) RecordProgress(c *Course, p *Progress, lessonID string, watchedPercent float64, hasPaidAccess bool) (LessonProgress, error) {
	if p == nil {
		return LessonProgress{}, ErrNilProgress
	}
	lesson, err := t.accessibleLesson(c, lessonID, hasPaidAccess)
	if err != nil {
		return LessonProgress{}, err
	}

	existing, _ := p.Lesson(lesson.ID)
	watched := math.Max(existing.WatchedPercent, clampPercent(watchedPercent))

	record := LessonProgress{
		LessonID:       lesson.ID,
		WatchedPercent: watched,
		Completed:      existing.Completed || watched >= t.Threshold(),
	}
	p.put(record)
	return record, nil
}

// MarkComplete forces the lesson to completed at 100% watched.
func (t Tracker) MarkComplete(c *Course, p *Progress, lessonID string, hasPaidAccess bool) (LessonProgress, error) {
	if p == nil {
		return LessonProgress{}, ErrNilProgress
	}
	lesson, err := t.accessibleLesson(c, lessonID, hasPaidAccess)
	if err != nil {
		return LessonProgress{}, err
	}

	record := LessonProgress{LessonID: lesson.ID, Completed: true, WatchedPercent: 100}
	p.put(record)
	return record, nil
}

func (t Tracker) accessibleLesson(c *Course, lessonID string, hasPaidAccess bool) (Lesson, error) {
	if c == nil {
		return Lesson{}, malformed("", "course is nil")
	}
	_, lesson, ok := c.FindLesson(lessonID)
	if !ok {
		return Lesson{}, &UnknownLessonError{CourseID: c.ID, LessonID: lessonID}
	}
	if !CanAccess(lesson, hasPaidAccess) {
		return Lesson{}, &AccessDeniedError{LessonID: lesson.ID}
	}
	return lesson, nil
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

type Summary struct {
	CompletedLessons int `json:"completedLessons"`
	OverallProgress  int `json:"overallProgress"`
}

// ComputeOverallProgress counts completed records for lessons that exist in
// the course and derives the rounded completion percentage. Records for
// unknown lessons and repeated records for the same lesson are ignored, so the
// result does not depend on record order. A course without lessons is 0%.
func ComputeOverallProgress(c *Course, records []LessonProgress) Summary {
	if c == nil {
		return Summary{}
	}

	known := make(map[string]struct{}, c.TotalLessons)
	total := 0
	for _, chapter := range c.Chapters {
		for _, lesson := range chapter.Lessons {
			if _, dup := known[lesson.ID]; dup {
				continue
			}
			known[lesson.ID] = struct{}{}
			total++
		}
	}

	completed := make(map[string]struct{})
	for _, record := range records {
		if !record.Completed {
			continue
		}
		if _, ok := known[record.LessonID]; ok {
			completed[record.LessonID] = struct{}{}
		}
	}

	summary := Summary{CompletedLessons: len(completed)}
	if total > 0 {
		summary.OverallProgress = int(math.Round(float64(len(completed)) / float64(total) * 100))
	}
	return summary
}

type ChapterProgress struct {
	ChapterID string           `json:"chapterId"`
	Lessons   []LessonProgress `json:"lessons"`
}

// Document is the CourseProgress shape exchanged with storage and the UI.
type Document struct {
	CourseID         string            `json:"courseId"`
	LearnerID        string            `json:"learnerId"`
	CompletedLessons int               `json:"completedLessons"`
	OverallProgress  int               `json:"overallProgress"`
	CurrentChapterID string            `json:"currentChapterId,omitempty"`
	CurrentLessonID  string            `json:"currentLessonId,omitempty"`
	Chapters         []ChapterProgress `json:"chapters"`
}

// BuildDocument renders the progress of every catalog lesson in navigation
// order, using zero values for lessons the learner has not opened yet.
func BuildDocument(c *Course, p *Progress) Document {
	doc := Document{Chapters: []ChapterProgress{}}
	if p != nil {
		doc.CourseID = p.CourseID
		doc.LearnerID = p.LearnerID
		if p.Current != nil {
			doc.CurrentChapterID = p.Current.ChapterID
			doc.CurrentLessonID = p.Current.LessonID
		}
	}
	if c == nil {
		return doc
	}
	if doc.CourseID == "" {
		doc.CourseID = c.ID
	}

	summary := ComputeOverallProgress(c, p.Records())
	doc.CompletedLessons = summary.CompletedLessons
	doc.OverallProgress = summary.OverallProgress

	for _, chapter := range OrderedChapters(c) {
		entry := ChapterProgress{ChapterID: chapter.ID, Lessons: []LessonProgress{}}
		for _, lesson := range OrderedLessons(chapter) {
			record, ok := p.Lesson(lesson.ID)
			if !ok {
				record = LessonProgress{LessonID: lesson.ID}
			}
			entry.Lessons = append(entry.Lessons, record)
		}
		doc.Chapters = append(doc.Chapters, entry)
	}
	return doc
}
