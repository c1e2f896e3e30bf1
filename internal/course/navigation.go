package course

// Position identifies a lesson inside a course.
type Position struct {
	ChapterID string `json:"chapterId"`
	LessonID  string `json:"lessonId"`
}

// locate resolves a position against the ordered catalog and returns the
// chapter index, the ordered chapters, and the lesson index inside that
// chapter's ordered lessons.
func locate(c *Course, chapterID, lessonID string) ([]Chapter, int, []Lesson, int, error) {
	if c == nil {
		return nil, 0, nil, 0, malformed("", "course is nil")
	}
	chapters := OrderedChapters(c)
	if len(chapters) == 0 {
		return nil, 0, nil, 0, malformed(c.ID, "course has no chapters")
	}

	chapterIdx := -1
	for i := range chapters {
		if chapters[i].ID == chapterID {
			chapterIdx = i
			break
		}
	}
	if chapterIdx < 0 {
		return nil, 0, nil, 0, malformed(c.ID, "chapter %q does not exist", chapterID)
	}

	lessons := OrderedLessons(chapters[chapterIdx])
	lessonIdx := -1
	for i := range lessons {
		if lessons[i].ID == lessonID {
			lessonIdx = i
			break
		}
	}
	if lessonIdx < 0 {
		return nil, 0, nil, 0, malformed(c.ID, "lesson %q does not exist in chapter %q", lessonID, chapterID)
	}

	return chapters, chapterIdx, lessons, lessonIdx, nil
}

// Locate returns the lesson at the given position, or a MalformedCourseError
// if the chapter or lesson is not part of the catalog.
func Locate(c *Course, pos Position) (Lesson, error) {
	_, _, lessons, idx, err := locate(c, pos.ChapterID, pos.LessonID)
	if err != nil {
		return Lesson{}, err
	}
	return lessons[idx], nil
}

// FirstLesson returns the first lesson of the first non-empty chapter.
func FirstLesson(c *Course) (Position, error) {
	if c == nil {
		return Position{}, malformed("", "course is nil")
	}
	chapters := OrderedChapters(c)
	if len(chapters) == 0 {
		return Position{}, malformed(c.ID, "course has no chapters")
	}
	for _, chapter := range chapters {
		lessons := OrderedLessons(chapter)
		if len(lessons) > 0 {
			return Position{ChapterID: chapter.ID, LessonID: lessons[0].ID}, nil
		}
	}
	return Position{}, malformed(c.ID, "course has no lessons")
}

// NextLesson computes the lesson that follows the current one. It moves to
// the next lesson in the chapter, otherwise to the first lesson of the next
// non-empty chapter. ok is false when the current lesson is the last one in
// the course. Access is not considered: the result may be a locked lesson.
func NextLesson(c *Course, chapterID, lessonID string) (Position, bool, error) {
	chapters, chapterIdx, lessons, lessonIdx, err := locate(c, chapterID, lessonID)
	if err != nil {
		return Position{}, false, err
	}

	if lessonIdx+1 < len(lessons) {
		return Position{ChapterID: chapterID, LessonID: lessons[lessonIdx+1].ID}, true, nil
	}

	for i := chapterIdx + 1; i < len(chapters); i++ {
		next := OrderedLessons(chapters[i])
		if len(next) == 0 {
			continue
		}
		return Position{ChapterID: chapters[i].ID, LessonID: next[0].ID}, true, nil
	}

	return Position{}, false, nil
}

// PreviousLesson is the mirror of NextLesson: the preceding lesson in the
// chapter, otherwise the last lesson of the closest earlier non-empty chapter.
// ok is false at the first lesson of the course.
func PreviousLesson(c *Course, chapterID, lessonID string) (Position, bool, error) {
	chapters, chapterIdx, lessons, lessonIdx, err := locate(c, chapterID, lessonID)
	if err != nil {
		return Position{}, false, err
	}

	if lessonIdx > 0 {
		return Position{ChapterID: chapterID, LessonID: lessons[lessonIdx-1].ID}, true, nil
	}

	for i := chapterIdx - 1; i >= 0; i-- {
		prev := OrderedLessons(chapters[i])
		if len(prev) == 0 {
			continue
		}
		return Position{ChapterID: chapters[i].ID, LessonID: prev[len(prev)-1].ID}, true, nil
	}

	return Position{}, false, nil
}
