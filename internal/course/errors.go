package course

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCourse = errors.New("course: malformed course")
	ErrAccessDenied    = errors.New("course: access denied")
	ErrUnknownLesson   = errors.New("course: unknown lesson")
	ErrNilProgress     = errors.New("course: progress is nil")
)

// MalformedCourseError reports a catalog invariant violation discovered while
// navigating: a course without chapters, a course without lessons, or a
// chapter/lesson reference that does not exist in the catalog.
type MalformedCourseError struct {
	CourseID string
	Reason   string
}

func (e *MalformedCourseError) Error() string {
	if e.CourseID == "" {
		return fmt.Sprintf("malformed course: %s", e.Reason)
	}
	return fmt.Sprintf("malformed course %q: %s", e.CourseID, e.Reason)
}

func (e *MalformedCourseError) Unwrap() error {
	return ErrMalformedCourse
}

func malformed(courseID, format string, args ...interface{}) error {
	return &MalformedCourseError{CourseID: courseID, Reason: fmt.Sprintf(format, args...)}
}

// AccessDeniedError is returned when a learner without paid access tries to
// select or report progress on a locked lesson.
type AccessDeniedError struct {
	LessonID string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("lesson %q is locked", e.LessonID)
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrAccessDenied
}

// UnknownLessonError is returned when a progress event names a lesson that is
// not part of the course catalog.
type UnknownLessonError struct {
	CourseID string
	LessonID string
}

func (e *UnknownLessonError) Error() string {
	return fmt.Sprintf("lesson %q does not exist in course %q", e.LessonID, e.CourseID)
}

func (e *UnknownLessonError) Unwrap() error {
	return ErrUnknownLesson
}

func IsMalformedCourse(err error) bool {
	return err != nil && errors.Is(err, ErrMalformedCourse)
}

func IsAccessDenied(err error) bool {
	return err != nil && errors.Is(err, ErrAccessDenied)
}

func IsUnknownLesson(err error) bool {
	return err != nil && errors.Is(err, ErrUnknownLesson)
}
