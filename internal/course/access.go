package course

// CanAccess reports whether a learner may open the lesson. Free lessons are
// open to everyone; everything else requires paid access to the course.
func CanAccess(lesson Lesson, hasPaidAccess bool) bool {
	return lesson.IsFree || hasPaidAccess
}

// LockedLessons returns the ids of lessons the learner cannot open.
func LockedLessons(c *Course, hasPaidAccess bool) map[string]bool {
	locked := make(map[string]bool)
	if c == nil || hasPaidAccess {
		return locked
	}
	for _, chapter := range c.Chapters {
		for _, lesson := range chapter.Lessons {
			if !CanAccess(lesson, hasPaidAccess) {
				locked[lesson.ID] = true
			}
		}
	}
	return locked
}
