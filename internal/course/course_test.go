package course

import (
	"errors"
	"testing"
)

// sampleCourse is the two-chapter course used across the package tests:
// chapter A holds A1 (free, 10m) and A2 (paid, 15m), chapter B holds B1 (paid, 20m).
func sampleCourse() *Course {
	return New("robotics-101", "Robotics 101", []Chapter{
		{
			ID:    "A",
			Title: "Getting started",
			Order: 1,
			Lessons: []Lesson{
				{ID: "A1", Title: "Meet the robot", Order: 1, Duration: 10, IsFree: true},
				{ID: "A2", Title: "Motors", Order: 2, Duration: 15},
			},
		},
		{
			ID:    "B",
			Title: "Sensors",
			Order: 2,
			Lessons: []Lesson{
				{ID: "B1", Title: "Distance sensor", Order: 1, Duration: 20},
			},
		},
	})
}

func TestNewComputesTotals(t *testing.T) {
	c := sampleCourse()
	if c.TotalLessons != 3 {
		t.Fatalf("expected 3 lessons, got %d", c.TotalLessons)
	}
	if c.TotalDuration != 45 {
		t.Fatalf("expected 45 minutes, got %d", c.TotalDuration)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected sample course to be valid: %v", err)
	}
}

func TestTotalLessonsMatchesChapterSum(t *testing.T) {
	courses := []*Course{
		sampleCourse(),
		New("empty", "Empty", nil),
		New("gaps", "Gaps", []Chapter{
			{ID: "x", Order: 5},
			{ID: "y", Order: 9, Lessons: []Lesson{{ID: "y1", Order: 1}, {ID: "y2", Order: 2}}},
		}),
	}
	for _, c := range courses {
		sum := 0
		for _, chapter := range c.Chapters {
			sum += len(chapter.Lessons)
		}
		if c.TotalLessons != sum {
			t.Fatalf("%s: totalLessons %d != %d", c.ID, c.TotalLessons, sum)
		}
	}
}

func TestValidateRejectsBrokenCatalogs(t *testing.T) {
	cases := map[string]func(c *Course){
		"stale totals": func(c *Course) {
			c.TotalLessons = 7
		},
		"duplicate lesson across chapters": func(c *Course) {
			c.Chapters[1].Lessons[0].ID = "A1"
		},
		"duplicate chapter order": func(c *Course) {
			c.Chapters[1].Order = 1
		},
		"non-positive order": func(c *Course) {
			c.Chapters[0].Order = 0
		},
		"non-positive lesson order": func(c *Course) {
			c.Chapters[0].Lessons[1].Order = 0
		},
		"negative lesson order": func(c *Course) {
			c.Chapters[1].Lessons[0].Order = -2
		},
		"negative duration": func(c *Course) {
			c.Chapters[0].Lessons[0].Duration = -1
			c.Recount()
		},
		"unknown resource type": func(c *Course) {
			c.Chapters[0].Lessons[0].Resources = []Resource{{Title: "Sheet", Type: "zip", URL: "https://example.com"}}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := sampleCourse()
			mutate(c)
			err := c.Validate()
			if !IsMalformedCourse(err) {
				t.Fatalf("expected malformed course error, got %v", err)
			}
		})
	}
}

func TestValidateAllowsEmptyChapter(t *testing.T) {
	c := sampleCourse()
	c.Chapters = append(c.Chapters, Chapter{ID: "C", Title: "Coming soon", Order: 3})
	c.Recount()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected empty chapter to be allowed: %v", err)
	}
}

func TestValidateAllowsLessonOrderTies(t *testing.T) {
	c := sampleCourse()
	c.Chapters[0].Lessons[1].Order = c.Chapters[0].Lessons[0].Order
	if err := c.Validate(); err != nil {
		t.Fatalf("expected tied lesson orders to be allowed: %v", err)
	}
}

func TestOrderedChaptersSortsByOrderAndIsStable(t *testing.T) {
	c := New("c", "C", []Chapter{
		{ID: "third", Order: 30},
		{ID: "first", Order: 10},
		{ID: "tie-a", Order: 20},
		{ID: "tie-b", Order: 20},
	})

	got := OrderedChapters(c)
	want := []string{"first", "tie-a", "tie-b", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chapters, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
	if c.Chapters[0].ID != "third" {
		t.Fatalf("expected the course chapters to stay in authored order")
	}
}

func TestOrderedLessonsKeepsTies(t *testing.T) {
	chapter := Chapter{ID: "A", Order: 1, Lessons: []Lesson{
		{ID: "l3", Order: 3},
		{ID: "l1a", Order: 1},
		{ID: "l1b", Order: 1},
	}}
	got := OrderedLessons(chapter)
	if len(got) != 3 {
		t.Fatalf("expected no lessons to be dropped, got %d", len(got))
	}
	if got[0].ID != "l1a" || got[1].ID != "l1b" || got[2].ID != "l3" {
		t.Fatalf("unexpected order: %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestCanAccess(t *testing.T) {
	free := Lesson{ID: "f", IsFree: true}
	paid := Lesson{ID: "p"}

	for _, access := range []bool{true, false} {
		if !CanAccess(free, access) {
			t.Fatalf("free lesson must be accessible with access=%v", access)
		}
		if CanAccess(paid, access) != access {
			t.Fatalf("paid lesson access must equal the access flag (%v)", access)
		}
	}

	c := sampleCourse()
	if !CanAccess(c.Chapters[0].Lessons[0], false) {
		t.Fatalf("expected A1 to be open without paid access")
	}
	if CanAccess(c.Chapters[0].Lessons[1], false) {
		t.Fatalf("expected A2 to be locked without paid access")
	}

	locked := LockedLessons(c, false)
	if len(locked) != 2 || !locked["A2"] || !locked["B1"] {
		t.Fatalf("unexpected locked set: %v", locked)
	}
	if len(LockedLessons(c, true)) != 0 {
		t.Fatalf("expected nothing locked with paid access")
	}
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	if !errors.Is(&AccessDeniedError{LessonID: "x"}, ErrAccessDenied) {
		t.Fatalf("access denied error must unwrap to ErrAccessDenied")
	}
	if !errors.Is(&UnknownLessonError{LessonID: "x"}, ErrUnknownLesson) {
		t.Fatalf("unknown lesson error must unwrap to ErrUnknownLesson")
	}
	var malformedErr *MalformedCourseError
	if !errors.As(malformed("c", "boom"), &malformedErr) || malformedErr.CourseID != "c" {
		t.Fatalf("expected a *MalformedCourseError for course c")
	}
}
