package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"academy-backend/internal/course"
	"academy-backend/internal/models"
	"academy-backend/internal/repository"
)

func sampleCourse() *course.Course {
	return course.New("robotics-101", "Robotics 101", []course.Chapter{
		{
			ID:    "A",
			Title: "Getting started",
			Order: 1,
			Lessons: []course.Lesson{
				{ID: "A1", Title: "Meet the robot", Order: 1, Duration: 10, IsFree: true},
				{ID: "A2", Title: "Motors", Order: 2, Duration: 15},
			},
		},
		{
			ID:    "B",
			Title: "Sensors",
			Order: 2,
			Lessons: []course.Lesson{
				{ID: "B1", Title: "Distance sensor", Order: 1, Duration: 20},
			},
		},
	})
}

// mockCatalogRepo keeps whole course trees in memory.
type mockCatalogRepo struct {
	courses map[string]*models.Course

	replaced int
	writes   int
}

func newMockCatalogRepo(courses ...*course.Course) *mockCatalogRepo {
	repo := &mockCatalogRepo{courses: make(map[string]*models.Course)}
	for _, c := range courses {
		repo.courses[c.ID] = models.FromDomain(c)
	}
	return repo
}

func cloneCourse(c *models.Course) *models.Course {
	copy := *c
	copy.Chapters = make([]models.Chapter, len(c.Chapters))
	for i, chapter := range c.Chapters {
		chapterCopy := chapter
		chapterCopy.Lessons = append([]models.Lesson(nil), chapter.Lessons...)
		copy.Chapters[i] = chapterCopy
	}
	return &copy
}

func (m *mockCatalogRepo) Create(ctx context.Context, c *models.Course) error {
	m.writes++
	m.courses[c.ID] = cloneCourse(c)
	return nil
}

func (m *mockCatalogRepo) Update(ctx context.Context, c *models.Course) error {
	stored, ok := m.courses[c.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.writes++
	stored.Title = c.Title
	stored.Description = c.Description
	return nil
}

func (m *mockCatalogRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.writes++
	delete(m.courses, id)
	return nil
}

func (m *mockCatalogRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	stored, ok := m.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneCourse(stored), nil
}

func (m *mockCatalogRepo) List(ctx context.Context) ([]models.Course, error) {
	result := make([]models.Course, 0, len(m.courses))
	for _, id := range m.sortedIDs() {
		result = append(result, *cloneCourse(m.courses[id]))
	}
	return result, nil
}

func (m *mockCatalogRepo) ListIDs(ctx context.Context) ([]string, error) {
	return m.sortedIDs(), nil
}

func (m *mockCatalogRepo) sortedIDs() []string {
	ids := make([]string, 0, len(m.courses))
	for id := range m.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *mockCatalogRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.courses[id]
	return ok, nil
}

func (m *mockCatalogRepo) Replace(ctx context.Context, c *models.Course) error {
	m.replaced++
	m.writes++
	m.courses[c.ID] = cloneCourse(c)
	return nil
}

func (m *mockCatalogRepo) chapter(courseID, chapterID string) (*models.Chapter, error) {
	stored, ok := m.courses[courseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range stored.Chapters {
		if stored.Chapters[i].ID == chapterID {
			return &stored.Chapters[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	stored, ok := m.courses[chapter.CourseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.writes++
	stored.Chapters = append(stored.Chapters, *chapter)
	return nil
}

func (m *mockCatalogRepo) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	stored, err := m.chapter(chapter.CourseID, chapter.ID)
	if err != nil {
		return err
	}
	m.writes++
	stored.Title = chapter.Title
	stored.Order = chapter.Order
	return nil
}

func (m *mockCatalogRepo) DeleteChapter(ctx context.Context, courseID, chapterID string) error {
	stored, ok := m.courses[courseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range stored.Chapters {
		if stored.Chapters[i].ID == chapterID {
			m.writes++
			stored.Chapters = append(stored.Chapters[:i], stored.Chapters[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) GetChapter(ctx context.Context, courseID, chapterID string) (*models.Chapter, error) {
	stored, err := m.chapter(courseID, chapterID)
	if err != nil {
		return nil, err
	}
	copy := *stored
	return &copy, nil
}

func (m *mockCatalogRepo) ReorderChapters(ctx context.Context, courseID string, chapterIDs []string) error {
	for idx, id := range chapterIDs {
		chapter, err := m.chapter(courseID, id)
		if err != nil {
			return err
		}
		chapter.Order = idx + 1
	}
	m.writes++
	return nil
}

func (m *mockCatalogRepo) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	chapter, err := m.chapter(lesson.CourseID, lesson.ChapterID)
	if err != nil {
		return err
	}
	m.writes++
	chapter.Lessons = append(chapter.Lessons, *lesson)
	return nil
}

func (m *mockCatalogRepo) lesson(courseID, lessonID string) (*models.Chapter, int, error) {
	stored, ok := m.courses[courseID]
	if !ok {
		return nil, -1, gorm.ErrRecordNotFound
	}
	for i := range stored.Chapters {
		for j := range stored.Chapters[i].Lessons {
			if stored.Chapters[i].Lessons[j].ID == lessonID {
				return &stored.Chapters[i], j, nil
			}
		}
	}
	return nil, -1, gorm.ErrRecordNotFound
}

func (m *mockCatalogRepo) UpdateLesson(ctx context.Context, lesson *models.Lesson) error {
	chapter, idx, err := m.lesson(lesson.CourseID, lesson.ID)
	if err != nil {
		return err
	}
	m.writes++
	chapter.Lessons[idx] = *lesson
	return nil
}

func (m *mockCatalogRepo) DeleteLesson(ctx context.Context, courseID, lessonID string) error {
	chapter, idx, err := m.lesson(courseID, lessonID)
	if err != nil {
		return err
	}
	m.writes++
	chapter.Lessons = append(chapter.Lessons[:idx], chapter.Lessons[idx+1:]...)
	return nil
}

func (m *mockCatalogRepo) GetLesson(ctx context.Context, courseID, lessonID string) (*models.Lesson, error) {
	chapter, idx, err := m.lesson(courseID, lessonID)
	if err != nil {
		return nil, err
	}
	copy := chapter.Lessons[idx]
	return &copy, nil
}

func (m *mockCatalogRepo) ReorderLessons(ctx context.Context, courseID, chapterID string, lessonIDs []string) error {
	chapter, err := m.chapter(courseID, chapterID)
	if err != nil {
		return err
	}
	positions := make(map[string]int, len(lessonIDs))
	for idx, id := range lessonIDs {
		positions[id] = idx + 1
	}
	for i := range chapter.Lessons {
		chapter.Lessons[i].Order = positions[chapter.Lessons[i].ID]
	}
	m.writes++
	return nil
}

// mockCatalog serves domain courses directly.
type mockCatalog struct {
	courses map[string]*course.Course
}

func newMockCatalog(courses ...*course.Course) *mockCatalog {
	catalog := &mockCatalog{courses: make(map[string]*course.Course)}
	for _, c := range courses {
		catalog.courses[c.ID] = c
	}
	return catalog
}

func (m *mockCatalog) Load(ctx context.Context, courseID string) (*course.Course, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *mockCatalog) IDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.courses))
	for id := range m.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type mockAccess struct {
	paid map[string]bool
}

func (m *mockAccess) HasPaidAccess(ctx context.Context, learnerID, courseID string) (bool, error) {
	return m.paid[learnerID+"|"+courseID], nil
}

// mockProgressRepo commits partition changes only when the callback succeeds
// and serializes callbacks with a single mutex.
type mockProgressRepo struct {
	mu         sync.Mutex
	partitions map[string]*repository.Partition
	commits    int
}

func newMockProgressRepo() *mockProgressRepo {
	return &mockProgressRepo{partitions: make(map[string]*repository.Partition)}
}

func partitionKey(courseID, learnerID string) string {
	return courseID + "|" + learnerID
}

func clonePartition(p *repository.Partition) *repository.Partition {
	return &repository.Partition{
		State:   p.State,
		Records: append([]models.LessonProgress(nil), p.Records...),
	}
}

func (m *mockProgressRepo) WithPartition(ctx context.Context, courseID, learnerID string, fn func(p *repository.Partition) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := partitionKey(courseID, learnerID)
	stored, ok := m.partitions[key]
	if !ok {
		stored = &repository.Partition{State: models.CourseProgress{CourseID: courseID, LearnerID: learnerID}}
	}

	working := clonePartition(stored)
	if err := fn(working); err != nil {
		return err
	}
	working.State.UpdatedAt = time.Now()
	m.partitions[key] = working
	m.commits++
	return nil
}

func (m *mockProgressRepo) Get(ctx context.Context, courseID, learnerID string) (*repository.Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.partitions[partitionKey(courseID, learnerID)]
	if !ok {
		return &repository.Partition{State: models.CourseProgress{CourseID: courseID, LearnerID: learnerID}}, nil
	}
	return clonePartition(stored), nil
}

func (m *mockProgressRepo) ListLearners(ctx context.Context, courseID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	learners := make([]string, 0)
	for _, partition := range m.partitions {
		if partition.State.CourseID == courseID {
			learners = append(learners, partition.State.LearnerID)
		}
	}
	sort.Strings(learners)
	return learners, nil
}

func (m *mockProgressRepo) record(courseID, learnerID, lessonID string) (models.LessonProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.partitions[partitionKey(courseID, learnerID)]
	if !ok {
		return models.LessonProgress{}, false
	}
	for _, record := range stored.Records {
		if record.LessonID == lessonID {
			return record, true
		}
	}
	return models.LessonProgress{}, false
}

type mockAccessRepo struct {
	accesses map[string]models.CourseAccess
}

func newMockAccessRepo() *mockAccessRepo {
	return &mockAccessRepo{accesses: make(map[string]models.CourseAccess)}
}

func (m *mockAccessRepo) Upsert(ctx context.Context, access *models.CourseAccess) error {
	m.accesses[partitionKey(access.CourseID, access.LearnerID)] = *access
	return nil
}

func (m *mockAccessRepo) GetByLearnerAndCourse(ctx context.Context, learnerID, courseID string) (*models.CourseAccess, error) {
	access, ok := m.accesses[partitionKey(courseID, learnerID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &access, nil
}

func (m *mockAccessRepo) Delete(ctx context.Context, learnerID, courseID string) error {
	key := partitionKey(courseID, learnerID)
	if _, ok := m.accesses[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.accesses, key)
	return nil
}

func (m *mockAccessRepo) ListActiveByLearner(ctx context.Context, learnerID string) ([]models.CourseAccess, error) {
	result := make([]models.CourseAccess, 0)
	for _, access := range m.accesses {
		if access.LearnerID == learnerID && access.ActiveAt(time.Now()) {
			result = append(result, access)
		}
	}
	return result, nil
}
