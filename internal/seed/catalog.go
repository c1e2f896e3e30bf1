package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"academy-backend/internal/course"
	"academy-backend/pkg/logger"
	"academy-backend/pkg/validator"
)

// CatalogImporter stores a full course tree and reports whether it was written.
type CatalogImporter interface {
	Import(ctx context.Context, c *course.Course) (bool, error)
}

type catalogFile struct {
	Courses []course.Course `yaml:"courses"`
}

// ParseCatalog decodes a catalog document. JSON input is accepted as well,
// since it is valid YAML. Unknown keys are rejected.
func ParseCatalog(data []byte) ([]*course.Course, error) {
	var file catalogFile
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	courses := make([]*course.Course, 0, len(file.Courses))
	seen := make(map[string]struct{}, len(file.Courses))
	for i := range file.Courses {
		c := file.Courses[i]
		c.ID = strings.TrimSpace(c.ID)
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("course %q is defined twice", c.ID)
		}
		seen[c.ID] = struct{}{}
		if err := checkIdentifiers(&c); err != nil {
			return nil, err
		}

		c.Recount()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}
	return courses, nil
}

// checkIdentifiers rejects ids that the HTTP routes could not address.
func checkIdentifiers(c *course.Course) error {
	if !validator.ValidateIdentifier(c.ID) {
		return fmt.Errorf("invalid course id %q", c.ID)
	}
	for _, chapter := range c.Chapters {
		if !validator.ValidateIdentifier(chapter.ID) {
			return fmt.Errorf("course %s: invalid chapter id %q", c.ID, chapter.ID)
		}
		for _, lesson := range chapter.Lessons {
			if !validator.ValidateIdentifier(lesson.ID) {
				return fmt.Errorf("course %s: invalid lesson id %q", c.ID, lesson.ID)
			}
		}
	}
	return nil
}

func LoadCatalogFile(path string) ([]*course.Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ImportCatalog loads the catalog file and stores every course in it. An empty
// path is a no-op.
func ImportCatalog(ctx context.Context, importer CatalogImporter, path string) error {
	path = strings.TrimSpace(path)
	if importer == nil || path == "" {
		return nil
	}

	courses, err := LoadCatalogFile(path)
	if err != nil {
		logger.Error(err, "Failed to load catalog seed", map[string]interface{}{"path": path})
		return err
	}

	for _, c := range courses {
		imported, err := importer.Import(ctx, c)
		if err != nil {
			logger.Error(err, "Failed to import course", map[string]interface{}{"course_id": c.ID})
			return err
		}
		if !imported {
			logger.Debug("Course already stored, skipping seed", map[string]interface{}{"course_id": c.ID})
			continue
		}
		logger.Info("Imported course", map[string]interface{}{
			"course_id": c.ID,
			"chapters":  len(c.Chapters),
			"lessons":   c.TotalLessons,
		})
	}
	return nil
}
