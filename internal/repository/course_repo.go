package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"app/internal/model"
)

// CourseRepository persists the course tree for the Postgres-backed gateway.
type CourseRepository interface {
	CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error)
	UpdateCourse(ctx context.Context, identifier string, c *model.Course) (*model.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error)
	SetPublished(ctx context.Context, identifier string, published bool) (*model.Course, error)
}

type courseRepo struct {
	db *sql.DB
}

// NewCourseRepo creates a new CourseRepository.
func NewCourseRepo(db *sql.DB) CourseRepository {
	return &courseRepo{db: db}
}

// CreateCourse inserts the course with its modules and lessons in one
// transaction and returns the stored tree with server-assigned ids.
func (r *courseRepo) CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create course: %w", err)
	}
	defer tx.Rollback()

	requirements, skills, err := encodeLists(c)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO courses (slug, title, subtitle, description, category_id, level,
			price, discount_price, thumbnail_url, certificate, featured, is_published,
			requirements, skills)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, slug
	`
	var courseID, slug string
	if err := tx.QueryRowContext(ctx, query,
		c.Slug, c.Title, c.Subtitle, c.Description, c.CategoryID, c.Level,
		c.Price, c.DiscountPrice, c.ThumbnailURL, c.Certificate, c.Featured, c.Published,
		requirements, skills,
	).Scan(&courseID, &slug); err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}

	if err := replaceTree(ctx, tx, courseID, c.Modules); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create course: %w", err)
	}
	return r.GetCourseBySlug(ctx, slug)
}

// UpdateCourse rewrites the course row and replaces its tree. The identifier
// may be the slug or the id.
func (r *courseRepo) UpdateCourse(ctx context.Context, identifier string, c *model.Course) (*model.Course, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update course: %w", err)
	}
	defer tx.Rollback()

	requirements, skills, err := encodeLists(c)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE courses
		SET title = $1, subtitle = $2, description = $3, category_id = $4, level = $5,
			price = $6, discount_price = $7, thumbnail_url = $8, certificate = $9,
			featured = $10, is_published = $11, requirements = $12, skills = $13,
			updated_at = NOW()
		WHERE slug = $14 OR id::text = $14
		RETURNING id, slug
	`
	var courseID, slug string
	if err := tx.QueryRowContext(ctx, query,
		c.Title, c.Subtitle, c.Description, c.CategoryID, c.Level,
		c.Price, c.DiscountPrice, c.ThumbnailURL, c.Certificate,
		c.Featured, c.Published, requirements, skills, identifier,
	).Scan(&courseID, &slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("course %q not found", identifier)
		}
		return nil, fmt.Errorf("update course: %w", err)
	}

	if err := replaceTree(ctx, tx, courseID, c.Modules); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update course: %w", err)
	}
	return r.GetCourseBySlug(ctx, slug)
}

// SetPublished flips only the published flag.
func (r *courseRepo) SetPublished(ctx context.Context, identifier string, published bool) (*model.Course, error) {
	query := `
		UPDATE courses
		SET is_published = $1, updated_at = NOW()
		WHERE slug = $2 OR id::text = $2
		RETURNING slug
	`
	var slug string
	if err := r.db.QueryRowContext(ctx, query, published, identifier).Scan(&slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("course %q not found", identifier)
		}
		return nil, fmt.Errorf("set published: %w", err)
	}
	return r.GetCourseBySlug(ctx, slug)
}

// GetCourseBySlug loads the full tree, modules and lessons ordered by
// position.
func (r *courseRepo) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	query := `
		SELECT id, slug, title, subtitle, description, category_id, level,
			price, discount_price, thumbnail_url, certificate, featured, is_published,
			requirements, skills
		FROM courses
		WHERE slug = $1
	`
	var c model.Course
	var requirements, skills []byte
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&c.ID, &c.Slug, &c.Title, &c.Subtitle, &c.Description, &c.CategoryID, &c.Level,
		&c.Price, &c.DiscountPrice, &c.ThumbnailURL, &c.Certificate, &c.Featured, &c.Published,
		&requirements, &skills,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("course %q not found", slug)
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	if err := json.Unmarshal(requirements, &c.Requirements); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	if err := json.Unmarshal(skills, &c.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}

	modules, err := r.loadModules(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Modules = modules
	return &c, nil
}

func (r *courseRepo) loadModules(ctx context.Context, courseID string) ([]model.Module, error) {
	// seq is a serial assigned at insert; it breaks position ties in favor of
	// insertion order, since a gap-preserving removal plus a fresh add can
	// leave two siblings with the same position.
	query := `
		SELECT id, title, description, duration, position
		FROM modules
		WHERE course_id = $1
		ORDER BY position ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	modules := []model.Module{}
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Duration, &m.Order); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modules rows: %w", err)
	}

	for i := range modules {
		lessons, err := r.loadLessons(ctx, modules[i].ID)
		if err != nil {
			return nil, err
		}
		modules[i].Lessons = lessons
	}
	return modules, nil
}

func (r *courseRepo) loadLessons(ctx context.Context, moduleID string) ([]model.Lesson, error) {
	query := `
		SELECT id, title, type, duration, position, access_level, is_free_preview,
			content_basic, content_intermediate, content_advanced
		FROM lessons
		WHERE module_id = $1
		ORDER BY position ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	lessons := []model.Lesson{}
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.Type, &l.Duration, &l.Order, &l.AccessLevel,
			&l.IsFreePreview, &l.ContentBasic, &l.ContentIntermediate, &l.ContentAdvanced); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lessons rows: %w", err)
	}
	return lessons, nil
}

// replaceTree rewrites the modules and lessons of a course. Entities arriving
// without an id (temp ids were stripped client-side) are inserted fresh;
// entities with an id are updated in place. Rows the payload no longer names
// are pruned.
func replaceTree(ctx context.Context, tx *sql.Tx, courseID string, modules []model.Module) error {
	moduleIDs := []string{}
	for _, m := range modules {
		if m.ID != "" {
			moduleIDs = append(moduleIDs, m.ID)
		}
	}
	if err := pruneRows(ctx, tx, "modules", "course_id", courseID, moduleIDs); err != nil {
		return err
	}

	for _, m := range modules {
		var moduleID string
		if m.ID == "" {
			err := tx.QueryRowContext(ctx,
				`INSERT INTO modules (course_id, title, description, duration, position)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				courseID, m.Title, m.Description, m.Duration, m.Order,
			).Scan(&moduleID)
			if err != nil {
				return fmt.Errorf("insert module: %w", err)
			}
		} else {
			moduleID = m.ID
			if _, err := tx.ExecContext(ctx,
				`UPDATE modules SET title = $1, description = $2, duration = $3, position = $4
				 WHERE id::text = $5 AND course_id = $6`,
				m.Title, m.Description, m.Duration, m.Order, m.ID, courseID); err != nil {
				return fmt.Errorf("update module: %w", err)
			}
		}

		lessonIDs := []string{}
		for _, l := range m.Lessons {
			if l.ID != "" {
				lessonIDs = append(lessonIDs, l.ID)
			}
		}
		if err := pruneRows(ctx, tx, "lessons", "module_id", moduleID, lessonIDs); err != nil {
			return err
		}
		for _, l := range m.Lessons {
			if l.ID == "" {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO lessons (module_id, title, type, duration, position, access_level,
						is_free_preview, content_basic, content_intermediate, content_advanced)
					 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
					moduleID, l.Title, l.Type, l.Duration, l.Order, l.AccessLevel,
					l.IsFreePreview, l.ContentBasic, l.ContentIntermediate, l.ContentAdvanced); err != nil {
					return fmt.Errorf("insert lesson: %w", err)
				}
			} else {
				if _, err := tx.ExecContext(ctx,
					`UPDATE lessons SET title = $1, type = $2, duration = $3, position = $4,
						access_level = $5, is_free_preview = $6, content_basic = $7,
						content_intermediate = $8, content_advanced = $9
					 WHERE id::text = $10 AND module_id = $11`,
					l.Title, l.Type, l.Duration, l.Order, l.AccessLevel, l.IsFreePreview,
					l.ContentBasic, l.ContentIntermediate, l.ContentAdvanced, l.ID, moduleID); err != nil {
					return fmt.Errorf("update lesson: %w", err)
				}
			}
		}
	}
	return nil
}

// pruneRows deletes children of parent not named in keep. Placeholders are
// built by hand because database/sql has no native string-array bind.
func pruneRows(ctx context.Context, tx *sql.Tx, table, parentCol, parentID string, keep []string) error {
	if len(keep) == 0 {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, parentCol), parentID); err != nil {
			return fmt.Errorf("prune %s: %w", table, err)
		}
		return nil
	}
	placeholders := make([]string, len(keep))
	args := make([]any, 0, len(keep)+1)
	args = append(args, parentID)
	for i, id := range keep {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND id::text NOT IN (%s)",
		table, parentCol, strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune %s: %w", table, err)
	}
	return nil
}

func encodeLists(c *model.Course) ([]byte, []byte, error) {
	requirements, err := json.Marshal(c.Requirements)
	if err != nil {
		return nil, nil, fmt.Errorf("encode requirements: %w", err)
	}
	skills, err := json.Marshal(c.Skills)
	if err != nil {
		return nil, nil, fmt.Errorf("encode skills: %w", err)
	}
	return requirements, skills, nil
}
