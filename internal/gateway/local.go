package gateway

import (
	"context"
	"fmt"
	"strings"

	"app/internal/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// localGateway serves the gateway contract from a local Postgres store, for
// single-binary deployments without an upstream course API.
type localGateway struct {
	repo   repository.CourseRepository
	logger zerolog.Logger
}

// NewLocal returns a Gateway backed by the given repository.
func NewLocal(repo repository.CourseRepository, logger zerolog.Logger) Gateway {
	return &localGateway{
		repo:   repo,
		logger: logger.With().Str("service", "LocalGateway").Logger(),
	}
}

func (g *localGateway) CreateCourse(ctx context.Context, payload *model.Course) (*model.Course, error) {
	c := payload.Clone()
	if c.Slug == "" {
		c.Slug = Slugify(c.Title)
	}
	created, err := g.repo.CreateCourse(ctx, &c)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	g.logger.Debug().Str("slug", created.Slug).Msg("Course created")
	return created, nil
}

func (g *localGateway) UpdateCourse(ctx context.Context, identifier string, payload *model.Course) (*model.Course, error) {
	updated, err := g.repo.UpdateCourse(ctx, identifier, payload)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	return updated, nil
}

func (g *localGateway) PublishCourse(ctx context.Context, identifier string, publish bool) (*model.Course, error) {
	course, err := g.repo.SetPublished(ctx, identifier, publish)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	return course, nil
}

func (g *localGateway) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	course, err := g.repo.GetCourseBySlug(ctx, slug)
	if err != nil {
		return nil, &Error{Message: err.Error(), Status: 404}
	}
	return course, nil
}

// Slugify derives a URL slug from the course title, with a short random
// suffix to dodge collisions.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "course"
	}
	return fmt.Sprintf("%s-%s", slug, uuid.NewString()[:8])
}
