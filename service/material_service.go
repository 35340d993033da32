package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arkstudy/ms3-contenido/events"
	"github.com/arkstudy/ms3-contenido/models"
	"github.com/arkstudy/ms3-contenido/pkg/metrics"
	"github.com/arkstudy/ms3-contenido/registry"
	"github.com/arkstudy/ms3-contenido/repository"
	"github.com/arkstudy/ms3-contenido/storage"
)

var (
	// ErrCourseNotFound is returned by Create when the course registry
	// answers that the course does not exist.
	ErrCourseNotFound = errors.New("course not found")
	// ErrNotFound is returned when a material id does not resolve.
	ErrNotFound = repository.ErrNotFound
)

const publishTimeout = 5 * time.Second

type MaterialService interface {
	Create(ctx context.Context, req models.MaterialCreate) (*models.Material, error)
	GetByID(ctx context.Context, id string) (*models.Material, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Material, error)
	Update(ctx context.Context, id string, update models.MaterialUpdate) (*models.Material, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, cursoID string) (int64, error)
	ListCourseMaterials(ctx context.Context, cursoID, estudianteID string) ([]*models.Material, error)
	ResourceURL(ctx context.Context, id string) (*models.Material, string, error)
}

type MaterialServiceImpl struct {
	repo        repository.MaterialRepository
	courses     registry.CourseRegistry
	enrollments registry.EnrollmentRegistry
	publisher   events.Publisher
	resolver    storage.Resolver
	logger      *logrus.Logger
	now         func() time.Time
}

func NewMaterialService(
	repo repository.MaterialRepository,
	courses registry.CourseRegistry,
	enrollments registry.EnrollmentRegistry,
	publisher events.Publisher,
	resolver storage.Resolver,
	logger *logrus.Logger,
) *MaterialServiceImpl {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if resolver == nil {
		resolver = storage.PassthroughResolver{}
	}
	return &MaterialServiceImpl{
		repo:        repo,
		courses:     courses,
		enrollments: enrollments,
		publisher:   publisher,
		resolver:    resolver,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create checks the course with the course registry and inserts the
// material. When the registry cannot be reached the course is assumed to
// exist.
func (s *MaterialServiceImpl) Create(ctx context.Context, req models.MaterialCreate) (*models.Material, error) {
	exists, err := s.courses.CourseExists(ctx, req.CursoID)
	switch {
	case err != nil:
		metrics.RecordUpstreamCheck("courses", "error")
		s.logger.WithError(err).WithField("cursoId", req.CursoID).
			Warn("could not verify course, allowing create")
		exists = true
	case exists:
		metrics.RecordUpstreamCheck("courses", "ok")
	default:
		metrics.RecordUpstreamCheck("courses", "negative")
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, req.CursoID)
	}

	material := req.ToMaterial(s.now())
	err = s.repo.Create(ctx, material)
	metrics.RecordMaterialOperation("create", err)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"id": material.ID.Hex(), "cursoId": material.CursoID}).Info("material created")
	s.publish(ctx, events.MaterialCreated, material.ID.Hex(), material.CursoID)
	return material, nil
}

func (s *MaterialServiceImpl) GetByID(ctx context.Context, id string) (*models.Material, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MaterialServiceImpl) List(ctx context.Context, filter models.ListFilter) ([]*models.Material, error) {
	return s.repo.List(ctx, filter)
}

// Update changes only the supplied fields. An empty update returns the
// material unchanged.
func (s *MaterialServiceImpl) Update(ctx context.Context, id string, update models.MaterialUpdate) (*models.Material, error) {
	material, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.RecordMaterialOperation("update", err)
		}
		return nil, err
	}
	if update.IsEmpty() {
		return material, nil
	}
	metrics.RecordMaterialOperation("update", nil)
	s.publish(ctx, events.MaterialUpdated, material.ID.Hex(), material.CursoID)
	return material, nil
}

// Delete reports whether a document was removed.
func (s *MaterialServiceImpl) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		metrics.RecordMaterialOperation("delete", err)
		return false, err
	}
	if deleted {
		metrics.RecordMaterialOperation("delete", nil)
		s.logger.WithField("id", id).Info("material deleted")
		s.publish(ctx, events.MaterialDeleted, id, "")
	}
	return deleted, nil
}

func (s *MaterialServiceImpl) Count(ctx context.Context, cursoID string) (int64, error) {
	return s.repo.CountByCurso(ctx, cursoID)
}

// ListCourseMaterials returns the published materials of a course that the
// caller may see. publico materials are always visible. inscritos materials
// are visible only to a student the enrollment registry confirms; when the
// registry cannot be reached the student is treated as not enrolled.
func (s *MaterialServiceImpl) ListCourseMaterials(ctx context.Context, cursoID, estudianteID string) ([]*models.Material, error) {
	publicado := true
	materials, err := s.repo.List(ctx, models.ListFilter{CursoID: cursoID, Publicado: &publicado})
	if err != nil {
		return nil, err
	}

	enrollment := s.enrollmentCheck(ctx, cursoID, estudianteID)
	allowed := make([]*models.Material, 0, len(materials))
	for _, m := range materials {
		switch m.Acceso {
		case models.AccesoPublico:
			allowed = append(allowed, m)
		case models.AccesoInscritos:
			if enrollment() {
				allowed = append(allowed, m)
			}
		}
	}
	return allowed, nil
}

// enrollmentCheck returns a function that asks the enrollment registry at
// most once per call of ListCourseMaterials, and only when needed.
func (s *MaterialServiceImpl) enrollmentCheck(ctx context.Context, cursoID, estudianteID string) func() bool {
	var checked, enrolled bool
	return func() bool {
		if estudianteID == "" {
			return false
		}
		if checked {
			return enrolled
		}
		checked = true

		ok, err := s.enrollments.IsEnrolled(ctx, estudianteID, cursoID)
		switch {
		case err != nil:
			metrics.RecordUpstreamCheck("enrollments", "error")
			s.logger.WithError(err).WithFields(logrus.Fields{"cursoId": cursoID, "estudianteId": estudianteID}).
				Warn("could not verify enrollment, treating as not enrolled")
			enrolled = false
		case ok:
			metrics.RecordUpstreamCheck("enrollments", "ok")
			enrolled = true
		default:
			metrics.RecordUpstreamCheck("enrollments", "negative")
		}
		return enrolled
	}
}

// ResourceURL resolves the recurso of a material to a fetchable URL.
func (s *MaterialServiceImpl) ResourceURL(ctx context.Context, id string) (*models.Material, string, error) {
	material, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	u, err := s.resolver.Resolve(ctx, material.Recurso)
	if err != nil {
		return nil, "", fmt.Errorf("resolve recurso of %s: %w", id, err)
	}
	return material, u, nil
}

func (s *MaterialServiceImpl) publish(ctx context.Context, eventType, materialID, cursoID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.Publish(ctx, events.NewEvent(eventType, materialID, cursoID))
	metrics.RecordEvent(eventType, err)
	if err != nil {
		s.logger.WithError(err).WithField("id", materialID).Warn("failed to publish material event")
	}
}
