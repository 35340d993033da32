package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TipoVideo     = "video"
	TipoDocumento = "documento"
	TipoQuiz      = "quiz"
	TipoTarea     = "tarea"

	AccesoPublico   = "publico"
	AccesoInscritos = "inscritos"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Material is the document stored in the materiales collection. Field names
// on the wire and in the store are the same.
type Material struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Titulo        string             `bson:"titulo"`
	Descripcion   *string            `bson:"descripcion"`
	Tipo          string             `bson:"tipo"`
	Recurso       string             `bson:"recurso"`
	CursoID       string             `bson:"cursoId"`
	Autor         *string            `bson:"autor"`
	Tags          []string           `bson:"tags"`
	Publicado     bool               `bson:"publicado"`
	Acceso        string             `bson:"acceso"`
	FechaCreacion time.Time          `bson:"fechaCreacion"`
}

// MaterialCreate is the body of a create request.
type MaterialCreate struct {
	Titulo      string   `json:"titulo" validate:"required,min=3,max=200"`
	Descripcion *string  `json:"descripcion" validate:"omitempty,max=1000"`
	Tipo        string   `json:"tipo" validate:"required,oneof=video documento quiz tarea"`
	Recurso     string   `json:"recurso" validate:"required,min=1"`
	CursoID     string   `json:"cursoId" validate:"required,min=1"`
	Autor       *string  `json:"autor"`
	Tags        []string `json:"tags"`
	Publicado   bool     `json:"publicado"`
	Acceso      string   `json:"acceso" validate:"required,oneof=publico inscritos"`
}

// NewMaterialCreate returns a create request holding the defaults for the
// optional fields, ready to be decoded into.
func NewMaterialCreate() MaterialCreate {
	return MaterialCreate{
		Tags:      []string{},
		Publicado: true,
		Acceso:    AccesoInscritos,
	}
}

func (c *MaterialCreate) Validate() error {
	return validateStruct(c)
}

// ToMaterial builds the document to insert, stamped with createdAt.
func (c *MaterialCreate) ToMaterial(createdAt time.Time) *Material {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Material{
		Titulo:        c.Titulo,
		Descripcion:   c.Descripcion,
		Tipo:          c.Tipo,
		Recurso:       c.Recurso,
		CursoID:       c.CursoID,
		Autor:         c.Autor,
		Tags:          tags,
		Publicado:     c.Publicado,
		Acceso:        c.Acceso,
		FechaCreacion: createdAt,
	}
}

type MaterialResponse struct {
	ID            string    `json:"id"`
	Titulo        string    `json:"titulo"`
	Descripcion   *string   `json:"descripcion"`
	Tipo          string    `json:"tipo"`
	Recurso       string    `json:"recurso"`
	CursoID       string    `json:"cursoId"`
	Autor         *string   `json:"autor"`
	Tags          []string  `json:"tags"`
	Publicado     bool      `json:"publicado"`
	Acceso        string    `json:"acceso"`
	FechaCreacion time.Time `json:"fechaCreacion"`
}

func (m *Material) ToResponse() MaterialResponse {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return MaterialResponse{
		ID:            m.ID.Hex(),
		Titulo:        m.Titulo,
		Descripcion:   m.Descripcion,
		Tipo:          m.Tipo,
		Recurso:       m.Recurso,
		CursoID:       m.CursoID,
		Autor:         m.Autor,
		Tags:          tags,
		Publicado:     m.Publicado,
		Acceso:        m.Acceso,
		FechaCreacion: m.FechaCreacion,
	}
}

func ToResponses(materials []*Material) []MaterialResponse {
	out := make([]MaterialResponse, 0, len(materials))
	for _, m := range materials {
		out = append(out, m.ToResponse())
	}
	return out
}

// ListFilter selects materials for a listing. Empty or nil fields do not
// filter. A Limit of zero means no limit.
type ListFilter struct {
	CursoID   string
	Tipo      string
	Publicado *bool
	Skip      int64
	Limit     int64
}
