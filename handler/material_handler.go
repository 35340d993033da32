package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/arkstudy/ms3-contenido/models"
	"github.com/arkstudy/ms3-contenido/service"
)

type MaterialHandler struct {
	svc    service.MaterialService
	logger *logrus.Logger
}

func NewMaterialHandler(svc service.MaterialService, logger *logrus.Logger) *MaterialHandler {
	return &MaterialHandler{svc: svc, logger: logger}
}

// Register mounts the material routes on rg.
func (h *MaterialHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/", h.CreateMaterial)
	rg.GET("/", h.ListMaterials)
	rg.GET("/:id", h.GetMaterial)
	rg.PUT("/:id", h.UpdateMaterial)
	rg.DELETE("/:id", h.DeleteMaterial)
	rg.GET("/:id/recurso", h.GetMaterialResource)
	rg.GET("/cursos/:cursoId/materiales", h.ListCourseMaterials)
	rg.GET("/cursos/:cursoId/count", h.CountCourseMaterials)
}

// CreateMaterial
// POST /materiales/
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	req := models.NewMaterialCreate()
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, models.DecodeError(err))
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(c, err)
		return
	}

	material, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "El curso " + req.CursoID + " no existe"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, material.ToResponse())
}

// ListMaterials
// GET /materiales/?cursoId=&tipo=&publicado=&skip=0&limit=100
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	filter, verrs := parseListQuery(c)
	if len(verrs) > 0 {
		validationError(c, verrs)
		return
	}

	materials, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToResponses(materials))
}

// GetMaterial
// GET /materiales/:id
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	material, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, material.ToResponse())
}

// UpdateMaterial applies a partial update.
// PUT /materiales/:id
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		validationError(c, models.ValidationErrors{{Field: "body", Message: "could not read request body"}})
		return
	}
	update, err := models.ParseMaterialUpdate(body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	material, err := h.svc.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, material.ToResponse())
}

// DeleteMaterial
// DELETE /materiales/:id
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMaterialResource returns a fetchable URL for the material's recurso.
// GET /materiales/:id/recurso
func (h *MaterialHandler) GetMaterialResource(c *gin.Context) {
	material, u, err := h.svc.ResourceURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      material.ID.Hex(),
		"recurso": material.Recurso,
		"url":     u,
	})
}

// ListCourseMaterials returns the published materials of a course visible
// to the optional estudianteId.
// GET /materiales/cursos/:cursoId/materiales?estudianteId=
func (h *MaterialHandler) ListCourseMaterials(c *gin.Context) {
	materials, err := h.svc.ListCourseMaterials(c.Request.Context(), c.Param("cursoId"), c.Query("estudianteId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToResponses(materials))
}

// CountCourseMaterials
// GET /materiales/cursos/:cursoId/count
func (h *MaterialHandler) CountCourseMaterials(c *gin.Context) {
	cursoID := c.Param("cursoId")
	n, err := h.svc.Count(c.Request.Context(), cursoID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursoId": cursoID, "totalMateriales": n})
}

func parseListQuery(c *gin.Context) (models.ListFilter, models.ValidationErrors) {
	filter := models.ListFilter{
		CursoID: c.Query("cursoId"),
		Tipo:    c.Query("tipo"),
		Skip:    0,
		Limit:   models.DefaultLimit,
	}
	var verrs models.ValidationErrors

	if raw, ok := c.GetQuery("publicado"); ok {
		b, err := parseBool(raw)
		if err != nil {
			verrs = append(verrs, models.FieldError{Field: "publicado", Message: "must be a boolean"})
		} else {
			filter.Publicado = &b
		}
	}
	if raw, ok := c.GetQuery("skip"); ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			verrs = append(verrs, models.FieldError{Field: "skip", Message: "must be an integer greater than or equal to 0"})
		} else {
			filter.Skip = n
		}
	}
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > models.MaxLimit {
			verrs = append(verrs, models.FieldError{Field: "limit", Message: "must be an integer between 1 and 500"})
		} else {
			filter.Limit = n
		}
	}
	return filter, verrs
}

// parseBool accepts the common spellings of a boolean query value.
func parseBool(raw string) (bool, error) {
	switch raw {
	case "true", "True", "TRUE", "1", "yes", "on":
		return true, nil
	case "false", "False", "FALSE", "0", "no", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func (h *MaterialHandler) respondError(c *gin.Context, err error) {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		validationError(c, verrs)
	case errors.Is(err, service.ErrNotFound):
		notFound(c)
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}

func validationError(c *gin.Context, verrs models.ValidationErrors) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": verrs})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Material no encontrado"})
}
