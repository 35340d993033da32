package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arkstudy/ms3-contenido/models"
	"github.com/arkstudy/ms3-contenido/service"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Create(ctx context.Context, req models.MaterialCreate) (*models.Material, error) {
	args := m.Called(req)
	mat, _ := args.Get(0).(*models.Material)
	return mat, args.Error(1)
}

func (m *mockService) GetByID(ctx context.Context, id string) (*models.Material, error) {
	args := m.Called(id)
	mat, _ := args.Get(0).(*models.Material)
	return mat, args.Error(1)
}

func (m *mockService) List(ctx context.Context, filter models.ListFilter) ([]*models.Material, error) {
	args := m.Called(filter)
	mats, _ := args.Get(0).([]*models.Material)
	return mats, args.Error(1)
}

func (m *mockService) Update(ctx context.Context, id string, update models.MaterialUpdate) (*models.Material, error) {
	args := m.Called(id, update)
	mat, _ := args.Get(0).(*models.Material)
	return mat, args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *mockService) Count(ctx context.Context, cursoID string) (int64, error) {
	args := m.Called(cursoID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockService) ListCourseMaterials(ctx context.Context, cursoID, estudianteID string) ([]*models.Material, error) {
	args := m.Called(cursoID, estudianteID)
	mats, _ := args.Get(0).([]*models.Material)
	return mats, args.Error(1)
}

func (m *mockService) ResourceURL(ctx context.Context, id string) (*models.Material, string, error) {
	args := m.Called(id)
	mat, _ := args.Get(0).(*models.Material)
	return mat, args.String(1), args.Error(2)
}

func newTestRouter(svc service.MaterialService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := gin.New()
	NewMaterialHandler(svc, logger).Register(r.Group("/materiales"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleMaterial() *models.Material {
	return &models.Material{
		ID:            primitive.NewObjectID(),
		Titulo:        "Clase 1",
		Tipo:          models.TipoVideo,
		Recurso:       "https://example.com/v.mp4",
		CursoID:       "C1",
		Tags:          []string{},
		Publicado:     true,
		Acceso:        models.AccesoInscritos,
		FechaCreacion: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func detailFields(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Detail []models.FieldError `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	out := make([]string, 0, len(body.Detail))
	for _, fe := range body.Detail {
		out = append(out, fe.Field)
	}
	return out
}

func TestCreateMaterial(t *testing.T) {
	svc := &mockService{}
	m := sampleMaterial()
	svc.On("Create", mock.MatchedBy(func(req models.MaterialCreate) bool {
		return req.CursoID == "C1" && req.Publicado && req.Acceso == models.AccesoInscritos
	})).Return(m, nil)

	w := do(newTestRouter(svc), http.MethodPost, "/materiales/", `{"titulo":"Clase 1","tipo":"video","recurso":"u","cursoId":"C1"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.MaterialResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, m.ID.Hex(), resp.ID)
	assert.True(t, resp.Publicado)
}

func TestCreateMaterialCourseNotFound(t *testing.T) {
	svc := &mockService{}
	svc.On("Create", mock.Anything).Return(nil, service.ErrCourseNotFound)

	w := do(newTestRouter(svc), http.MethodPost, "/materiales/", `{"titulo":"Clase 1","tipo":"video","recurso":"u","cursoId":"C404"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "C404")
}

func TestCreateMaterialValidation(t *testing.T) {
	svc := &mockService{}
	r := newTestRouter(svc)

	w := do(r, http.MethodPost, "/materiales/", `{"titulo":"ab","tipo":"podcast","recurso":"u","cursoId":"C1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.ElementsMatch(t, []string{"titulo", "tipo"}, detailFields(t, w))

	w = do(r, http.MethodPost, "/materiales/", `{"titulo":`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{"body"}, detailFields(t, w))

	svc.AssertNotCalled(t, "Create", mock.Anything)
}

func TestCreateMaterialStoreError(t *testing.T) {
	svc := &mockService{}
	svc.On("Create", mock.Anything).Return(nil, errors.New("connection reset"))

	w := do(newTestRouter(svc), http.MethodPost, "/materiales/", `{"titulo":"Clase 1","tipo":"video","recurso":"u","cursoId":"C1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestListMaterialsQuery(t *testing.T) {
	svc := &mockService{}
	publicado := false
	svc.On("List", models.ListFilter{CursoID: "C1", Tipo: "quiz", Publicado: &publicado, Skip: 10, Limit: 5}).
		Return([]*models.Material{sampleMaterial()}, nil)

	w := do(newTestRouter(svc), http.MethodGet, "/materiales/?cursoId=C1&tipo=quiz&publicado=false&skip=10&limit=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp []models.MaterialResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestListMaterialsDefaults(t *testing.T) {
	svc := &mockService{}
	svc.On("List", models.ListFilter{Limit: models.DefaultLimit}).Return([]*models.Material{}, nil)

	w := do(newTestRouter(svc), http.MethodGet, "/materiales/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListMaterialsRejectsBadPaging(t *testing.T) {
	svc := &mockService{}
	r := newTestRouter(svc)

	tests := []struct {
		query string
		field string
	}{
		{query: "skip=-1", field: "skip"},
		{query: "limit=0", field: "limit"},
		{query: "limit=501", field: "limit"},
		{query: "limit=abc", field: "limit"},
		{query: "publicado=maybe", field: "publicado"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/materiales/?"+tt.query, "")
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, []string{tt.field}, detailFields(t, w))
		})
	}
	svc.AssertNotCalled(t, "List", mock.Anything)
}

func TestGetMaterial(t *testing.T) {
	svc := &mockService{}
	m := sampleMaterial()
	svc.On("GetByID", m.ID.Hex()).Return(m, nil)
	svc.On("GetByID", "nope").Return(nil, service.ErrNotFound)
	r := newTestRouter(svc)

	w := do(r, http.MethodGet, "/materiales/"+m.ID.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fechaCreacion":"2024-01-02T03:04:05Z"`)

	w = do(r, http.MethodGet, "/materiales/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Material no encontrado"}`, w.Body.String())
}

func TestUpdateMaterial(t *testing.T) {
	svc := &mockService{}
	m := sampleMaterial()
	m.Titulo = "Nuevo titulo"
	update := models.NewMaterialUpdate(map[string]interface{}{"titulo": "Nuevo titulo"})
	svc.On("Update", m.ID.Hex(), update).Return(m, nil)

	w := do(newTestRouter(svc), http.MethodPut, "/materiales/"+m.ID.Hex(), `{"titulo":"Nuevo titulo","cursoId":"OTRO"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cursoId":"C1"`)
	svc.AssertExpectations(t)
}

func TestUpdateMaterialEmptyBody(t *testing.T) {
	svc := &mockService{}
	m := sampleMaterial()
	svc.On("Update", m.ID.Hex(), mock.MatchedBy(func(u models.MaterialUpdate) bool { return u.IsEmpty() })).Return(m, nil)

	w := do(newTestRouter(svc), http.MethodPut, "/materiales/"+m.ID.Hex(), `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateMaterialErrors(t *testing.T) {
	svc := &mockService{}
	svc.On("Update", "missing", mock.Anything).Return(nil, service.ErrNotFound)
	r := newTestRouter(svc)

	w := do(r, http.MethodPut, "/materiales/missing", `{"titulo":"Nuevo titulo"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/materiales/missing", `{"titulo":"x"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{"titulo"}, detailFields(t, w))
}

func TestDeleteMaterial(t *testing.T) {
	svc := &mockService{}
	svc.On("Delete", "a").Return(true, nil)
	svc.On("Delete", "b").Return(false, nil)
	r := newTestRouter(svc)

	w := do(r, http.MethodDelete, "/materiales/a", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, http.MethodDelete, "/materiales/b", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCourseMaterials(t *testing.T) {
	svc := &mockService{}
	svc.On("ListCourseMaterials", "C1", "S1").Return([]*models.Material{sampleMaterial()}, nil)
	svc.On("ListCourseMaterials", "C1", "").Return([]*models.Material{}, nil)
	r := newTestRouter(svc)

	w := do(r, http.MethodGet, "/materiales/cursos/C1/materiales?estudianteId=S1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp []models.MaterialResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)

	w = do(r, http.MethodGet, "/materiales/cursos/C1/materiales", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCountCourseMaterials(t *testing.T) {
	svc := &mockService{}
	svc.On("Count", "C1").Return(int64(7), nil)

	w := do(newTestRouter(svc), http.MethodGet, "/materiales/cursos/C1/count", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cursoId":"C1","totalMateriales":7}`, w.Body.String())
}

func TestGetMaterialResource(t *testing.T) {
	svc := &mockService{}
	m := sampleMaterial()
	m.Recurso = "minio://materials/v.mp4"
	svc.On("ResourceURL", m.ID.Hex()).Return(m, "http://minio/materials/v.mp4?sig=1", nil)
	svc.On("ResourceURL", "missing").Return(nil, "", service.ErrNotFound)
	r := newTestRouter(svc)

	w := do(r, http.MethodGet, "/materiales/"+m.ID.Hex()+"/recurso", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+m.ID.Hex()+`","recurso":"minio://materials/v.mp4","url":"http://minio/materials/v.mp4?sig=1"}`, w.Body.String())

	w = do(r, http.MethodGet, "/materiales/missing/recurso", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
