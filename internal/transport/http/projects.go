package httptransport

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/diagram"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/project"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
)

// ProjectService exposes project CRUD, file upload and diagrams.
type ProjectService struct {
	projects *project.Service
	diagrams *diagram.Service
	logger   *logging.Logger
}

// NewProjectService builds the project transport service.
func NewProjectService(projects *project.Service, diagrams *diagram.Service, logger *logging.Logger) *ProjectService {
	return &ProjectService{projects: projects, diagrams: diagrams, logger: logger}
}

// Register wires the secured project routes.
func (s *ProjectService) Register(secured *gin.RouterGroup) {
	secured.POST("/projects", s.handleCreate)
	secured.GET("/projects", s.handleList)
	secured.GET("/projects/:id", s.handleGet)
	secured.DELETE("/projects/:id", s.handleDelete)
	secured.POST("/projects/:id/files", s.handleUpload)
	secured.POST("/projects/:id/diagram", s.handleDiagram)
}

func projectID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid project id", nil)
		return 0, false
	}
	return uint(id), true
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *ProjectService) handleCreate(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "project name is required", nil)
		return
	}
	proj, err := s.projects.Create(c.Request.Context(), CurrentUserID(c), req.Name, req.Description)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to create project", nil)
		return
	}
	RespondSuccess(c, http.StatusCreated, proj, "project created")
}

func (s *ProjectService) handleList(c *gin.Context) {
	projects, err := s.projects.List(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to list projects", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, projects, "")
}

func (s *ProjectService) handleGet(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	proj, err := s.projects.Get(c.Request.Context(), CurrentUserID(c), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "project not found", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, proj, "")
}

func (s *ProjectService) handleDelete(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := s.projects.Delete(c.Request.Context(), CurrentUserID(c), id); err != nil {
		RespondError(c, http.StatusNotFound, "project not found", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, nil, "project deleted")
}

// handleUpload accepts multipart form uploads under the "files" field.
func (s *ProjectService) handleUpload(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "multipart form required", nil)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		RespondError(c, http.StatusBadRequest, "no files provided", nil)
		return
	}

	userID := CurrentUserID(c)
	stored := make([]string, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "unreadable upload: "+header.Filename, nil)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			RespondError(c, http.StatusBadRequest, "unreadable upload: "+header.Filename, nil)
			return
		}

		file, err := s.projects.AddFile(c.Request.Context(), userID, id, header.Filename, content)
		if err != nil {
			RespondError(c, http.StatusBadRequest, err.Error(), gin.H{"stored": stored})
			return
		}
		stored = append(stored, file.Name)
	}
	RespondSuccess(c, http.StatusCreated, gin.H{"stored": stored}, "files uploaded")
}

type diagramRequest struct {
	Kind  string `json:"kind"`
	Focus string `json:"focus"`
}

func (s *ProjectService) handleDiagram(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req diagramRequest
	_ = c.ShouldBindJSON(&req)

	result, err := s.diagrams.Generate(c.Request.Context(), CurrentUserID(c), id, req.Kind, req.Focus)
	if err != nil {
		RespondError(c, http.StatusBadGateway, "diagram generation failed", nil)
		return
	}
	RespondSuccess(c, http.StatusOK, result, "")
}
