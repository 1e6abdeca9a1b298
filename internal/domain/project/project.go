// Package project manages the source trees users upload for the
// assistant to answer questions about.
package project

import (
	"context"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

// languageByExtension maps upload extensions to a display language.
var languageByExtension = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".jsx":  "javascript",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "shell",
	".sql":  "sql",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".toml": "toml",
	".txt":  "text",
}

// Service owns project and source-file persistence.
type Service struct {
	db     *gorm.DB
	upload config.UploadConfig
	logger *logging.Logger
}

// NewService builds the project service.
func NewService(db *gorm.DB, upload config.UploadConfig, logger *logging.Logger) *Service {
	return &Service{db: db, upload: upload, logger: logger}
}

// Create registers an empty project.
func (s *Service) Create(ctx context.Context, userID uint, name, description string) (*storage.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.KindTransport, "project.create", "project name is required")
	}
	project := storage.Project{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "project.create", "create project", err)
	}
	s.logger.InfoTag("STORAGE", "created project", "name", name)
	return &project, nil
}

// List returns the user's projects without file contents.
func (s *Service) List(ctx context.Context, userID uint) ([]storage.Project, error) {
	var projects []storage.Project
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&projects).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "project.list", "list projects", err)
	}
	return projects, nil
}

// Get loads a project with its files, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, projectID uint) (*storage.Project, error) {
	var project storage.Project
	err := s.db.WithContext(ctx).
		Preload("Files").
		Where("id = ? AND user_id = ?", projectID, userID).
		First(&project).Error
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "project.get", "project not found", err)
	}
	return &project, nil
}

// Delete removes a project and its files.
func (s *Service) Delete(ctx context.Context, userID, projectID uint) error {
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", project.ID).Delete(&storage.SourceFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&storage.Project{}, project.ID).Error
	})
	if err != nil {
		return errors.Wrap(errors.KindStorage, "project.delete", "delete project", err)
	}
	return nil
}

// AddFile validates and stores one uploaded source file. A re-upload of
// the same filename replaces the previous content.
func (s *Service) AddFile(ctx context.Context, userID, projectID uint, name string, content []byte) (*storage.SourceFile, error) {
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return nil, errors.New(errors.KindTransport, "project.addfile", "file name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !s.extensionAllowed(ext) {
		return nil, errors.New(errors.KindTransport, "project.addfile", "file type not allowed: "+ext)
	}
	if s.upload.MaxFileSize > 0 && int64(len(content)) > s.upload.MaxFileSize {
		return nil, errors.New(errors.KindTransport, "project.addfile", "file exceeds size limit")
	}

	file := storage.SourceFile{
		ProjectID: project.ID,
		Name:      name,
		Language:  languageByExtension[ext],
		Size:      int64(len(content)),
		Content:   string(content),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND name = ?", project.ID, name).
			Delete(&storage.SourceFile{}).Error; err != nil {
			return err
		}
		return tx.Create(&file).Error
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "project.addfile", "save file", err)
	}

	s.logger.DebugTag("STORAGE", "stored source file",
		"project", project.Name, "file", name, "size", file.Size)
	return &file, nil
}

func (s *Service) extensionAllowed(ext string) bool {
	if len(s.upload.AllowedExtensions) == 0 {
		_, known := languageByExtension[ext]
		return known
	}
	for _, allowed := range s.upload.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
