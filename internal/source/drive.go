package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"drive-rag-chatbot/internal/logger"
	"drive-rag-chatbot/models"
)

const googleDocMIME = "application/vnd.google-apps.document"

// DriveSource loads documents from a Google Drive folder using a read-only
// service account. Plain text files are downloaded directly; Google Docs are
// exported as plain text. Other types are skipped.
type DriveSource struct {
	service  *drive.Service
	folderID string
}

// NewDriveSource authenticates with the service account key JSON and targets
// one folder.
func NewDriveSource(ctx context.Context, credentialsJSON, folderID string) (*DriveSource, error) {
	if folderID == "" {
		return nil, fmt.Errorf("google drive folder ID not specified")
	}

	service, err := drive.NewService(ctx,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(drive.DriveReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Drive service: %w", err)
	}

	return &DriveSource{service: service, folderID: folderID}, nil
}

// TestConnection verifies the folder is reachable with the configured
// credentials.
func (s *DriveSource) TestConnection(ctx context.Context) error {
	folder, err := s.service.Files.Get(s.folderID).
		Fields("id, name, mimeType").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("google drive connection test failed: %w", err)
	}
	logger.Info("connected to Google Drive folder", "folder_id", folder.Id, "name", folder.Name)
	return nil
}

// Load lists supported files in the folder and downloads each one. A file
// that fails to download or yields no text is skipped with a warning.
func (s *DriveSource) Load(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(
		"'%s' in parents and (mimeType='text/plain' or mimeType='%s') and trashed=false",
		s.folderID, googleDocMIME)

	list, err := s.service.Files.List().
		Q(query).
		Fields("files(id, name, size, modifiedTime, mimeType)").
		PageSize(100).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list Google Drive folder %s: %w", s.folderID, err)
	}

	if len(list.Files) == 0 {
		logger.Warn("no supported files found in Google Drive folder", "folder_id", s.folderID)
		return nil, nil
	}
	logger.Info("found files in Google Drive folder", "count", len(list.Files))

	var docs []models.Document
	for _, file := range list.Files {
		content, err := s.download(ctx, file)
		if err != nil {
			logger.Warn("skipping file", "name", file.Name, "error", err)
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			logger.Warn("skipping file with no extractable text", "name", file.Name)
			continue
		}

		docs = append(docs, models.Document{
			ID:           file.Id,
			Name:         file.Name,
			Content:      content,
			Size:         file.Size,
			ModifiedTime: file.ModifiedTime,
			SourceType:   "google_drive",
		})
		logger.Debug("loaded document", "name", file.Name, "chars", len(content))
	}

	logger.Info("loaded documents from Google Drive", "count", len(docs))
	return docs, nil
}

func (s *DriveSource) download(ctx context.Context, file *drive.File) (string, error) {
	if file.MimeType == googleDocMIME {
		res, exportErr := s.service.Files.Export(file.Id, "text/plain").Context(ctx).Download()
		if exportErr != nil {
			return "", fmt.Errorf("export failed: %w", exportErr)
		}
		defer res.Body.Close()
		data, readErr := io.ReadAll(res.Body)
		if readErr != nil {
			return "", fmt.Errorf("failed to read export: %w", readErr)
		}
		return string(data), nil
	}

	res, err := s.service.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read download: %w", err)
	}
	return string(data), nil
}
