package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/storage"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

// MaxUploadFiles bounds one upload URL request.
const MaxUploadFiles = 10

// AttachmentService issues presigned upload URLs for incident images.
type AttachmentService struct {
	issuer        storage.URLIssuer
	authz         Authorizer
	publicBaseURL string
	uploadTTL     time.Duration
	timeout       time.Duration
	logger        *zap.Logger
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	URLIssuer     storage.URLIssuer
	Authorizer    Authorizer
	PublicBaseURL string
	UploadTTL     time.Duration
	Timeout       time.Duration
	Logger        *zap.Logger
}

// UploadFile names a file the client intends to upload.
type UploadFile struct {
	Name        string
	ContentType string
}

// UploadTarget is where one file should be PUT and where it will live.
type UploadTarget struct {
	OriginalFilename string
	UploadURL        string
	FileURL          string
	Key              string
}

// UploadBatch is the response to one upload URL request.
type UploadBatch struct {
	Targets   []UploadTarget
	ExpiresIn time.Duration
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	svc := &AttachmentService{
		issuer:        deps.URLIssuer,
		authz:         deps.Authorizer,
		publicBaseURL: strings.TrimRight(deps.PublicBaseURL, "/"),
		uploadTTL:     deps.UploadTTL,
		timeout:       deps.Timeout,
		logger:        deps.Logger,
	}
	if svc.uploadTTL <= 0 {
		svc.uploadTTL = 300 * time.Second
	}
	if svc.timeout <= 0 {
		svc.timeout = defaultDependencyTimeout
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// IssueUploadURLs validates the requested files and returns one presigned
// upload URL per file under a fresh key.
func (s *AttachmentService) IssueUploadURLs(ctx context.Context, caller domain.Caller, files []UploadFile) (*UploadBatch, error) {
	if !s.authz.Allowed(caller, domain.PermIssueUploadURLs) {
		return nil, apperrors.NewForbidden("insufficient permissions to upload attachments")
	}
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("Files array is required", nil)
	}
	if len(files) > MaxUploadFiles {
		return nil, apperrors.NewValidationError("Maximum 10 files allowed", map[string]any{"max": MaxUploadFiles})
	}

	type planned struct {
		file UploadFile
		key  string
	}
	plan := make([]planned, 0, len(files))
	for _, f := range files {
		f.Name = strings.TrimSpace(f.Name)
		f.ContentType = strings.TrimSpace(f.ContentType)
		if f.Name == "" || f.ContentType == "" {
			return nil, apperrors.NewValidationError("Each file must include { name, type }", nil)
		}
		ext, ok := allowedExtension(f.Name)
		if !ok {
			return nil, apperrors.NewValidationError("Invalid file type. Allowed: "+strings.Join(AllowedExtensions, ", "),
				map[string]any{"file": f.Name})
		}
		plan = append(plan, planned{file: f, key: UploadKeyPrefix + uuid.NewString() + ext})
	}

	if s.issuer == nil {
		return nil, apperrors.NewDependencyError("attachment storage", errors.New("attachment storage not configured"))
	}

	batch := &UploadBatch{Targets: make([]UploadTarget, 0, len(plan)), ExpiresIn: s.uploadTTL}
	for _, p := range plan {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		uploadURL, err := s.issuer.IssueUploadURL(callCtx, p.key, p.file.ContentType, s.uploadTTL)
		cancel()
		if err != nil {
			return nil, apperrors.NewDependencyError("attachment storage", err)
		}
		batch.Targets = append(batch.Targets, UploadTarget{
			OriginalFilename: p.file.Name,
			UploadURL:        uploadURL,
			FileURL:          s.publicBaseURL + "/" + p.key,
			Key:              p.key,
		})
	}

	s.logger.Debug("issued upload urls", zap.String("caller_id", caller.ID), zap.Int("count", len(batch.Targets)))
	return batch, nil
}
