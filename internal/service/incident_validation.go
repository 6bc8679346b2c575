package service

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cityreport/incident-service/internal/domain"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

// UploadKeyPrefix is the namespace every issued upload key lives under.
const UploadKeyPrefix = "temp-uploads/"

// AllowedExtensions lists the accepted attachment file extensions.
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var uploadKeyPattern = regexp.MustCompile(`^temp-uploads/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|jpeg|png|gif|webp)$`)

func validateImageURLs(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(raw))
	for _, candidate := range raw {
		candidate = strings.TrimSpace(candidate)
		u, err := url.ParseRequestURI(candidate)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperrors.NewValidationError("invalid image URL format", map[string]any{"imageUrl": candidate})
		}
		out = append(out, candidate)
	}
	return out, nil
}

func validateAttachments(raw []AttachmentInput) ([]domain.Attachment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > MaxUploadFiles {
		return nil, apperrors.NewValidationError("too many attachments", map[string]any{"max": MaxUploadFiles})
	}
	out := make([]domain.Attachment, 0, len(raw))
	for _, a := range raw {
		key := strings.TrimSpace(a.Key)
		if !uploadKeyPattern.MatchString(key) {
			return nil, apperrors.NewValidationError("invalid attachment key", map[string]any{"key": key})
		}
		contentType := strings.TrimSpace(a.ContentType)
		if contentType == "" {
			contentType = mime.TypeByExtension(path.Ext(key))
		}
		out = append(out, domain.Attachment{Key: key, ContentType: contentType})
	}
	return out, nil
}

func allowedExtension(filename string) (string, bool) {
	ext := strings.ToLower(path.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return ext, true
		}
	}
	return "", false
}
