package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/cityreport/incident-service/internal/auth"
	"github.com/cityreport/incident-service/internal/domain"
	"github.com/cityreport/incident-service/internal/service"
	apperrors "github.com/cityreport/incident-service/pkg/util/errorutil"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeBody parses the JSON body into dst and runs struct validation.
// An empty body decodes as an empty object.
func decodeBody(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			return apperrors.NewValidationError("invalid JSON", nil)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[jsonFieldName(fe.Namespace())] = rule
	}
	return apperrors.NewValidationError("invalid payload", details)
}

// jsonFieldName turns "CreateIncidentRequest.ImageURLs[0]" into "imageURLs[0]".
func jsonFieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	if namespace == "" {
		return namespace
	}
	return strings.ToLower(namespace[:1]) + namespace[1:]
}

func callerFrom(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := auth.CallerFromContext(c)
	if !ok || caller.ID == "" {
		return domain.Caller{}, apperrors.NewUnauthorized("missing identity")
	}
	return caller, nil
}

func parseListQuery(c *fiber.Ctx) service.ListQuery {
	query := service.ListQuery{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Severity: c.Query("severity"),
		SortBy:   c.Query("sortBy"),
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			query.Limit = limit
		}
	}
	return query
}
