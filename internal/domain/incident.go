package domain

import "time"

// Category classifies what kind of problem an incident reports.
type Category string

const (
	CategoryInfrastructure Category = "INFRASTRUCTURE"
	CategoryUtilities      Category = "UTILITIES"
	CategorySafety         Category = "SAFETY"
	CategoryEnvironment    Category = "ENVIRONMENT"
	CategoryTransportation Category = "TRANSPORTATION"
	CategoryPublicServices Category = "PUBLIC_SERVICES"
	CategoryOther          Category = "OTHER"
)

// Categories lists every accepted category.
var Categories = []Category{
	CategoryInfrastructure,
	CategoryUtilities,
	CategorySafety,
	CategoryEnvironment,
	CategoryTransportation,
	CategoryPublicServices,
	CategoryOther,
}

var categoryAliases = map[string]Category{
	"GENERAL": CategoryOther,
}

// ParseCategory normalises raw input into a Category.
func ParseCategory(raw string) (Category, bool) {
	token := NormalizeToken(raw)
	for _, c := range Categories {
		if string(c) == token {
			return c, true
		}
	}
	c, ok := categoryAliases[token]
	return c, ok
}

// Severity expresses urgency.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Severities lists every accepted severity from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// ParseSeverity normalises raw input into a Severity.
func ParseSeverity(raw string) (Severity, bool) {
	token := NormalizeToken(raw)
	for _, s := range Severities {
		if string(s) == token {
			return s, true
		}
	}
	return "", false
}

// Rank orders severities for priority sorting. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Attachment references an uploaded object.
type Attachment struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	DownloadURL string `json:"-"`
}

// Incident is the aggregate for citizen reports.
type Incident struct {
	ID             string
	ReporterUserID string
	ReporterEmail  string
	Title          string
	Description    string
	Category       Category
	Severity       Severity
	Status         Status
	Region         string
	District       string
	Location       string
	ImageURLs      []string
	Attachments    []Attachment
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UpdatedBy      *string
	Comments       *string
	AssignedTo     *string
}

// Clone returns a deep copy so stores and callers never share slices.
func (i Incident) Clone() Incident {
	out := i
	if i.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), i.ImageURLs...)
	}
	if i.Attachments != nil {
		out.Attachments = append([]Attachment(nil), i.Attachments...)
	}
	out.UpdatedBy = cloneString(i.UpdatedBy)
	out.Comments = cloneString(i.Comments)
	out.AssignedTo = cloneString(i.AssignedTo)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
