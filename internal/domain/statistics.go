package domain

// Statistics holds grouped counts over a set of incidents.
type Statistics struct {
	Total      int
	ByStatus   map[Status]int
	ByCategory map[Category]int
	BySeverity map[Severity]int
	Districts  []DistrictStatistics
}

// DistrictStatistics groups counts for one region/district pair.
type DistrictStatistics struct {
	Region     string
	District   string
	Total      int
	ByStatus   map[Status]int
	ByCategory map[Category]int
}
