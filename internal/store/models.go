package store

import "time"

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	PhoneNumber  string
	DepartmentID *int64
	RegionID     *int64
	// RegionCode is the legacy flat code kept alongside the region FK.
	RegionCode string
	State      string
	District   string
	CreatedAt  time.Time
}

type Department struct {
	ID   int64
	Name string
	Code string
}

type Region struct {
	ID       int64
	Name     string
	Code     string
	Type     string
	ParentID *int64
	Lat      *float64
	Lng      *float64
}

type Grievance struct {
	ID           int64
	Title        string
	Description  string
	CitizenID    int64
	DepartmentID *int64
	AssigneeID   *int64
	RegionID     *int64

	Status   string
	Priority string
	Category string

	CategoryAI     string
	SeverityAI     *float64
	IsSpam         bool
	SentimentScore *float64
	AISummary      string

	PrivacyConsent bool
	Location       string
	RegionCode     string
	State          string
	District       string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// TimelineEntry is one append-only audit row; exactly one is written per
// real status transition.
type TimelineEntry struct {
	ID          int64
	GrievanceID int64
	Status      string
	Remark      string
	CreatedAt   time.Time
}

type Feedback struct {
	ID          int64
	GrievanceID int64
	Rating      int
	Comment     string
	CreatedAt   time.Time
}

type Media struct {
	ID          int64
	GrievanceID int64
	UploaderID  *int64
	URL         string
	Type        string
	CreatedAt   time.Time
}

type DashboardCounts struct {
	Total    int
	Open     int
	Resolved int
	Critical int
}

// Hotspot is a district/state grouping of non-resolved grievances.
type Hotspot struct {
	State    string
	District string
	Count    int
}

// HeatmapCell aggregates grievances sharing a region coordinate pair.
type HeatmapCell struct {
	Lat    float64
	Lng    float64
	Weight float64
	Count  int
}
