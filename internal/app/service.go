package app

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"civicpulse/api/internal/auth"
	"civicpulse/api/internal/authpw"
	"civicpulse/api/internal/blob"
	"civicpulse/api/internal/classify"
	"civicpulse/api/internal/config"
	"civicpulse/api/internal/lifecycle"
	"civicpulse/api/internal/rbac"
	"civicpulse/api/internal/search"
	"civicpulse/api/internal/store"
	"civicpulse/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       int64
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// MediaUpload carries one uploaded file from the HTTP layer.
type MediaUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SubmitInput struct {
	Title          string
	Description    string
	Location       string
	RegionCode     string
	PrivacyConsent bool
	Media          []MediaUpload
}

type UpdateStatusInput struct {
	Status string `json:"status"`
	Remark string `json:"remark"`
}

type FeedbackInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, int64) (store.User, error)
	ListFieldOfficers(context.Context) ([]store.User, error)
	ListDepartments(context.Context) ([]store.Department, error)
	GetDepartmentByCode(context.Context, string) (store.Department, error)
	InsertDepartment(context.Context, string, string) error
	ListRegions(context.Context) ([]store.Region, error)
	GetRegionByCode(context.Context, string) (store.Region, error)
	InsertRegion(context.Context, store.Region) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	CreateGrievance(context.Context, store.Grievance, string) (store.Grievance, error)
	GetGrievance(context.Context, int64) (store.Grievance, error)
	ListGrievances(context.Context, string, int, int) ([]store.Grievance, error)
	ListGrievancesByCitizen(context.Context, int64) ([]store.Grievance, error)
	ListGrievancesByAssignee(context.Context, int64) ([]store.Grievance, error)
	TransitionGrievance(context.Context, int64, string, string) (store.Grievance, error)
	AssignGrievance(context.Context, int64, int64, *int64, string) (store.Grievance, error)
	ListTimeline(context.Context, int64) ([]store.TimelineEntry, error)
	InsertMedia(context.Context, store.Media) (store.Media, error)
	ListMedia(context.Context, int64) ([]store.Media, error)
	CreateFeedback(context.Context, store.Feedback) (store.Feedback, error)
	GetFeedback(context.Context, int64) (store.Feedback, error)
	DashboardCounts(context.Context) (store.DashboardCounts, error)
	Hotspots(context.Context, int) ([]store.Hotspot, error)
	Heatmap(context.Context) ([]store.HeatmapCell, error)
	Ping(ctx context.Context) error
}

// SessionStore holds hashed refresh tokens. Redis when configured, the
// Postgres store otherwise.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (int64, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg        config.Config
	store      dataStore
	sessions   SessionStore
	passwords  *authpw.Service
	classifier *classify.Classifier
	blobs      blob.Store
	search     *search.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions SessionStore, classifier *classify.Classifier, blobs blob.Store, searchSvc *search.Service) *Service {
	return &Service{
		cfg:        cfg,
		store:      dataStore,
		sessions:   sessions,
		passwords:  authpw.NewService(dataStore),
		classifier: classifier,
		blobs:      blobs,
		search:     searchSvc,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

var seedDepartments = []struct {
	Name string
	Code string
}{
	{"Water Supply", "WATER"},
	{"Electricity", "ELEC"},
	{"Roads & Transport", "ROAD"},
	{"Sanitation", "SANI"},
	{"Health", "HLTH"},
	{"General Administration", "GEN"},
	{"Law & Order", "POL"},
}

// Bootstrap seeds departments, demo regions and the initial admin account.
// Safe to run on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, seed := range seedDepartments {
		if err := s.store.InsertDepartment(ctx, seed.Name, seed.Code); err != nil {
			return fmt.Errorf("seed department %s: %w", seed.Code, err)
		}
	}

	regions, err := s.store.ListRegions(ctx)
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		f64 := func(v float64) *float64 { return &v }
		regionSeeds := []store.Region{
			{Name: "Karnataka", Code: "KA", Type: "State", Lat: f64(15.3173), Lng: f64(75.7139)},
			{Name: "Bengaluru Urban", Code: "KA-BLR", Type: "District", Lat: f64(12.9716), Lng: f64(77.5946)},
			{Name: "Mysuru", Code: "KA-MYS", Type: "District", Lat: f64(12.2958), Lng: f64(76.6394)},
		}
		for _, region := range regionSeeds {
			if err := s.store.InsertRegion(ctx, region); err != nil {
				return fmt.Errorf("seed region %s: %w", region.Code, err)
			}
		}
	}

	if _, err := s.store.GetUserByEmail(ctx, "admin@civicpulse.gov"); err != nil {
		hash, err := authpw.HashPassword("ChangeMe!123")
		if err != nil {
			return err
		}
		if _, err := s.store.CreateUser(ctx, store.User{
			Email:        "admin@civicpulse.gov",
			PasswordHash: hash,
			FullName:     "CivicPulse Admin",
			Role:         string(rbac.RoleAdmin),
		}); err != nil && err != store.ErrDuplicateEmail {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	return nil
}

// --- auth ---

func (s *Service) AuthPasswordService() *authpw.Service {
	return s.passwords
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		if err == authpw.ErrEmailTaken {
			return Session{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret),
		strconv.FormatInt(user.ID, 10), user.FullName, user.Role, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.FullName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.FullName,
		Role:      user.Role,
		JTI:       claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// --- grievance lifecycle ---

func (s *Service) Submit(ctx context.Context, session Session, input SubmitInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionSubmit) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title and description are required", nil)
	}

	result, source := s.classifier.Run(ctx, title, description)
	severity := result.SeverityScore
	sentiment := result.SentimentScore

	grievance := store.Grievance{
		Title:          title,
		Description:    description,
		CitizenID:      session.UserID,
		Status:         string(lifecycle.StatusNew),
		Priority:       classify.PriorityFor(severity),
		Category:       result.Category,
		CategoryAI:     result.Category,
		SeverityAI:     &severity,
		IsSpam:         result.IsSpam,
		SentimentScore: &sentiment,
		AISummary:      result.Summary,
		PrivacyConsent: input.PrivacyConsent,
		Location:       strings.TrimSpace(input.Location),
		RegionCode:     strings.TrimSpace(input.RegionCode),
	}

	if dept, err := s.store.GetDepartmentByCode(ctx, classify.DepartmentCode(result.Category)); err == nil {
		grievance.DepartmentID = &dept.ID
	}
	if grievance.RegionCode != "" {
		if region, err := s.store.GetRegionByCode(ctx, grievance.RegionCode); err == nil {
			grievance.RegionID = &region.ID
			if region.Type == "State" {
				grievance.State = region.Name
			}
			if region.Type == "District" {
				grievance.District = region.Name
			}
		}
	}

	created, err := s.store.CreateGrievance(ctx, grievance, "Grievance submitted")
	if err != nil {
		return nil, err
	}

	media := make([]store.Media, 0, len(input.Media))
	for _, upload := range input.Media {
		item, err := s.storeMedia(ctx, created.ID, session.UserID, upload, mediaTypeFor(upload.ContentType))
		if err != nil {
			return nil, err
		}
		media = append(media, item)
	}

	s.indexGrievance(created)

	payload := grievanceJSON(created)
	payload["classification_source"] = source
	payload["media"] = mediaJSON(media)
	return payload, nil
}

func (s *Service) Assign(ctx context.Context, session Session, grievanceID, officerID int64) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionAssign) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	grievance, err := s.store.GetGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	officer, err := s.store.GetUserByID(ctx, officerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "officer not found", nil)
		}
		return nil, err
	}
	if rbac.Role(officer.Role) != rbac.RoleFieldOfficer {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "user is not a field officer", nil)
	}

	if grievance.DepartmentID != nil {
		if officer.DepartmentID == nil || *officer.DepartmentID != *grievance.DepartmentID {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "department mismatch", nil)
		}
	}

	if reason := geoMismatch(grievance, officer); reason != "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", reason, nil)
	}

	updated, err := s.store.AssignGrievance(ctx, grievanceID, officerID, officer.DepartmentID,
		"Assigned to "+officer.FullName)
	if err != nil {
		return nil, err
	}
	s.indexGrievance(updated)
	return grievanceJSON(updated), nil
}

// geoMismatch applies the geographic match in precedence order state >
// district > region. The first level populated on both sides decides; an
// empty string means the assignment may proceed.
func geoMismatch(grievance store.Grievance, officer store.User) string {
	if grievance.State != "" && officer.State != "" {
		if !strings.EqualFold(grievance.State, officer.State) {
			return "state mismatch"
		}
		return ""
	}
	if grievance.District != "" && officer.District != "" {
		if !strings.EqualFold(grievance.District, officer.District) {
			return "district mismatch"
		}
		return ""
	}
	if grievance.RegionID != nil && officer.RegionID != nil {
		if *grievance.RegionID != *officer.RegionID {
			return "region mismatch"
		}
		return ""
	}
	if grievance.RegionCode != "" && officer.RegionCode != "" {
		if !strings.EqualFold(grievance.RegionCode, officer.RegionCode) {
			return "region mismatch"
		}
	}
	return ""
}

func (s *Service) UpdateStatus(ctx context.Context, session Session, grievanceID int64, input UpdateStatusInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionUpdateStatus) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	newStatus := strings.TrimSpace(input.Status)
	if !lifecycle.ValidStatus(newStatus) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", nil)
	}

	grievance, err := s.store.GetGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyTransition(ctx, session, grievance, lifecycle.Status(newStatus), strings.TrimSpace(input.Remark))
	if err != nil {
		return nil, err
	}
	return grievanceJSON(updated), nil
}

// applyTransition enforces actor and transition rules shared by UpdateStatus,
// Resolve and Verify, then performs the atomic status change. A same-status
// update is a no-op and writes no timeline row.
func (s *Service) applyTransition(ctx context.Context, session Session, grievance store.Grievance, to lifecycle.Status, remark string) (store.Grievance, error) {
	from := lifecycle.Status(grievance.Status)
	role := rbac.Normalize(session.Role)

	if role == rbac.RoleFieldOfficer {
		if grievance.AssigneeID == nil || *grievance.AssigneeID != session.UserID {
			return store.Grievance{}, domainError(http.StatusForbidden, "FORBIDDEN", "grievance is not assigned to you", nil)
		}
	}

	if from == to {
		return grievance, nil
	}

	if role == rbac.RoleFieldOfficer && !lifecycle.CanTransition(from, to) {
		return store.Grievance{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("invalid transition %s -> %s", from, to), nil)
	}

	// The timeline row always records old status, new status and actor role,
	// whether or not the caller supplied a remark.
	detail := fmt.Sprintf("Status changed from %s to %s by %s", from, to, role)
	if remark == "" {
		remark = detail
	} else {
		remark = fmt.Sprintf("%s (%s)", remark, detail)
	}
	updated, err := s.store.TransitionGrievance(ctx, grievance.ID, string(to), remark)
	if err != nil {
		return store.Grievance{}, err
	}
	s.indexGrievance(updated)
	return updated, nil
}

func (s *Service) Resolve(ctx context.Context, session Session, grievanceID int64, evidence *MediaUpload) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionResolve) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	grievance, err := s.store.GetGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyTransition(ctx, session, grievance, lifecycle.StatusPendingVerification,
		"Resolution submitted, pending verification")
	if err != nil {
		return nil, err
	}

	payload := grievanceJSON(updated)
	if evidence != nil {
		item, err := s.storeMedia(ctx, grievanceID, session.UserID, *evidence, "resolution_image")
		if err != nil {
			return nil, err
		}
		payload["resolution_media"] = mediaJSON([]store.Media{item})[0]
	}
	return payload, nil
}

func (s *Service) Verify(ctx context.Context, session Session, grievanceID int64) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionVerify) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	grievance, err := s.store.GetGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if lifecycle.Status(grievance.Status) != lifecycle.StatusPendingVerification {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"grievance is not pending verification", nil)
	}

	updated, err := s.store.TransitionGrievance(ctx, grievanceID, string(lifecycle.StatusResolved), "Resolution verified")
	if err != nil {
		return nil, err
	}
	s.indexGrievance(updated)
	return grievanceJSON(updated), nil
}

func (s *Service) Feedback(ctx context.Context, session Session, grievanceID int64, input FeedbackInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionFeedback) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	grievance, err := s.store.GetGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if grievance.CitizenID != session.UserID {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "only the grievance owner may leave feedback", nil)
	}
	if lifecycle.Status(grievance.Status) != lifecycle.StatusResolved {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"feedback is only accepted on resolved grievances", nil)
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be between 1 and 5", nil)
	}

	feedback, err := s.store.CreateFeedback(ctx, store.Feedback{
		GrievanceID: grievanceID,
		Rating:      input.Rating,
		Comment:     strings.TrimSpace(input.Comment),
	})
	if err != nil {
		if err == store.ErrDuplicateFeedback {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				"feedback already submitted for this grievance", nil)
		}
		return nil, err
	}

	return map[string]any{
		"id":           feedback.ID,
		"grievance_id": feedback.GrievanceID,
		"rating":       feedback.Rating,
		"comment":      feedback.Comment,
		"created_at":   feedback.CreatedAt.Format(time.RFC3339),
	}, nil
}

// --- reads ---

func (s *Service) GetGrievance(ctx context.Context, session Session, grievanceID int64) (map[string]any, error) {
	grievance, err := s.store.GetGrievance(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	if !s.canSee(session, grievance) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	timeline, err := s.store.ListTimeline(ctx, grievanceID)
	if err != nil {
		return nil, err
	}
	media, err := s.store.ListMedia(ctx, grievanceID)
	if err != nil {
		return nil, err
	}

	payload := grievanceJSON(grievance)
	payload["timeline"] = timelineJSON(timeline)
	payload["media"] = mediaJSON(media)
	if feedback, err := s.store.GetFeedback(ctx, grievanceID); err == nil {
		payload["feedback"] = map[string]any{
			"rating":     feedback.Rating,
			"comment":    feedback.Comment,
			"created_at": feedback.CreatedAt.Format(time.RFC3339),
		}
	}
	return payload, nil
}

func (s *Service) canSee(session Session, grievance store.Grievance) bool {
	role := rbac.Normalize(session.Role)
	if rbac.Staff(role) {
		return true
	}
	return grievance.CitizenID == session.UserID
}

func (s *Service) ListMy(ctx context.Context, session Session) ([]map[string]any, error) {
	items, err := s.store.ListGrievancesByCitizen(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return grievanceListJSON(items), nil
}

func (s *Service) ListAssigned(ctx context.Context, session Session) ([]map[string]any, error) {
	items, err := s.store.ListGrievancesByAssignee(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return grievanceListJSON(items), nil
}

func (s *Service) ListAll(ctx context.Context, session Session, status string, skip, limit int) ([]map[string]any, error) {
	if !rbac.Staff(rbac.Normalize(session.Role)) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if status != "" && !lifecycle.ValidStatus(status) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", nil)
	}
	items, err := s.store.ListGrievances(ctx, status, skip, limit)
	if err != nil {
		return nil, err
	}
	return grievanceListJSON(items), nil
}

func (s *Service) SearchGrievances(session Session, q, status, category string, limit, offset int) search.Response {
	query := search.Query{
		Text:           q,
		FilterStatus:   status,
		FilterCategory: category,
		Limit:          limit,
		Offset:         offset,
	}
	if !rbac.Staff(rbac.Normalize(session.Role)) {
		query.CitizenID = session.UserID
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(query)
}

// --- metadata ---

func (s *Service) Departments(ctx context.Context) ([]map[string]any, error) {
	departments, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(departments))
	for _, department := range departments {
		items = append(items, map[string]any{
			"id":   department.ID,
			"name": department.Name,
			"code": department.Code,
		})
	}
	return items, nil
}

func (s *Service) Regions(ctx context.Context) ([]map[string]any, error) {
	regions, err := s.store.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(regions))
	for _, region := range regions {
		items = append(items, map[string]any{
			"id":        region.ID,
			"name":      region.Name,
			"code":      region.Code,
			"type":      region.Type,
			"parent_id": region.ParentID,
			"lat":       region.Lat,
			"lng":       region.Lng,
		})
	}
	return items, nil
}

// --- chat ---

func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	provider := s.classifier.ChatProvider()
	if provider == nil {
		return "", domainError(http.StatusServiceUnavailable, "CHAT_UNAVAILABLE", "Assistant is not configured", nil)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message is required", nil)
	}
	reply, err := provider.Chat(ctx, message)
	if err != nil {
		return "", domainError(http.StatusBadGateway, "CHAT_FAILED", "Assistant is unavailable", nil)
	}
	return reply, nil
}

// --- helpers ---

func (s *Service) storeMedia(ctx context.Context, grievanceID, uploaderID int64, upload MediaUpload, mediaType string) (store.Media, error) {
	if s.blobs == nil {
		return store.Media{}, domainError(http.StatusServiceUnavailable, "SERVER_ERROR", "media storage is not configured", nil)
	}
	objectName := uuid.New().String() + filepath.Ext(upload.Filename)
	url, err := s.blobs.Put(ctx, objectName, upload.ContentType, bytes.NewReader(upload.Data), int64(len(upload.Data)))
	if err != nil {
		return store.Media{}, fmt.Errorf("store media: %w", err)
	}
	return s.store.InsertMedia(ctx, store.Media{
		GrievanceID: grievanceID,
		UploaderID:  &uploaderID,
		URL:         url,
		Type:        mediaType,
	})
}

func mediaTypeFor(contentType string) string {
	if strings.HasPrefix(contentType, "image/") {
		return "image"
	}
	return "document"
}

func (s *Service) indexGrievance(grievance store.Grievance) {
	if s.search == nil {
		return
	}
	s.search.IndexGrievance(search.GrievanceRecord{
		ID:          grievance.ID,
		Title:       grievance.Title,
		Description: grievance.Description,
		Category:    grievance.Category,
		Status:      grievance.Status,
		Priority:    grievance.Priority,
		CitizenID:   grievance.CitizenID,
		State:       grievance.State,
		District:    grievance.District,
	})
}

func grievanceJSON(g store.Grievance) map[string]any {
	payload := map[string]any{
		"id":              g.ID,
		"title":           g.Title,
		"description":     g.Description,
		"citizen_id":      g.CitizenID,
		"department_id":   g.DepartmentID,
		"assignee_id":     g.AssigneeID,
		"region_id":       g.RegionID,
		"status":          g.Status,
		"priority":        g.Priority,
		"category":        g.Category,
		"category_ai":     g.CategoryAI,
		"severity_ai":     g.SeverityAI,
		"is_spam":         g.IsSpam,
		"sentiment_score": g.SentimentScore,
		"ai_summary":      g.AISummary,
		"privacy_consent": g.PrivacyConsent,
		"location":        g.Location,
		"region_code":     g.RegionCode,
		"state":           g.State,
		"district":        g.District,
		"created_at":      g.CreatedAt.Format(time.RFC3339),
	}
	if g.UpdatedAt != nil {
		payload["updated_at"] = g.UpdatedAt.Format(time.RFC3339)
	}
	return payload
}

func grievanceListJSON(items []store.Grievance) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, grievanceJSON(item))
	}
	return out
}

func timelineJSON(entries []store.TimelineEntry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"id":         entry.ID,
			"status":     entry.Status,
			"remark":     entry.Remark,
			"created_at": entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func mediaJSON(items []store.Media) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"id":   item.ID,
			"url":  item.URL,
			"type": item.Type,
		})
	}
	return out
}
