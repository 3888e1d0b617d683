package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"civicpulse/api/internal/authpw"
	"civicpulse/api/internal/classify"
	"civicpulse/api/internal/config"
	"civicpulse/api/internal/store"
)

type transitionCall struct {
	id     int64
	status string
	remark string
}

type assignCall struct {
	id           int64
	officerID    int64
	departmentID *int64
	remark       string
}

type fakeStore struct {
	createUserFn          func(context.Context, store.User) (store.User, error)
	getUserByEmailFn      func(context.Context, string) (store.User, error)
	getUserByIDFn         func(context.Context, int64) (store.User, error)
	listFieldOfficersFn   func(context.Context) ([]store.User, error)
	getDepartmentByCodeFn func(context.Context, string) (store.Department, error)
	getRegionByCodeFn     func(context.Context, string) (store.Region, error)
	createGrievanceFn     func(context.Context, store.Grievance, string) (store.Grievance, error)
	getGrievanceFn        func(context.Context, int64) (store.Grievance, error)
	listGrievancesFn      func(context.Context, string, int, int) ([]store.Grievance, error)
	createFeedbackFn      func(context.Context, store.Feedback) (store.Feedback, error)
	getFeedbackFn         func(context.Context, int64) (store.Feedback, error)
	dashboardCountsFn     func(context.Context) (store.DashboardCounts, error)
	hotspotsFn            func(context.Context, int) ([]store.Hotspot, error)
	heatmapFn             func(context.Context) ([]store.HeatmapCell, error)

	transitions []transitionCall
	assigns     []assignCall

	refreshSessions map[string]int64
	revokedJTIs     map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		refreshSessions: make(map[string]int64),
		revokedJTIs:     make(map[string]bool),
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	user.ID = 1
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) ListFieldOfficers(ctx context.Context) ([]store.User, error) {
	if f.listFieldOfficersFn != nil {
		return f.listFieldOfficersFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) ListDepartments(context.Context) ([]store.Department, error) { return nil, nil }

func (f *fakeStore) GetDepartmentByCode(ctx context.Context, code string) (store.Department, error) {
	if f.getDepartmentByCodeFn != nil {
		return f.getDepartmentByCodeFn(ctx, code)
	}
	return store.Department{}, sql.ErrNoRows
}

func (f *fakeStore) InsertDepartment(context.Context, string, string) error { return nil }
func (f *fakeStore) ListRegions(context.Context) ([]store.Region, error)   { return nil, nil }

func (f *fakeStore) GetRegionByCode(ctx context.Context, code string) (store.Region, error) {
	if f.getRegionByCodeFn != nil {
		return f.getRegionByCodeFn(ctx, code)
	}
	return store.Region{}, sql.ErrNoRows
}

func (f *fakeStore) InsertRegion(context.Context, store.Region) error { return nil }

func (f *fakeStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	f.revokedJTIs[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	return f.revokedJTIs[jti], nil
}

func (f *fakeStore) CreateGrievance(ctx context.Context, g store.Grievance, remark string) (store.Grievance, error) {
	if f.createGrievanceFn != nil {
		return f.createGrievanceFn(ctx, g, remark)
	}
	g.ID = 1
	g.CreatedAt = time.Now()
	return g, nil
}

func (f *fakeStore) GetGrievance(ctx context.Context, id int64) (store.Grievance, error) {
	if f.getGrievanceFn != nil {
		return f.getGrievanceFn(ctx, id)
	}
	return store.Grievance{}, sql.ErrNoRows
}

func (f *fakeStore) ListGrievances(ctx context.Context, status string, skip, limit int) ([]store.Grievance, error) {
	if f.listGrievancesFn != nil {
		return f.listGrievancesFn(ctx, status, skip, limit)
	}
	return nil, nil
}

func (f *fakeStore) ListGrievancesByCitizen(context.Context, int64) ([]store.Grievance, error) {
	return nil, nil
}

func (f *fakeStore) ListGrievancesByAssignee(context.Context, int64) ([]store.Grievance, error) {
	return nil, nil
}

func (f *fakeStore) TransitionGrievance(_ context.Context, id int64, status, remark string) (store.Grievance, error) {
	f.transitions = append(f.transitions, transitionCall{id: id, status: status, remark: remark})
	return store.Grievance{ID: id, Status: status}, nil
}

func (f *fakeStore) AssignGrievance(_ context.Context, id, officerID int64, departmentID *int64, remark string) (store.Grievance, error) {
	f.assigns = append(f.assigns, assignCall{id: id, officerID: officerID, departmentID: departmentID, remark: remark})
	return store.Grievance{ID: id, Status: "Assigned", AssigneeID: &officerID, DepartmentID: departmentID}, nil
}

func (f *fakeStore) ListTimeline(context.Context, int64) ([]store.TimelineEntry, error) {
	return nil, nil
}

func (f *fakeStore) InsertMedia(_ context.Context, media store.Media) (store.Media, error) {
	media.ID = 1
	return media, nil
}

func (f *fakeStore) ListMedia(context.Context, int64) ([]store.Media, error) { return nil, nil }

func (f *fakeStore) CreateFeedback(ctx context.Context, feedback store.Feedback) (store.Feedback, error) {
	if f.createFeedbackFn != nil {
		return f.createFeedbackFn(ctx, feedback)
	}
	feedback.ID = 1
	feedback.CreatedAt = time.Now()
	return feedback, nil
}

func (f *fakeStore) GetFeedback(ctx context.Context, grievanceID int64) (store.Feedback, error) {
	if f.getFeedbackFn != nil {
		return f.getFeedbackFn(ctx, grievanceID)
	}
	return store.Feedback{}, sql.ErrNoRows
}

func (f *fakeStore) DashboardCounts(ctx context.Context) (store.DashboardCounts, error) {
	if f.dashboardCountsFn != nil {
		return f.dashboardCountsFn(ctx)
	}
	return store.DashboardCounts{}, nil
}

func (f *fakeStore) Hotspots(ctx context.Context, limit int) ([]store.Hotspot, error) {
	if f.hotspotsFn != nil {
		return f.hotspotsFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeStore) Heatmap(ctx context.Context) ([]store.HeatmapCell, error) {
	if f.heatmapFn != nil {
		return f.heatmapFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

// fakeStore doubles as the session store, like the Postgres fallback does.

func (f *fakeStore) SaveRefreshSession(_ context.Context, tokenHash string, userID int64, _ time.Time) error {
	f.refreshSessions[tokenHash] = userID
	return nil
}

func (f *fakeStore) LookupRefreshSession(_ context.Context, tokenHash string) (int64, error) {
	userID, ok := f.refreshSessions[tokenHash]
	if !ok {
		return 0, fmt.Errorf("token not found")
	}
	return userID, nil
}

func (f *fakeStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	delete(f.refreshSessions, tokenHash)
	return nil
}

func newTestService(fake *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		store:      fake,
		sessions:   fake,
		passwords:  authpw.NewService(fake),
		classifier: classify.NewClassifier(nil),
	}
}

func citizenSession(userID int64) Session {
	return Session{UserID: userID, UserName: "Citizen", Role: "Citizen"}
}

func officerSession(userID int64) Session {
	return Session{UserID: userID, UserName: "Officer", Role: "FieldOfficer"}
}

func adminSession() Session {
	return Session{UserID: 99, UserName: "Admin", Role: "Admin"}
}

func int64p(v int64) *int64 { return &v }

func TestSubmitUrgentLeakRoutesToWaterDepartment(t *testing.T) {
	fake := newFakeStore()

	var requestedCode string
	fake.getDepartmentByCodeFn = func(_ context.Context, code string) (store.Department, error) {
		requestedCode = code
		return store.Department{ID: 7, Name: "Water Supply", Code: code}, nil
	}
	var created store.Grievance
	var initialRemark string
	fake.createGrievanceFn = func(_ context.Context, g store.Grievance, remark string) (store.Grievance, error) {
		created = g
		initialRemark = remark
		g.ID = 42
		return g, nil
	}

	svc := newTestService(fake)
	payload, err := svc.Submit(context.Background(), citizenSession(5), SubmitInput{
		Title:       "Urgent water leak",
		Description: "There is an urgent leak in the main pipeline near the school",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if requestedCode != "WATER" {
		t.Errorf("expected department lookup WATER, got %q", requestedCode)
	}
	if created.DepartmentID == nil || *created.DepartmentID != 7 {
		t.Errorf("expected department 7 attached, got %v", created.DepartmentID)
	}
	if created.SeverityAI == nil || *created.SeverityAI < 0.6 {
		t.Errorf("expected severity >= 0.6, got %v", created.SeverityAI)
	}
	if created.Priority != "High" && created.Priority != "Critical" {
		t.Errorf("expected High or Critical priority, got %q", created.Priority)
	}
	if created.Status != "New" {
		t.Errorf("expected status New, got %q", created.Status)
	}
	if initialRemark != "Grievance submitted" {
		t.Errorf("unexpected initial timeline remark %q", initialRemark)
	}
	if payload["classification_source"] != "stub" {
		t.Errorf("expected stub classification, got %v", payload["classification_source"])
	}
}

func TestSubmitRequiresCitizenCapability(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Submit(context.Background(), officerSession(2), SubmitInput{
		Title:       "Pothole",
		Description: "Large pothole on main road",
	})
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestSubmitValidatesInput(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Submit(context.Background(), citizenSession(1), SubmitInput{Title: " ", Description: "x"})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestAssignUnknownOfficerIsNotFound(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New"}, nil
	}

	svc := newTestService(fake)
	_, err := svc.Assign(context.Background(), adminSession(), 1, 99)
	assertDomainError(t, err, 404, "NOT_FOUND")
	if len(fake.assigns) != 0 {
		t.Errorf("expected no assignment writes, got %d", len(fake.assigns))
	}
}

func TestAssignRejectsNonOfficer(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New"}, nil
	}
	fake.getUserByIDFn = func(context.Context, int64) (store.User, error) {
		return store.User{ID: 3, Role: "Citizen"}, nil
	}

	svc := newTestService(fake)
	_, err := svc.Assign(context.Background(), adminSession(), 1, 3)
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
	if len(fake.assigns) != 0 {
		t.Errorf("expected no assignment writes, got %d", len(fake.assigns))
	}
}

func TestAssignDepartmentMismatchLeavesStateUnchanged(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New", DepartmentID: int64p(1)}, nil
	}
	fake.getUserByIDFn = func(context.Context, int64) (store.User, error) {
		return store.User{ID: 3, Role: "FieldOfficer", DepartmentID: int64p(2)}, nil
	}

	svc := newTestService(fake)
	_, err := svc.Assign(context.Background(), adminSession(), 1, 3)
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
	if !strings.Contains(err.Error(), "department mismatch") {
		t.Errorf("expected department mismatch, got %v", err)
	}
	if len(fake.assigns) != 0 {
		t.Errorf("expected no assignment writes, got %d", len(fake.assigns))
	}
}

func TestAssignStateDecidesBeforeDistrict(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New", State: "Karnataka", District: "Bengaluru Urban"}, nil
	}
	fake.getUserByIDFn = func(context.Context, int64) (store.User, error) {
		// Same district, different state: the state level decides.
		return store.User{ID: 3, Role: "FieldOfficer", State: "Kerala", District: "Bengaluru Urban"}, nil
	}

	svc := newTestService(fake)
	_, err := svc.Assign(context.Background(), adminSession(), 1, 3)
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
	if !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("expected state mismatch, got %v", err)
	}
}

func TestAssignSkipsLevelsMissingOnEitherSide(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		// No state on the grievance: district decides.
		return store.Grievance{ID: 1, Status: "New", District: "Mysuru"}, nil
	}
	fake.getUserByIDFn = func(context.Context, int64) (store.User, error) {
		return store.User{ID: 3, FullName: "Officer Rao", Role: "FieldOfficer", State: "Karnataka", District: "Mysuru"}, nil
	}

	svc := newTestService(fake)
	payload, err := svc.Assign(context.Background(), adminSession(), 1, 3)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if payload["status"] != "Assigned" {
		t.Errorf("expected Assigned, got %v", payload["status"])
	}
}

func TestAssignBackfillsDepartmentAndRecordsOfficer(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New"}, nil
	}
	fake.getUserByIDFn = func(context.Context, int64) (store.User, error) {
		return store.User{ID: 3, FullName: "Officer Rao", Role: "FieldOfficer", DepartmentID: int64p(5)}, nil
	}

	svc := newTestService(fake)
	if _, err := svc.Assign(context.Background(), adminSession(), 1, 3); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	if len(fake.assigns) != 1 {
		t.Fatalf("expected one assignment write, got %d", len(fake.assigns))
	}
	call := fake.assigns[0]
	if call.departmentID == nil || *call.departmentID != 5 {
		t.Errorf("expected department backfill 5, got %v", call.departmentID)
	}
	if !strings.Contains(call.remark, "Officer Rao") {
		t.Errorf("expected remark naming the officer, got %q", call.remark)
	}
}

func TestAssignRequiresAdmin(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Assign(context.Background(), officerSession(2), 1, 3)
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "In Progress", AssigneeID: int64p(2)}, nil
	}

	svc := newTestService(fake)
	payload, err := svc.UpdateStatus(context.Background(), officerSession(2), 1, UpdateStatusInput{Status: "In Progress"})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if payload["status"] != "In Progress" {
		t.Errorf("expected status unchanged, got %v", payload["status"])
	}
	if len(fake.transitions) != 0 {
		t.Errorf("expected no timeline writes on a no-op, got %d", len(fake.transitions))
	}
}

func TestUpdateStatusOfficerBoundByTransitionMap(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New", AssigneeID: int64p(2)}, nil
	}

	svc := newTestService(fake)
	_, err := svc.UpdateStatus(context.Background(), officerSession(2), 1, UpdateStatusInput{Status: "Resolved"})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
	if len(fake.transitions) != 0 {
		t.Errorf("expected no timeline writes, got %d", len(fake.transitions))
	}
}

func TestUpdateStatusOfficerValidTransition(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "In Progress", AssigneeID: int64p(2)}, nil
	}

	svc := newTestService(fake)
	payload, err := svc.UpdateStatus(context.Background(), officerSession(2), 1, UpdateStatusInput{Status: "Pending Verification"})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if payload["status"] != "Pending Verification" {
		t.Errorf("expected Pending Verification, got %v", payload["status"])
	}
	if len(fake.transitions) != 1 {
		t.Fatalf("expected exactly one timeline write, got %d", len(fake.transitions))
	}
	if !strings.Contains(fake.transitions[0].remark, "In Progress") ||
		!strings.Contains(fake.transitions[0].remark, "Pending Verification") {
		t.Errorf("expected remark recording old and new status, got %q", fake.transitions[0].remark)
	}
}

func TestUpdateStatusCustomRemarkRecordsTransition(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "In Progress", AssigneeID: int64p(2)}, nil
	}

	svc := newTestService(fake)
	_, err := svc.UpdateStatus(context.Background(), officerSession(2), 1, UpdateStatusInput{
		Status: "Pending Verification",
		Remark: "Pipe replaced, awaiting inspection",
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if len(fake.transitions) != 1 {
		t.Fatalf("expected one timeline write, got %d", len(fake.transitions))
	}
	remark := fake.transitions[0].remark
	for _, want := range []string{"Pipe replaced, awaiting inspection", "In Progress", "Pending Verification", "FieldOfficer"} {
		if !strings.Contains(remark, want) {
			t.Errorf("remark %q missing %q", remark, want)
		}
	}
}

func TestUpdateStatusOfficerMustBeAssignee(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "In Progress", AssigneeID: int64p(8)}, nil
	}

	svc := newTestService(fake)
	_, err := svc.UpdateStatus(context.Background(), officerSession(2), 1, UpdateStatusInput{Status: "Pending Verification"})
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestUpdateStatusAdminMayApplyAnyTransition(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New"}, nil
	}

	svc := newTestService(fake)
	payload, err := svc.UpdateStatus(context.Background(), adminSession(), 1, UpdateStatusInput{Status: "Closed"})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if payload["status"] != "Closed" {
		t.Errorf("expected Closed, got %v", payload["status"])
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.UpdateStatus(context.Background(), adminSession(), 1, UpdateStatusInput{Status: "Bogus"})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestResolveMovesToPendingVerification(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "In Progress", AssigneeID: int64p(2)}, nil
	}

	svc := newTestService(fake)
	payload, err := svc.Resolve(context.Background(), officerSession(2), 1, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if payload["status"] != "Pending Verification" {
		t.Errorf("expected Pending Verification, got %v", payload["status"])
	}
	if len(fake.transitions) != 1 || fake.transitions[0].status != "Pending Verification" {
		t.Fatalf("unexpected transitions %+v", fake.transitions)
	}
}

func TestVerifyOnlyFromPendingVerification(t *testing.T) {
	fake := newFakeStore()
	status := "In Progress"
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: status}, nil
	}

	svc := newTestService(fake)
	_, err := svc.Verify(context.Background(), adminSession(), 1)
	assertDomainError(t, err, 422, "VALIDATION_ERROR")

	status = "Pending Verification"
	payload, err := svc.Verify(context.Background(), adminSession(), 1)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if payload["status"] != "Resolved" {
		t.Errorf("expected Resolved, got %v", payload["status"])
	}
}

func TestVerifyRequiresAdmin(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Verify(context.Background(), officerSession(2), 1)
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestFeedbackRules(t *testing.T) {
	fake := newFakeStore()
	grievance := store.Grievance{ID: 1, Status: "In Progress", CitizenID: 5}
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return grievance, nil
	}

	svc := newTestService(fake)
	ctx := context.Background()

	// Not the owner.
	_, err := svc.Feedback(ctx, citizenSession(6), 1, FeedbackInput{Rating: 4})
	assertDomainError(t, err, 403, "FORBIDDEN")

	// Not resolved yet.
	_, err = svc.Feedback(ctx, citizenSession(5), 1, FeedbackInput{Rating: 4})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")

	grievance.Status = "Resolved"

	// Rating bounds.
	_, err = svc.Feedback(ctx, citizenSession(5), 1, FeedbackInput{Rating: 0})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
	_, err = svc.Feedback(ctx, citizenSession(5), 1, FeedbackInput{Rating: 6})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")

	// Accepted once.
	payload, err := svc.Feedback(ctx, citizenSession(5), 1, FeedbackInput{Rating: 4, Comment: "fixed quickly"})
	if err != nil {
		t.Fatalf("Feedback failed: %v", err)
	}
	if payload["rating"] != 4 {
		t.Errorf("expected rating 4, got %v", payload["rating"])
	}

	// Duplicate.
	fake.createFeedbackFn = func(context.Context, store.Feedback) (store.Feedback, error) {
		return store.Feedback{}, store.ErrDuplicateFeedback
	}
	_, err = svc.Feedback(ctx, citizenSession(5), 1, FeedbackInput{Rating: 5})
	assertDomainError(t, err, 422, "VALIDATION_ERROR")
}

func TestDashboardArithmeticAndHotspotLimit(t *testing.T) {
	fake := newFakeStore()
	fake.dashboardCountsFn = func(context.Context) (store.DashboardCounts, error) {
		return store.DashboardCounts{Total: 10, Open: 6, Resolved: 4, Critical: 2}, nil
	}
	var hotspotLimit int
	fake.hotspotsFn = func(_ context.Context, limit int) ([]store.Hotspot, error) {
		hotspotLimit = limit
		return []store.Hotspot{{State: "Karnataka", District: "Mysuru", Count: 3}}, nil
	}

	svc := newTestService(fake)
	payload, err := svc.Dashboard(context.Background(), Session{UserID: 1, Role: "PolicyMaker"})
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if payload["total"] != 10 || payload["open"] != 6 || payload["resolved"] != 4 || payload["critical"] != 2 {
		t.Errorf("unexpected counters: %+v", payload)
	}
	if hotspotLimit != 4 {
		t.Errorf("expected top-4 hotspots, limit was %d", hotspotLimit)
	}

	_, err = svc.Dashboard(context.Background(), citizenSession(1))
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestSessionLifecycle(t *testing.T) {
	fake := newFakeStore()
	users := map[int64]store.User{}
	fake.createUserFn = func(_ context.Context, user store.User) (store.User, error) {
		user.ID = 7
		users[user.ID] = user
		return user, nil
	}
	fake.getUserByIDFn = func(_ context.Context, id int64) (store.User, error) {
		user, ok := users[id]
		if !ok {
			return store.User{}, sql.ErrNoRows
		}
		return user, nil
	}

	svc := newTestService(fake)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, authpw.SignUpRequest{
		Email:    "asha@example.com",
		Password: "sturdy-password",
		FullName: "Asha Verma",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if session.UserID != 7 || session.Role != "Citizen" {
		t.Fatalf("unexpected session %+v", session)
	}

	parsed, err := svc.SessionFromToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	if parsed.UserID != 7 {
		t.Errorf("expected user 7, got %d", parsed.UserID)
	}

	// Refresh rotates the token.
	next, err := svc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if next.RefreshToken == session.RefreshToken {
		t.Error("expected refresh token rotation")
	}
	if _, err := svc.Refresh(ctx, session.RefreshToken); err == nil {
		t.Error("expected old refresh token to be revoked")
	}

	// Logout revokes the access token.
	if err := svc.Logout(ctx, next, next.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := svc.SessionFromToken(ctx, next.Token); err == nil {
		t.Error("expected revoked access token to be rejected")
	}
	if _, err := svc.Refresh(ctx, next.RefreshToken); err == nil {
		t.Error("expected revoked refresh token to be rejected")
	}
}

func TestGetGrievanceVisibility(t *testing.T) {
	fake := newFakeStore()
	fake.getGrievanceFn = func(context.Context, int64) (store.Grievance, error) {
		return store.Grievance{ID: 1, Status: "New", CitizenID: 5}, nil
	}

	svc := newTestService(fake)
	ctx := context.Background()

	if _, err := svc.GetGrievance(ctx, citizenSession(5), 1); err != nil {
		t.Errorf("owner should see own grievance: %v", err)
	}
	if _, err := svc.GetGrievance(ctx, Session{UserID: 3, Role: "Auditor"}, 1); err != nil {
		t.Errorf("staff should see grievances: %v", err)
	}
	_, err := svc.GetGrievance(ctx, citizenSession(6), 1)
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestListAllStaffOnly(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.ListAll(context.Background(), citizenSession(1), "", 0, 50)
	assertDomainError(t, err, 403, "FORBIDDEN")
}

func TestChatUnavailableWithoutProvider(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Chat(context.Background(), "hello")
	assertDomainError(t, err, 503, "CHAT_UNAVAILABLE")
}

func assertDomainError(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s error, got nil", status, code)
	}
	domainErr, ok := err.(*DomainError)
	if !ok {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Status != status || domainErr.Code != code {
		t.Fatalf("expected %d %s, got %d %s", status, code, domainErr.Status, domainErr.Code)
	}
}
