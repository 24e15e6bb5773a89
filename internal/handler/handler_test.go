package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/completion"
	"github.com/pavelanni/academy/internal/cursor"
	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/handler"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/mail"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
	"github.com/pavelanni/academy/internal/store/storetest"
)

const testPassword = "secret"

type harness struct {
	t   *testing.T
	f   *storetest.Fixture
	srv *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	f := storetest.NewFixture(t)
	blobs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	comp := completion.NewEngine(f.Store)
	h, err := handler.New(handler.Deps{
		Store:      f.Store,
		Exams:      exam.NewService(f.Store, grading.NewEngine(), blobs),
		Completion: comp,
		Notifier:   notify.NewDispatcher(f.Store, comp, mail.NewConsoleSender("Academy", nil), notify.Links{}),
		Cursors:    cursor.NewCodec([]byte("test-secret"), time.Hour),
		Blobs:      blobs,
	}, model.AppConfig{})
	if err != nil {
		t.Fatalf("handler.New: %v", err)
	}
	r := chi.NewRouter()
	r.Use(h.BasePathMiddleware)
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &harness{t: t, f: f, srv: srv}
}

// user creates an active user who can log in with testPassword.
func (h *harness) user(username string, role model.UserRole) int64 {
	h.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		h.t.Fatalf("hash: %v", err)
	}
	id, err := h.f.Store.CreateUser(context.Background(), model.User{
		Username: username, DisplayName: username, Email: username + "@example.com",
		PasswordHash: string(hash), Role: role, Active: true,
	})
	if err != nil {
		h.t.Fatalf("CreateUser: %v", err)
	}
	return id
}

// student creates a student enrolled in the fixture course.
func (h *harness) student(username string) (userID, enrollmentID int64) {
	h.t.Helper()
	userID = h.user(username, model.UserRoleStudent)
	enrollmentID, err := h.f.Store.Enroll(context.Background(), userID, h.f.CourseID, h.f.YearID)
	if err != nil {
		h.t.Fatalf("Enroll: %v", err)
	}
	return userID, enrollmentID
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (h *harness) client() *client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		h.t.Fatalf("cookiejar: %v", err)
	}
	return &client{t: h.t, base: h.srv.URL, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (c *client) cookie(name string) string {
	u, _ := url.Parse(c.base)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *client) get(path string) (int, string, http.Header) {
	c.t.Helper()
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header
}

// post submits a form with the current CSRF token, fetching one first if
// the jar has none.
func (c *client) post(path string, form url.Values) (int, http.Header) {
	c.t.Helper()
	if c.cookie("csrf_token") == "" {
		c.get("/login")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", c.cookie("csrf_token"))
	resp, err := c.http.PostForm(c.base+path, form)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Header
}

func (c *client) login(username string) {
	c.t.Helper()
	status, hdr := c.post("/login", url.Values{"username": {username}, "password": {testPassword}})
	if status != http.StatusSeeOther || hdr.Get("Location") != "/" {
		c.t.Fatalf("login %s: status %d location %q", username, status, hdr.Get("Location"))
	}
}

func TestLoginAndCSRF(t *testing.T) {
	h := newHarness(t)
	h.user("alice", model.UserRoleStudent)
	c := h.client()

	status, _, hdr := c.get("/")
	if status != http.StatusSeeOther || hdr.Get("Location") != "/login" {
		t.Fatalf("anonymous home: status %d location %q", status, hdr.Get("Location"))
	}

	c.get("/login")
	resp, err := c.http.PostForm(c.base+"/login", url.Values{"username": {"alice"}, "password": {testPassword}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("login without csrf field: expected 403, got %d", resp.StatusCode)
	}

	if status, _ := c.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}}); status != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", status)
	}

	c.login("alice")
	if status, _, _ := c.get("/"); status != http.StatusOK {
		t.Fatalf("home after login: expected 200, got %d", status)
	}
}

func TestTakeSubmitAndGrade(t *testing.T) {
	h := newHarness(t)
	studentID, _ := h.student("alice")
	h.user("prof2", model.UserRoleInstructor)
	e := h.f.Exam("Quiz", 5)
	tf := h.f.Question(model.Question{ExamID: e.ID, Type: model.QuestionTF, Text: "Go has goroutines", MaxScore: 2, IsTrue: true})
	essay := h.f.Question(model.Question{ExamID: e.ID, Type: model.QuestionEssay, Text: "Describe select", MaxScore: 3})

	c := h.client()
	c.login("alice")
	take := fmt.Sprintf("/courses/%d/exams/%d/take", h.f.CourseID, e.ID)

	status, body, _ := c.get(take)
	if status != http.StatusOK || !strings.Contains(body, "Go has goroutines") {
		t.Fatalf("take page: status %d body %q", status, body)
	}
	if c.cookie(cursor.CookieName(e.ID)) == "" {
		t.Fatal("expected a cursor cookie")
	}

	status, hdr := c.post(take, url.Values{"action": {"next"}, fmt.Sprintf("answer_%d", tf.ID): {"True"}})
	if status != http.StatusSeeOther || hdr.Get("Location") != take {
		t.Fatalf("next: status %d location %q", status, hdr.Get("Location"))
	}
	if _, body, _ := c.get(take); !strings.Contains(body, "Describe select") {
		t.Fatalf("cursor did not advance: %q", body)
	}

	examList := notify.CoursePath(h.f.CourseID)
	status, hdr = c.post(take, url.Values{"action": {"submit"}, fmt.Sprintf("answer_%d", essay.ID): {"It waits on channels."}})
	if status != http.StatusSeeOther || hdr.Get("Location") != examList {
		t.Fatalf("submit: status %d location %q", status, hdr.Get("Location"))
	}
	if _, body, _ := c.get(examList); !strings.Contains(body, "submitted successfully") {
		t.Fatalf("expected submit flash on exam list, got %q", body)
	}
	if c.cookie(cursor.CookieName(e.ID)) != "" {
		t.Fatal("expected cursor cookie to be cleared after submit")
	}
	status, hdr = c.post(take, url.Values{"action": {"save"}})
	if status != http.StatusSeeOther || hdr.Get("Location") != examList {
		t.Fatalf("post after submit: status %d location %q", status, hdr.Get("Location"))
	}

	ctx := context.Background()
	attempts, err := h.f.Store.ListExamAttempts(ctx, e.ID)
	if err != nil || len(attempts) != 1 || !attempts[0].IsFinalized {
		t.Fatalf("expected one finalized attempt, got %+v (%v)", attempts, err)
	}
	view, err := h.f.Store.GetAttemptView(ctx, attempts[0].ID)
	if err != nil {
		t.Fatalf("GetAttemptView: %v", err)
	}

	other := h.client()
	other.login("prof2")
	if status, _ := other.post(fmt.Sprintf("/manage/attempts/%d/grade", attempts[0].ID), url.Values{"finalize": {"1"}}); status != http.StatusForbidden {
		t.Fatalf("non-owner grading: expected 403, got %d", status)
	}

	prof := h.client()
	h.setPassword("prof")
	prof.login("prof")
	status, hdr = prof.post(fmt.Sprintf("/manage/attempts/%d/grade", attempts[0].ID), url.Values{
		fmt.Sprintf("score_%d", view.Answers[essay.ID].ID): {"3"},
		"finalize": {"1"},
	})
	wantConsole := fmt.Sprintf("/manage/courses/%d/exams/%d/attempts", h.f.CourseID, e.ID)
	if status != http.StatusSeeOther || hdr.Get("Location") != wantConsole {
		t.Fatalf("grade: status %d location %q", status, hdr.Get("Location"))
	}

	notes, err := h.f.Store.ListNotifications(ctx, studentID, 10)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) == 0 || !strings.Contains(notes[len(notes)-1].Message, "has been graded") {
		t.Fatalf("expected a graded notification, got %+v", notes)
	}
	results := notify.ResultsPath(h.f.CourseID, e.ID, attempts[0].ID)
	if status, body, _ := c.get(results); status != http.StatusOK || !strings.Contains(body, "5") {
		t.Fatalf("results: status %d body %q", status, body)
	}
}

// setPassword gives a fixture user a password usable by login.
func (h *harness) setPassword(username string) {
	h.t.Helper()
	ctx := context.Background()
	u, err := h.f.Store.GetUserByUsername(ctx, username)
	if err != nil || u == nil {
		h.t.Fatalf("GetUserByUsername(%s): %v", username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		h.t.Fatalf("hash: %v", err)
	}
	if err := h.f.Store.SetPasswordHash(ctx, u.ID, string(hash)); err != nil {
		h.t.Fatalf("SetPasswordHash: %v", err)
	}
}

func TestManageRequiresOwnership(t *testing.T) {
	h := newHarness(t)
	h.user("prof2", model.UserRoleInstructor)
	h.student("alice")
	h.setPassword("prof")
	manage := fmt.Sprintf("/manage/courses/%d/", h.f.CourseID)

	tests := []struct {
		user string
		want int
	}{
		{"prof", http.StatusOK},
		{"prof2", http.StatusForbidden},
		{"alice", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			c := h.client()
			c.login(tt.user)
			if status, _, _ := c.get(manage); status != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, status)
			}
		})
	}

	c := h.client()
	c.login("prof")
	if status, _, _ := c.get("/manage/courses/9999/"); status != http.StatusNotFound {
		t.Fatalf("missing course: expected 404, got %d", status)
	}
}

func TestNotificationDeadLink(t *testing.T) {
	h := newHarness(t)
	studentID, _ := h.student("alice")
	ctx := context.Background()
	e := h.f.Exam("Gone", 10)
	live, err := h.f.Store.CreateNotification(ctx, studentID, "live", notify.ResultsPath(h.f.CourseID, e.ID, 1))
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	dead, err := h.f.Store.CreateNotification(ctx, studentID, "dead", notify.ResultsPath(h.f.CourseID, 9999, 1))
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	c := h.client()
	c.login("alice")
	if _, body, _ := c.get("/notifications"); !strings.Contains(body, "2 unread notifications") {
		t.Fatalf("expected unread count in nav, got %q", body)
	}

	status, hdr := c.post(fmt.Sprintf("/notifications/%d/read", dead), nil)
	if status != http.StatusSeeOther || hdr.Get("Location") != "/notifications" {
		t.Fatalf("dead link: status %d location %q", status, hdr.Get("Location"))
	}
	if _, body, _ := c.get("/notifications"); !strings.Contains(body, "no longer exists") {
		t.Fatalf("expected dead-link flash, got %q", body)
	}

	status, hdr = c.post(fmt.Sprintf("/notifications/%d/read", live), nil)
	if status != http.StatusSeeOther || hdr.Get("Location") != notify.ResultsPath(h.f.CourseID, e.ID, 1) {
		t.Fatalf("live link: status %d location %q", status, hdr.Get("Location"))
	}
	n, err := h.f.Store.UnreadNotificationCount(ctx, studentID)
	if err != nil || n != 0 {
		t.Fatalf("expected all read, got %d (%v)", n, err)
	}

	h.user("bob", model.UserRoleStudent)
	b := h.client()
	b.login("bob")
	if status, _ := b.post(fmt.Sprintf("/notifications/%d/read", live), nil); status != http.StatusNotFound {
		t.Fatalf("foreign notification: expected 404, got %d", status)
	}
}

func TestAdminMarkAndRevokeCompletion(t *testing.T) {
	h := newHarness(t)
	studentID, enrollmentID := h.student("alice")
	h.user("root", model.UserRoleAdmin)
	ctx := context.Background()

	c := h.client()
	c.login("root")
	analyticsPath := fmt.Sprintf("/manage/courses/%d/analytics", h.f.CourseID)

	status, hdr := c.post(fmt.Sprintf("/admin/enrollments/%d/complete", enrollmentID), nil)
	if status != http.StatusSeeOther || hdr.Get("Location") != analyticsPath {
		t.Fatalf("mark: status %d location %q", status, hdr.Get("Location"))
	}
	comp, err := h.f.Store.GetEnrollmentCompletion(ctx, enrollmentID)
	if err != nil || comp == nil || !comp.CertificateIssued {
		t.Fatalf("expected an issued completion, got %+v (%v)", comp, err)
	}
	if _, body, _ := c.get(analyticsPath); !strings.Contains(body, "marked as having completed") {
		t.Fatalf("expected mark flash, got %q", body)
	}

	c.post(fmt.Sprintf("/admin/enrollments/%d/complete", enrollmentID), nil)
	notes, _ := h.f.Store.ListNotifications(ctx, studentID, 10)
	if len(notes) != 1 || !strings.Contains(notes[0].Message, "Congratulations") {
		t.Fatalf("expected exactly one completion notification, got %+v", notes)
	}

	status, hdr = c.post(fmt.Sprintf("/admin/completions/%d/revoke", comp.ID), nil)
	if status != http.StatusSeeOther || hdr.Get("Location") != analyticsPath {
		t.Fatalf("revoke: status %d location %q", status, hdr.Get("Location"))
	}
	if comp, _ := h.f.Store.GetEnrollmentCompletion(ctx, enrollmentID); comp != nil {
		t.Fatalf("expected completion removed, got %+v", comp)
	}
	notes, _ = h.f.Store.ListNotifications(ctx, studentID, 10)
	if len(notes) != 2 {
		t.Fatalf("expected a revocation notification, got %+v", notes)
	}

	s := h.client()
	s.login("alice")
	if status, _ := s.post(fmt.Sprintf("/admin/enrollments/%d/complete", enrollmentID), nil); status != http.StatusForbidden {
		t.Fatalf("student override: expected 403, got %d", status)
	}

	var congrats *model.Notification
	for i := range notes {
		if strings.Contains(notes[i].Message, "Congratulations") {
			congrats = &notes[i]
		}
	}
	if congrats == nil || congrats.Link != notify.CertificatePath(comp.ID) {
		t.Fatalf("expected a certificate link, got %+v", notes)
	}
	status, hdr = s.post(fmt.Sprintf("/notifications/%d/read", congrats.ID), nil)
	if status != http.StatusSeeOther || hdr.Get("Location") != "/notifications" {
		t.Fatalf("revoked certificate link: status %d location %q", status, hdr.Get("Location"))
	}
	if _, body, _ := s.get("/notifications"); !strings.Contains(body, "no longer available") {
		t.Fatalf("expected revoked-certificate flash, got %q", body)
	}
}

func TestRejectedAnswerRerendersQuestion(t *testing.T) {
	h := newHarness(t)
	h.student("alice")
	e := h.f.Exam("Quiz", 6)
	mcq := h.f.Question(model.Question{ExamID: e.ID, Type: model.QuestionMCQ, Text: "Pick the mascot", MaxScore: 4,
		Options: []model.AnswerOption{{Text: "Gopher", IsCorrect: true}, {Text: "Crab"}}})
	h.f.Question(model.Question{ExamID: e.ID, Type: model.QuestionTF, Text: "Go is compiled", MaxScore: 2, IsTrue: true})

	c := h.client()
	c.login("alice")
	take := fmt.Sprintf("/courses/%d/exams/%d/take", h.f.CourseID, e.ID)
	c.get(take)

	form := url.Values{"action": {"next"}, fmt.Sprintf("answer_%d", mcq.ID): {"99999"}}
	form.Set("csrf_token", c.cookie("csrf_token"))
	resp, err := c.http.PostForm(c.base+take, form)
	if err != nil {
		t.Fatalf("POST take: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("foreign option: expected 422, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Pick the mascot") || !strings.Contains(string(body), "could not be accepted") {
		t.Fatalf("expected current question with a warning, got %q", body)
	}
	if _, page, _ := c.get(take); !strings.Contains(page, "Pick the mascot") {
		t.Fatalf("cursor moved after a rejected answer: %q", page)
	}
	attempts, _ := h.f.Store.ListExamAttempts(context.Background(), e.ID)
	if len(attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(attempts))
	}
	view, _ := h.f.Store.GetAttemptView(context.Background(), attempts[0].ID)
	if _, saved := view.Answers[mcq.ID]; saved {
		t.Error("rejected answer must not be stored")
	}
}

func TestAdminCreateUser(t *testing.T) {
	h := newHarness(t)
	h.user("root", model.UserRoleAdmin)
	c := h.client()
	c.login("root")

	tests := []struct {
		name  string
		user  string
		email string
		want  int
	}{
		{"valid email", "dan", "dan@example.com", http.StatusSeeOther},
		{"no email", "eve", "", http.StatusSeeOther},
		{"malformed email", "fay", "fay@", http.StatusBadRequest},
		{"no at sign", "gus", "gus.example.com", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := c.post("/admin/users", url.Values{
				"username": {tt.user}, "password": {"pw"}, "email": {tt.email}, "role": {"student"},
			})
			if status != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, status)
			}
			u, err := h.f.Store.GetUserByUsername(context.Background(), tt.user)
			if err != nil {
				t.Fatalf("GetUserByUsername: %v", err)
			}
			if created := u != nil; created != (tt.want == http.StatusSeeOther) {
				t.Errorf("user created = %v", created)
			}
		})
	}
}

func TestAPI(t *testing.T) {
	h := newHarness(t)
	studentID, _ := h.student("alice")
	h.setPassword("prof")
	ctx := context.Background()
	if _, err := h.f.Store.CreateNotification(ctx, studentID, "hello", ""); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	e := h.f.Exam("Midterm", 10)

	anon := h.client()
	status, body, hdr := anon.get("/api/notifications")
	if status != http.StatusUnauthorized || !strings.HasPrefix(hdr.Get("Content-Type"), "application/json") {
		t.Fatalf("anonymous: status %d content-type %q body %q", status, hdr.Get("Content-Type"), body)
	}

	c := h.client()
	c.login("alice")
	status, body, _ = c.get("/api/notifications")
	if status != http.StatusOK {
		t.Fatalf("notifications: status %d", status)
	}
	var feed struct {
		Unread int                  `json:"unread"`
		Items  []model.Notification `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if feed.Unread != 1 || len(feed.Items) != 1 || feed.Items[0].Message != "hello" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
	courseAPI := fmt.Sprintf("/api/courses/%d/analytics?year=all", h.f.CourseID)
	if status, _, _ := c.get(courseAPI); status != http.StatusForbidden {
		t.Fatalf("student analytics: expected 403, got %d", status)
	}

	p := h.client()
	p.login("prof")
	status, body, _ = p.get(courseAPI)
	if status != http.StatusOK || !strings.Contains(body, `"enrollments":1`) {
		t.Fatalf("course analytics: status %d body %q", status, body)
	}
	status, body, _ = p.get(fmt.Sprintf("/api/courses/%d/exams/%d/analytics", h.f.CourseID, e.ID))
	if status != http.StatusOK || !strings.Contains(body, `"title":"Midterm"`) {
		t.Fatalf("exam analytics: status %d body %q", status, body)
	}
	if status, _, _ := p.get(fmt.Sprintf("/api/courses/%d/exams/9999/analytics", h.f.CourseID)); status != http.StatusNotFound {
		t.Fatalf("missing exam: expected 404, got %d", status)
	}
}
