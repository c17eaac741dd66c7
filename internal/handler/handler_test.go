package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/events"
	"github.com/mtlprog/taskpulse/internal/handler"
	"github.com/mtlprog/taskpulse/internal/handler/dto"
	"github.com/mtlprog/taskpulse/internal/repository"
	"github.com/mtlprog/taskpulse/internal/service"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type HandlerTestSuite struct {
	suite.Suite
	repo *repository.MemoryTaskRepository
	mux  *http.ServeMux

	mu     sync.Mutex
	events []string
}

func (s *HandlerTestSuite) SetupTest() {
	s.events = nil

	dispatcher := events.NewDispatcher()
	for _, name := range domain.AllEventNames() {
		dispatcher.RegisterFunc(name, func(_ context.Context, e domain.Event) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.events = append(s.events, e.EventName())
			return nil
		})
	}

	s.repo = repository.NewMemoryTaskRepository(dispatcher)
	taskService := service.NewTaskService(s.repo, dispatcher)

	s.mux = http.NewServeMux()
	handler.New(taskService, nil).RegisterRoutes(s.mux)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

// Helper to make a JSON request against the registered routes
func (s *HandlerTestSuite) makeRequest(method, path string, body any) *httptest.ResponseRecorder {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) createTask(title, priority string, due time.Time) dto.TaskDetailResponse {
	w := s.makeRequest("POST", "/api/v1/tasks", dto.CreateTaskRequest{
		Title:    title,
		Priority: priority,
		DueDate:  due,
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.TaskDetailResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerTestSuite) decodeError(w *httptest.ResponseRecorder) dto.ErrorResponse {
	var resp dto.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerTestSuite) storeOverdue(priority domain.TaskPriority) string {
	id := uuid.NewString()
	created := time.Now().Add(-96 * time.Hour)
	task := domain.ReconstituteTask(domain.TaskState{
		ID:        id,
		Title:     "late",
		Priority:  priority,
		Status:    domain.TaskStatusInProgress,
		DueDate:   time.Now().Add(-48 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	})
	s.Require().NoError(s.repo.Create(context.Background(), task))
	return id
}

// TestHealthz tests the health endpoint with and without a failing store.
func (s *HandlerTestSuite) TestHealthz() {
	w := s.makeRequest("GET", "/healthz", nil)
	s.Equal(http.StatusOK, w.Code)

	mux := http.NewServeMux()
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })
	handler.New(service.NewTaskService(s.repo, nil), down).RegisterRoutes(mux)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

// TestCreateTask tests creation, defaults and the TaskCreated event.
func (s *HandlerTestSuite) TestCreateTask() {
	task := s.createTask("  Write docs  ", "", time.Now().Add(72*time.Hour))

	s.Equal("Write docs", task.Title)
	s.Equal("Medium", task.Priority)
	s.Equal("New", task.Status)
	s.Nil(task.Description)
	s.False(task.IsOverdue)
	s.Empty(task.Comments)
	s.Empty(task.Warnings)
	s.Equal([]string{domain.EventTaskCreated}, s.events)
}

// TestCreateTaskValidation tests request validation errors.
func (s *HandlerTestSuite) TestCreateTaskValidation() {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"malformed json", "not an object", http.StatusBadRequest, "INVALID_JSON"},
		{"missing due date", dto.CreateTaskRequest{Title: "x"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"empty title", dto.CreateTaskRequest{Title: "  ", DueDate: time.Now().Add(time.Hour)}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"bad priority", dto.CreateTaskRequest{Title: "x", Priority: "Urgent", DueDate: time.Now().Add(time.Hour)}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"past due date", dto.CreateTaskRequest{Title: "x", DueDate: time.Now().AddDate(0, 0, -3)}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.makeRequest("POST", "/api/v1/tasks", tt.body)
			s.Equal(tt.wantStatus, w.Code)
			s.Equal(tt.wantCode, s.decodeError(w).Error.Code)
		})
	}
	s.Empty(s.events)
}

// TestGetTask tests lookup, invalid ids and missing tasks.
func (s *HandlerTestSuite) TestGetTask() {
	created := s.createTask("Ship", "High", time.Now().Add(24*time.Hour))

	w := s.makeRequest("GET", "/api/v1/tasks/"+created.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.makeRequest("GET", "/api/v1/tasks/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.makeRequest("GET", "/api/v1/tasks/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("TASK_NOT_FOUND", s.decodeError(w).Error.Code)
}

// TestUpdateTask tests partial updates.
func (s *HandlerTestSuite) TestUpdateTask() {
	created := s.createTask("Ship", "Low", time.Now().Add(24*time.Hour))

	title := "Ship it"
	description := "today"
	w := s.makeRequest("PATCH", "/api/v1/tasks/"+created.ID, dto.UpdateTaskRequest{
		Title:       &title,
		Description: &description,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.TaskDetailResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("Ship it", resp.Title)
	s.Require().NotNil(resp.Description)
	s.Equal("today", *resp.Description)
	s.Equal("Low", resp.Priority)
}

// TestStatusTransitions tests the status endpoint, including forbidden moves.
func (s *HandlerTestSuite) TestStatusTransitions() {
	created := s.createTask("Ship", "Low", time.Now().Add(24*time.Hour))
	path := "/api/v1/tasks/" + created.ID + "/status"

	w := s.makeRequest("PATCH", path, dto.ChangeStatusRequest{Status: "Done"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("INVALID_TRANSITION", s.decodeError(w).Error.Code)

	w = s.makeRequest("PATCH", path, dto.ChangeStatusRequest{Status: "Archived"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.makeRequest("PATCH", path, dto.ChangeStatusRequest{})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.makeRequest("PATCH", path, dto.ChangeStatusRequest{Status: "InProgress"})
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.makeRequest("PATCH", path, dto.ChangeStatusRequest{Status: "Done"})
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.TaskDetailResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("Done", resp.Status)
	s.Contains(s.events, domain.EventTaskCompleted)
}

// TestComments tests adding and removing comments.
func (s *HandlerTestSuite) TestComments() {
	created := s.createTask("Ship", "Low", time.Now().Add(24*time.Hour))
	base := "/api/v1/tasks/" + created.ID

	w := s.makeRequest("POST", base+"/comments", dto.AddCommentRequest{Text: "  "})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.makeRequest("POST", base+"/comments", dto.AddCommentRequest{Text: "looks good"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var comment dto.CommentResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &comment))
	s.Equal("looks good", comment.Text)
	s.Equal(created.ID, comment.TaskID)

	w = s.makeRequest("GET", base, nil)
	var detail dto.TaskDetailResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &detail))
	s.Require().Len(detail.Comments, 1)
	s.Equal(1, detail.CommentCount)

	w = s.makeRequest("DELETE", base+"/comments/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("COMMENT_NOT_FOUND", s.decodeError(w).Error.Code)

	w = s.makeRequest("DELETE", base+"/comments/"+comment.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &detail))
	s.Empty(detail.Comments)
}

// TestListOmitsCommentFields tests that list rows carry no comment fields while details count them.
func (s *HandlerTestSuite) TestListOmitsCommentFields() {
	created := s.createTask("Ship", "Low", time.Now().Add(24*time.Hour))
	w := s.makeRequest("POST", "/api/v1/tasks/"+created.ID+"/comments", dto.AddCommentRequest{Text: "one"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.makeRequest("GET", "/api/v1/tasks", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Tasks []map[string]any `json:"tasks"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Require().Len(list.Tasks, 1)
	s.NotContains(list.Tasks[0], "comment_count")
	s.NotContains(list.Tasks[0], "comments")

	w = s.makeRequest("GET", "/api/v1/tasks/"+created.ID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var detail dto.TaskDetailResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &detail))
	s.Equal(1, detail.CommentCount)
	s.Len(detail.Comments, 1)
}

// TestDeleteTask tests delete guards and force.
func (s *HandlerTestSuite) TestDeleteTask() {
	created := s.createTask("Ship", "Low", time.Now().Add(24*time.Hour))
	base := "/api/v1/tasks/" + created.ID

	w := s.makeRequest("POST", base+"/comments", dto.AddCommentRequest{Text: "keep"})
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.makeRequest("DELETE", base, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("TASK_HAS_COMMENTS", s.decodeError(w).Error.Code)

	w = s.makeRequest("DELETE", base+"?force=maybe", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.makeRequest("DELETE", base+"?force=true", nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.Contains(s.events, domain.EventTaskDeleted)

	w = s.makeRequest("GET", base, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

// TestDeleteInProgressTask tests that in-progress tasks are protected.
func (s *HandlerTestSuite) TestDeleteInProgressTask() {
	id := s.storeOverdue(domain.TaskPriorityLow)

	w := s.makeRequest("DELETE", "/api/v1/tasks/"+id, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("TASK_IN_PROGRESS", s.decodeError(w).Error.Code)
}

// TestListTasks tests plain filters and named specification filters.
func (s *HandlerTestSuite) TestListTasks() {
	s.createTask("soon", "High", time.Now().Add(24*time.Hour))
	s.createTask("later", "Low", time.Now().Add(240*time.Hour))
	lateID := s.storeOverdue(domain.TaskPriorityHigh)

	list := func(query string) dto.TasksListResponse {
		w := s.makeRequest("GET", "/api/v1/tasks"+query, nil)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		var resp dto.TasksListResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	all := list("")
	s.Equal(3, all.Total)
	s.Equal(lateID, all.Tasks[0].ID, "ordered by due date")

	s.Equal(2, list("?priority=High").Total)
	s.Equal(2, list("?status=New").Total)

	overdue := list("?filter=overdue")
	s.Require().Equal(1, overdue.Total)
	s.Equal(lateID, overdue.Tasks[0].ID)
	s.True(overdue.Tasks[0].IsOverdue)

	s.Equal(2, list("?filter=active,high-priority").Total)
	s.Equal(1, list("?filter=completable").Total)
	s.Equal(1, list("?filter=active&status=New&priority=High").Total)

	w := s.makeRequest("GET", "/api/v1/tasks?filter=stale", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.makeRequest("GET", "/api/v1/tasks?status=Blocked", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

// TestOverdueWarning tests that task details carry state warnings.
func (s *HandlerTestSuite) TestOverdueWarning() {
	id := s.storeOverdue(domain.TaskPriorityLow)

	w := s.makeRequest("GET", "/api/v1/tasks/"+id, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.TaskDetailResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal([]string{service.ErrTaskOverdue.Error()}, resp.Warnings)
}

// TestGetStats tests the stats endpoint.
func (s *HandlerTestSuite) TestGetStats() {
	s.createTask("a", "High", time.Now().Add(24*time.Hour))
	s.createTask("b", "Low", time.Now().Add(24*time.Hour))
	s.storeOverdue(domain.TaskPriorityHigh)

	w := s.makeRequest("GET", "/api/v1/stats", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp dto.StatsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(3, resp.Total)
	s.Equal(1, resp.Overdue)
	s.Equal(2, resp.ByStatus["New"])
	s.Equal(1, resp.ByStatus["InProgress"])
	s.Equal(2, resp.ByPriority["High"])
}
