package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

var errBoom = errors.New("boom")

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeQuestionBankService returns err when set and records the last call
type fakeQuestionBankService struct {
	err error

	lastUserID  string
	lastBankID  uint
	lastFilters repositories.QuestionBankFilters
	lastSelect  *services.SelectForSubmissionRequest
	lastRef     models.ContextRef
	bookmarked  *bool
}

func (f *fakeQuestionBankService) bankResponse(id uint) *services.QuestionBankResponse {
	return &services.QuestionBankResponse{
		QuestionBank: &models.QuestionBank{ID: id, Title: "Unit 1", ContextType: models.ContextCourse, ContextID: 12, WorkflowState: models.StateActive},
		ContextCode:  "course_12",
	}
}

func (f *fakeQuestionBankService) Create(ctx context.Context, req *services.CreateQuestionBankRequest, userID string) (*services.QuestionBankResponse, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.bankResponse(1), nil
}

func (f *fakeQuestionBankService) GetByID(ctx context.Context, id uint, userID string) (*services.QuestionBankResponse, error) {
	f.lastBankID, f.lastUserID = id, userID
	if f.err != nil {
		return nil, f.err
	}
	return f.bankResponse(id), nil
}

func (f *fakeQuestionBankService) Update(ctx context.Context, id uint, req *services.UpdateQuestionBankRequest, userID string) (*services.QuestionBankResponse, error) {
	f.lastBankID, f.lastUserID = id, userID
	if f.err != nil {
		return nil, f.err
	}
	return f.bankResponse(id), nil
}

func (f *fakeQuestionBankService) List(ctx context.Context, filters repositories.QuestionBankFilters, userID string) (*services.QuestionBankListResponse, error) {
	f.lastFilters, f.lastUserID = filters, userID
	if f.err != nil {
		return nil, f.err
	}
	return &services.QuestionBankListResponse{Banks: []*services.QuestionBankResponse{f.bankResponse(1)}, Total: 1, Page: 1, Size: filters.Limit}, nil
}

func (f *fakeQuestionBankService) Rights(ctx context.Context, id uint, userID string) (*services.QuestionBankRightsResponse, error) {
	f.lastBankID = id
	return &services.QuestionBankRightsResponse{BankID: id}, f.err
}

func (f *fakeQuestionBankService) Destroy(ctx context.Context, id uint, userID string) error {
	f.lastBankID = id
	return f.err
}

func (f *fakeQuestionBankService) ClearForReplacement(ctx context.Context, id uint, userID string) error {
	f.lastBankID = id
	return f.err
}

func (f *fakeQuestionBankService) UnfiledForContext(ctx context.Context, ref models.ContextRef, userID string) (*services.QuestionBankResponse, error) {
	f.lastRef = ref
	if f.err != nil {
		return nil, f.err
	}
	return f.bankResponse(7), nil
}

func (f *fakeQuestionBankService) Bookmark(ctx context.Context, id uint, userID string, bookmark bool) error {
	f.lastBankID = id
	f.bookmarked = &bookmark
	return f.err
}

func (f *fakeQuestionBankService) IsBookmarked(ctx context.Context, id uint, userID string) (bool, error) {
	return f.bookmarked != nil && *f.bookmarked, f.err
}

func (f *fakeQuestionBankService) ListBookmarked(ctx context.Context, userID string, filters repositories.QuestionBankFilters) (*services.QuestionBankListResponse, error) {
	f.lastFilters, f.lastUserID = filters, userID
	if f.err != nil {
		return nil, f.err
	}
	return &services.QuestionBankListResponse{Banks: []*services.QuestionBankResponse{}, Page: 1, Size: filters.Limit}, nil
}

func (f *fakeQuestionBankService) SetAlignments(ctx context.Context, id uint, req *services.SetAlignmentsRequest, userID string) ([]*models.OutcomeAlignment, error) {
	f.lastBankID = id
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.OutcomeAlignment, 0, len(req.Alignments))
	for _, a := range req.Alignments {
		out = append(out, &models.OutcomeAlignment{QuestionBankID: id, LearningOutcomeID: a.OutcomeID, MasteryScore: a.MasteryScore, WorkflowState: models.StateActive})
	}
	return out, nil
}

func (f *fakeQuestionBankService) GetAlignments(ctx context.Context, id uint, userID string) ([]*models.OutcomeAlignment, error) {
	f.lastBankID = id
	return []*models.OutcomeAlignment{}, f.err
}

func (f *fakeQuestionBankService) QuestionCount(ctx context.Context, id uint, userID string) (int64, error) {
	return 0, f.err
}

func (f *fakeQuestionBankService) SelectQuestions(ctx context.Context, req *services.SelectForSubmissionRequest, userID string) (*services.SelectionResponse, error) {
	f.lastSelect = req
	if f.err != nil {
		return nil, f.err
	}
	return &services.SelectionResponse{BankID: req.BankID, QuizID: req.QuizID, QuizGroupID: req.QuizGroupID, QuizQuestions: []*models.QuizQuestion{}}, nil
}

type fakeExportService struct {
	err error
}

func (f *fakeExportService) ExportQuestions(ctx context.Context, bankID uint, userID string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("xlsx-bytes"))
	return err
}

type fakeTokenService struct {
	err     error
	lastReq *services.IssueTokenRequest
}

func (f *fakeTokenService) Issue(ctx context.Context, req *services.IssueTokenRequest, userID string) (*services.TokenResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &services.TokenResponse{Token: "signed", Workflows: req.Workflows}, nil
}

type fakeServiceManager struct {
	questionBank *fakeQuestionBankService
	export       *fakeExportService
	token        *fakeTokenService
	healthErr    error
}

func (m *fakeServiceManager) QuestionBank() services.QuestionBankService { return m.questionBank }
func (m *fakeServiceManager) Sampler() services.QuestionBankSampler      { return nil }
func (m *fakeServiceManager) Capability() services.CapabilityService     { return nil }
func (m *fakeServiceManager) Token() services.TokenService               { return m.token }
func (m *fakeServiceManager) Export() services.ExportService             { return m.export }
func (m *fakeServiceManager) Initialize(ctx context.Context) error       { return nil }
func (m *fakeServiceManager) HealthCheck(ctx context.Context) error      { return m.healthErr }
func (m *fakeServiceManager) Shutdown(ctx context.Context) error         { return nil }

// fakeTokenParser accepts "good-<user id>" tokens
type fakeTokenParser struct{}

func (fakeTokenParser) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	userID, ok := strings.CutPrefix(token, "good-")
	if !ok {
		return nil, errBoom
	}
	return &casdoorsdk.Claims{User: casdoorsdk.User{
		Id:          userID,
		Name:        userID,
		DisplayName: "From Claims",
		Email:       userID + "@example.com",
		Type:        "teacher",
		Properties:  map[string]string{"high_contrast": "true"},
	}}, nil
}

type fakeUserRepository struct {
	users map[string]*models.User
}

func (r *fakeUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

type testServer struct {
	router  *gin.Engine
	manager *fakeServiceManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := &fakeServiceManager{
		questionBank: &fakeQuestionBankService{},
		export:       &fakeExportService{},
		token:        &fakeTokenService{},
	}
	userRepo := &fakeUserRepository{users: map[string]*models.User{
		"teacher-1": {ID: "teacher-1", FullName: "Stored Teacher", Role: models.RoleTeacher},
	}}

	logger := testLogger()
	router := gin.New()
	SetupMiddleware(router, logger, nil)
	NewHandlerManager(manager, logger, newCasdoorAuthMiddleware(fakeTokenParser{}, userRepo, logger)).SetupRoutes(router)

	return &testServer{router: router, manager: manager}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer good-teacher-1")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doRequest(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
