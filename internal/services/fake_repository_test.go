package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
	"github.com/SAP-F-2025/question-bank-service/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type bookmarkKey struct {
	bankID uint
	userID string
}

// fakeStore is an in-memory stand-in for the database
type fakeStore struct {
	nextID uint

	banks         map[uint]*models.QuestionBank
	questions     map[uint]*models.Question
	quizQuestions []*models.QuizQuestion
	quizzes       map[uint]*models.Quiz
	quizGroups    map[uint]*models.QuizGroup
	alignments    map[uint]*models.OutcomeAlignment
	outcomes      map[uint]*models.LearningOutcome
	accounts      map[uint]*models.Account
	courses       map[uint]*models.Course
	memberships   []*models.ContextMembership
	bookmarks     map[bookmarkKey]bool
	users         map[string]*models.User

	// failure injection
	bindFailAfter int
	binds         int
	sampleErr     error
	afterSample   func()
	afterReload   func(bank *models.QuestionBank)

	lockedIDs    [][]uint
	transactions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:      100,
		banks:       map[uint]*models.QuestionBank{},
		questions:   map[uint]*models.Question{},
		quizzes:     map[uint]*models.Quiz{},
		quizGroups:  map[uint]*models.QuizGroup{},
		alignments:  map[uint]*models.OutcomeAlignment{},
		outcomes:    map[uint]*models.LearningOutcome{},
		accounts:    map[uint]*models.Account{},
		courses:     map[uint]*models.Course{},
		bookmarks:   map[bookmarkKey]bool{},
		users:       map[string]*models.User{},
		memberships: nil,
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addMembership(userID string, ref models.ContextRef, role models.MembershipRole) {
	s.memberships = append(s.memberships, &models.ContextMembership{
		ID: s.id(), UserID: userID, ContextType: ref.Type, ContextID: ref.ID, Role: role,
	})
}

func (s *fakeStore) addQuestion(bankID uint, state models.WorkflowState) *models.Question {
	q := &models.Question{ID: s.id(), QuestionBankID: bankID, Name: "Q", WorkflowState: state}
	s.questions[q.ID] = q
	return q
}

// ===== Repository =====

type fakeRepository struct {
	store *fakeStore
}

func newFakeRepository(store *fakeStore) *fakeRepository {
	return &fakeRepository{store: store}
}

func (r *fakeRepository) QuestionBank() repositories.QuestionBankRepository {
	return &fakeQuestionBankRepo{r.store}
}

func (r *fakeRepository) Question() repositories.QuestionRepository {
	return &fakeQuestionRepo{r.store}
}

func (r *fakeRepository) QuizQuestion() repositories.QuizQuestionRepository {
	return &fakeQuizQuestionRepo{r.store}
}

func (r *fakeRepository) Alignment() repositories.AlignmentRepository {
	return &fakeAlignmentRepo{r.store}
}

func (r *fakeRepository) Context() repositories.ContextRepository {
	return &fakeContextRepo{r.store}
}

func (r *fakeRepository) User() repositories.UserRepository {
	return &fakeUserRepo{r.store}
}

func (r *fakeRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *fakeRepository) Close() error {
	return nil
}

// WithTransaction restores the mutable tables when fn fails
func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	s := r.store
	s.transactions++

	quizQuestions := append([]*models.QuizQuestion(nil), s.quizQuestions...)
	alignments := make(map[uint]models.OutcomeAlignment, len(s.alignments))
	for id, a := range s.alignments {
		alignments[id] = *a
	}
	banks := make(map[uint]models.QuestionBank, len(s.banks))
	for id, b := range s.banks {
		banks[id] = *b
	}

	if err := fn(r); err != nil {
		s.quizQuestions = quizQuestions
		s.alignments = map[uint]*models.OutcomeAlignment{}
		for id, a := range alignments {
			a := a
			s.alignments[id] = &a
		}
		s.banks = map[uint]*models.QuestionBank{}
		for id, b := range banks {
			b := b
			s.banks[id] = &b
		}
		return err
	}
	return nil
}

// ===== QuestionBankRepository =====

type fakeQuestionBankRepo struct{ s *fakeStore }

func (r *fakeQuestionBankRepo) Create(ctx context.Context, tx *gorm.DB, bank *models.QuestionBank) error {
	bank.ID = r.s.id()
	bank.CreatedAt = time.Now()
	bank.UpdatedAt = bank.CreatedAt
	stored := *bank
	r.s.banks[bank.ID] = &stored
	return nil
}

func (r *fakeQuestionBankRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error) {
	bank, ok := r.s.banks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *bank
	return &out, nil
}

// Reload hands out a copy and then runs afterReload against the stored row,
// standing in for a write that lands right after the read
func (r *fakeQuestionBankRepo) Reload(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error) {
	bank, err := r.GetByID(ctx, tx, id)
	if err == nil && r.s.afterReload != nil {
		r.s.afterReload(r.s.banks[id])
	}
	return bank, err
}

func (r *fakeQuestionBankRepo) LockForShare(ctx context.Context, tx *gorm.DB, id uint) (*models.QuestionBank, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeQuestionBankRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, id uint, title string) error {
	bank, ok := r.s.banks[id]
	if !ok || !bank.IsActive() {
		return repositories.ErrNotFound
	}
	bank.Title = title
	bank.UpdatedAt = time.Now()
	return nil
}

func (r *fakeQuestionBankRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id uint, deletedAt time.Time) error {
	bank, ok := r.s.banks[id]
	if !ok {
		return repositories.ErrNotFound
	}
	bank.MarkDeleted(deletedAt)
	return nil
}

func (r *fakeQuestionBankRepo) matches(bank *models.QuestionBank, filters repositories.QuestionBankFilters) bool {
	if filters.ContextType != nil && bank.ContextType != *filters.ContextType {
		return false
	}
	if filters.ContextID != nil && bank.ContextID != *filters.ContextID {
		return false
	}
	if filters.WorkflowState != nil {
		if bank.WorkflowState != *filters.WorkflowState {
			return false
		}
	} else if !filters.IncludeDeleted && !bank.IsActive() {
		return false
	}
	if filters.Title != nil && !strings.Contains(strings.ToLower(bank.Title), strings.ToLower(*filters.Title)) {
		return false
	}
	return true
}

func (r *fakeQuestionBankRepo) page(banks []*models.QuestionBank, filters repositories.QuestionBankFilters) ([]*models.QuestionBank, int64) {
	sort.Slice(banks, func(i, j int) bool { return banks[i].ID < banks[j].ID })
	total := int64(len(banks))
	if filters.Offset > 0 {
		if filters.Offset >= len(banks) {
			return []*models.QuestionBank{}, total
		}
		banks = banks[filters.Offset:]
	}
	if filters.Limit > 0 && len(banks) > filters.Limit {
		banks = banks[:filters.Limit]
	}
	return banks, total
}

func (r *fakeQuestionBankRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionBankFilters) ([]*models.QuestionBank, int64, error) {
	var out []*models.QuestionBank
	for _, bank := range r.s.banks {
		if r.matches(bank, filters) {
			copied := *bank
			out = append(out, &copied)
		}
	}
	banks, total := r.page(out, filters)
	return banks, total, nil
}

func (r *fakeQuestionBankRepo) FindByTitle(ctx context.Context, tx *gorm.DB, ref models.ContextRef, title string) (*models.QuestionBank, error) {
	var found *models.QuestionBank
	for _, bank := range r.s.banks {
		if bank.ContextRef() == ref && bank.Title == title && bank.IsActive() && (found == nil || bank.ID < found.ID) {
			found = bank
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	out := *found
	return &out, nil
}

func (r *fakeQuestionBankRepo) ClearQuestionsAndGroups(ctx context.Context, tx *gorm.DB, bankID uint) error {
	for id, q := range r.s.questions {
		if q.QuestionBankID == bankID {
			delete(r.s.questions, id)
		}
	}
	for id, g := range r.s.quizGroups {
		if g.QuestionBankID != nil && *g.QuestionBankID == bankID {
			delete(r.s.quizGroups, id)
		}
	}
	return nil
}

func (r *fakeQuestionBankRepo) CountActiveQuestions(ctx context.Context, tx *gorm.DB, bankID uint) (int64, error) {
	var count int64
	for _, q := range r.s.questions {
		if q.QuestionBankID == bankID && q.WorkflowState == models.StateActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeQuestionBankRepo) GetStats(ctx context.Context, tx *gorm.DB, bankID uint) (*repositories.QuestionBankStats, error) {
	count, _ := r.CountActiveQuestions(ctx, tx, bankID)
	return &repositories.QuestionBankStats{ActiveQuestions: count}, nil
}

func (r *fakeQuestionBankRepo) AddBookmark(ctx context.Context, tx *gorm.DB, bankID uint, userID string) error {
	r.s.bookmarks[bookmarkKey{bankID, userID}] = true
	return nil
}

func (r *fakeQuestionBankRepo) RemoveBookmark(ctx context.Context, tx *gorm.DB, bankID uint, userID string) error {
	delete(r.s.bookmarks, bookmarkKey{bankID, userID})
	return nil
}

func (r *fakeQuestionBankRepo) IsBookmarked(ctx context.Context, tx *gorm.DB, bankID uint, userID string) (bool, error) {
	return r.s.bookmarks[bookmarkKey{bankID, userID}], nil
}

func (r *fakeQuestionBankRepo) ListBookmarked(ctx context.Context, tx *gorm.DB, userID string, filters repositories.QuestionBankFilters) ([]*models.QuestionBank, int64, error) {
	var out []*models.QuestionBank
	for key := range r.s.bookmarks {
		bank, ok := r.s.banks[key.bankID]
		if key.userID == userID && ok && r.matches(bank, filters) {
			copied := *bank
			out = append(out, &copied)
		}
	}
	banks, total := r.page(out, filters)
	return banks, total, nil
}

// ===== QuestionRepository =====

type fakeQuestionRepo struct{ s *fakeStore }

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	question.ID = r.s.id()
	r.s.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		_ = r.Create(ctx, tx, q)
	}
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	q, ok := r.s.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return q, nil
}

func (r *fakeQuestionRepo) ListByBank(ctx context.Context, tx *gorm.DB, bankID uint, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var out []*models.Question
	for _, q := range r.s.questions {
		if q.QuestionBankID != bankID {
			continue
		}
		if filters.WorkflowState != nil && q.WorkflowState != *filters.WorkflowState {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return []*models.Question{}, total, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

// SampleIDs returns eligible ids in descending order, standing in for ORDER BY RANDOM()
func (r *fakeQuestionRepo) SampleIDs(ctx context.Context, tx *gorm.DB, filters repositories.RandomQuestionFilters) ([]uint, error) {
	if r.s.sampleErr != nil {
		return nil, r.s.sampleErr
	}
	if filters.Count <= 0 {
		return []uint{}, nil
	}
	excluded := map[uint]bool{}
	for _, id := range filters.ExcludeIDs {
		excluded[id] = true
	}
	var ids []uint
	for id, q := range r.s.questions {
		if q.QuestionBankID == filters.BankID && q.WorkflowState == models.StateActive && !excluded[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > filters.Count {
		ids = ids[:filters.Count]
	}
	if r.s.afterSample != nil {
		r.s.afterSample()
	}
	return ids, nil
}

func (r *fakeQuestionRepo) LockByIDs(ctx context.Context, tx *gorm.DB, bankID uint, ids []uint) ([]*models.Question, error) {
	r.s.lockedIDs = append(r.s.lockedIDs, append([]uint(nil), ids...))
	var out []*models.Question
	for _, id := range ids {
		if q, ok := r.s.questions[id]; ok && q.QuestionBankID == bankID && q.WorkflowState == models.StateActive {
			out = append(out, q)
		}
	}
	return out, nil
}

// ===== QuizQuestionRepository =====

type fakeQuizQuestionRepo struct{ s *fakeStore }

func (r *fakeQuizQuestionRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, quizQuestion *models.QuizQuestion) (*models.QuizQuestion, error) {
	for _, existing := range r.s.quizQuestions {
		if existing.Key() == quizQuestion.Key() {
			return existing, nil
		}
	}
	if r.s.bindFailAfter > 0 && r.s.binds >= r.s.bindFailAfter {
		return nil, errInjected
	}
	r.s.binds++
	quizQuestion.ID = r.s.id()
	r.s.quizQuestions = append(r.s.quizQuestions, quizQuestion)
	return quizQuestion, nil
}

func (r *fakeQuizQuestionRepo) GetQuiz(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, ok := r.s.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return quiz, nil
}

func (r *fakeQuizQuestionRepo) GetGroup(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizGroup, error) {
	group, ok := r.s.quizGroups[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return group, nil
}

func (r *fakeQuizQuestionRepo) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint) ([]*models.QuizQuestion, error) {
	var out []*models.QuizQuestion
	for _, qq := range r.s.quizQuestions {
		if qq.QuizID == quizID {
			out = append(out, qq)
		}
	}
	return out, nil
}

// ===== AlignmentRepository =====

type fakeAlignmentRepo struct{ s *fakeStore }

func (r *fakeAlignmentRepo) ListByBank(ctx context.Context, tx *gorm.DB, bankID uint, includeDeleted bool) ([]*models.OutcomeAlignment, error) {
	var out []*models.OutcomeAlignment
	for _, a := range r.s.alignments {
		if a.QuestionBankID == bankID && (includeDeleted || !a.IsDeleted()) {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAlignmentRepo) Create(ctx context.Context, tx *gorm.DB, alignment *models.OutcomeAlignment) error {
	alignment.ID = r.s.id()
	stored := *alignment
	r.s.alignments[alignment.ID] = &stored
	return nil
}

func (r *fakeAlignmentRepo) Update(ctx context.Context, tx *gorm.DB, alignment *models.OutcomeAlignment) error {
	stored := *alignment
	r.s.alignments[alignment.ID] = &stored
	return nil
}

func (r *fakeAlignmentRepo) MarkDeleted(ctx context.Context, tx *gorm.DB, ids []uint) error {
	for _, id := range ids {
		if a, ok := r.s.alignments[id]; ok {
			a.WorkflowState = models.StateDeleted
		}
	}
	return nil
}

func (r *fakeAlignmentRepo) MarkAllDeleted(ctx context.Context, tx *gorm.DB, bankID uint) error {
	for _, a := range r.s.alignments {
		if a.QuestionBankID == bankID {
			a.WorkflowState = models.StateDeleted
		}
	}
	return nil
}

func (r *fakeAlignmentRepo) FindOutcomes(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.LearningOutcome, error) {
	var out []*models.LearningOutcome
	for _, id := range ids {
		if o, ok := r.s.outcomes[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// ===== ContextRepository =====

type fakeContextRepo struct{ s *fakeStore }

func (r *fakeContextRepo) GetAccount(ctx context.Context, tx *gorm.DB, id uint) (*models.Account, error) {
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return account, nil
}

func (r *fakeContextRepo) GetCourse(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	course, ok := r.s.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return course, nil
}

func (r *fakeContextRepo) GetMemberships(ctx context.Context, tx *gorm.DB, userID string, refs []models.ContextRef) ([]*models.ContextMembership, error) {
	wanted := map[models.ContextRef]bool{}
	for _, ref := range refs {
		wanted[ref] = true
	}
	var out []*models.ContextMembership
	for _, m := range r.s.memberships {
		if m.UserID == userID && wanted[m.ContextRef()] {
			out = append(out, m)
		}
	}
	return out, nil
}

// ===== UserRepository =====

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := r.s.users[id]
	return ok, nil
}

var errInjected = errors.New("injected failure")
