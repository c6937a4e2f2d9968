package services

import (
	"context"
	"sort"
	"sync"

	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// memDB is an in-memory record store shared by the fake repositories.
type memDB struct {
	mu          sync.Mutex
	questions   map[bson.ObjectID]models.Question
	quizzes     map[bson.ObjectID]models.Quiz
	links       []models.ModuleQuiz
	modules     map[bson.ObjectID]models.Module
	groups      map[bson.ObjectID]models.Group
	submissions []models.Submission
	writes      int

	linkErr       error
	questionErr   error
	submissionErr error
}

func newMemDB() *memDB {
	return &memDB{
		questions: map[bson.ObjectID]models.Question{},
		quizzes:   map[bson.ObjectID]models.Quiz{},
		modules:   map[bson.ObjectID]models.Module{},
		groups:    map[bson.ObjectID]models.Group{},
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Questions:   questionFake{db},
		Quizzes:     quizFake{db},
		Links:       linkFake{db},
		Modules:     moduleFake{db},
		Groups:      groupFake{db},
		Submissions: submissionFake{db},
	}
}

func (db *memDB) addGroup(owner bson.ObjectID) bson.ObjectID {
	id := bson.NewObjectID()
	db.groups[id] = models.Group{ID: id, Title: "Group", Owner: &owner}
	return id
}

func (db *memDB) addModule(group *bson.ObjectID) bson.ObjectID {
	id := bson.NewObjectID()
	db.modules[id] = models.Module{ID: id, Title: "Module", Group: group}
	return id
}

func (db *memDB) addQuestion(text string, correct int, point float64) bson.ObjectID {
	id := bson.NewObjectID()
	db.questions[id] = models.Question{ID: id, Text: text, Options: []string{"a", "b", "c"}, CorrectOptionIndex: correct, Point: point}
	return id
}

func (db *memDB) addQuiz(questionIDs ...bson.ObjectID) bson.ObjectID {
	id := bson.NewObjectID()
	db.quizzes[id] = models.Quiz{ID: id, Title: "Quiz", Questions: questionIDs}
	return id
}

func (db *memDB) addLink(quizID, moduleID bson.ObjectID) bson.ObjectID {
	id := bson.NewObjectID()
	db.links = append(db.links, models.ModuleQuiz{ID: id, QuizID: quizID, ModuleID: moduleID})
	return id
}

func (db *memDB) linkedModules(quizID bson.ObjectID) []string {
	var out []string
	for _, l := range db.links {
		if l.QuizID == quizID {
			out = append(out, l.ModuleID.Hex())
		}
	}
	sort.Strings(out)
	return out
}

type questionFake struct{ db *memDB }

func (f questionFake) InsertMany(_ context.Context, questions []models.Question) ([]bson.ObjectID, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.questionErr != nil {
		return nil, f.db.questionErr
	}
	ids := make([]bson.ObjectID, len(questions))
	for i, q := range questions {
		q.ID = bson.NewObjectID()
		f.db.questions[q.ID] = q
		ids[i] = q.ID
	}
	f.db.writes++
	return ids, nil
}

func (f questionFake) UpdateByID(_ context.Context, id bson.ObjectID, u models.QuestionUpdate) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	q, ok := f.db.questions[id]
	if !ok {
		return errors.Wrap(repository.ErrNotFound, "update question")
	}
	q.Text = u.Text
	q.Options = u.Options
	q.CorrectOptionIndex = u.CorrectOptionIndex
	if u.Point != nil {
		q.Point = *u.Point
	}
	f.db.questions[id] = q
	f.db.writes++
	return nil
}

func (f questionFake) FindPublic(_ context.Context, ids []bson.ObjectID) ([]models.PublicQuestion, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.PublicQuestion
	for _, id := range uniqueIDs(ids) {
		if q, ok := f.db.questions[id]; ok {
			out = append(out, q.Public())
		}
	}
	reverse(out)
	return out, nil
}

func (f questionFake) FindForGrading(_ context.Context, ids []bson.ObjectID) ([]models.Question, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Question
	for _, id := range uniqueIDs(ids) {
		if q, ok := f.db.questions[id]; ok {
			out = append(out, q)
		}
	}
	// store order is not quiz order
	reverse(out)
	return out, nil
}

type quizFake struct{ db *memDB }

func (f quizFake) Create(_ context.Context, quiz *models.Quiz) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	quiz.ID = bson.NewObjectID()
	f.db.quizzes[quiz.ID] = *quiz
	f.db.writes++
	return nil
}

func (f quizFake) FindByID(_ context.Context, id bson.ObjectID) (*models.Quiz, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	q, ok := f.db.quizzes[id]
	if !ok {
		return nil, errors.Wrap(repository.ErrNotFound, "find quiz")
	}
	q.Questions = append([]bson.ObjectID(nil), q.Questions...)
	return &q, nil
}

func (f quizFake) FindAll(_ context.Context) ([]models.Quiz, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Quiz
	for _, q := range f.db.quizzes {
		out = append(out, q)
	}
	return out, nil
}

func (f quizFake) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Quiz, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Quiz
	for _, id := range uniqueIDs(ids) {
		if q, ok := f.db.quizzes[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f quizFake) UpdateDetails(_ context.Context, quiz *models.Quiz) (*models.Quiz, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.quizzes[quiz.ID]
	if !ok {
		return nil, errors.Wrap(repository.ErrNotFound, "update quiz")
	}
	stored.Title = quiz.Title
	stored.Description = quiz.Description
	stored.Questions = quiz.Questions
	if quiz.TotalMarks != nil {
		stored.TotalMarks = quiz.TotalMarks
	}
	f.db.quizzes[quiz.ID] = stored
	f.db.writes++
	return &stored, nil
}

func (f quizFake) Delete(_ context.Context, id bson.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.quizzes[id]; !ok {
		return errors.Wrap(repository.ErrNotFound, "delete quiz")
	}
	delete(f.db.quizzes, id)
	f.db.writes++
	return nil
}

type linkFake struct{ db *memDB }

func (f linkFake) Link(_ context.Context, quizID bson.ObjectID, moduleIDs []bson.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.linkErr != nil {
		return f.db.linkErr
	}
	duplicates := 0
	for _, moduleID := range moduleIDs {
		exists := false
		for _, l := range f.db.links {
			if l.QuizID == quizID && l.ModuleID == moduleID {
				exists = true
				break
			}
		}
		if exists {
			duplicates++
			continue
		}
		f.db.links = append(f.db.links, models.ModuleQuiz{ID: bson.NewObjectID(), QuizID: quizID, ModuleID: moduleID})
	}
	f.db.writes++
	if duplicates > 0 {
		return errors.Wrap(repository.ErrDuplicateKey, "insert modulequiz links")
	}
	return nil
}

func (f linkFake) FindByQuiz(_ context.Context, quizID bson.ObjectID) ([]models.ModuleQuiz, error) {
	return f.filter(func(l models.ModuleQuiz) bool { return l.QuizID == quizID }), nil
}

func (f linkFake) FindByModule(_ context.Context, moduleID bson.ObjectID) ([]models.ModuleQuiz, error) {
	return f.filter(func(l models.ModuleQuiz) bool { return l.ModuleID == moduleID }), nil
}

func (f linkFake) filter(match func(models.ModuleQuiz) bool) []models.ModuleQuiz {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.ModuleQuiz
	for _, l := range f.db.links {
		if match(l) {
			out = append(out, l)
		}
	}
	return out
}

func (f linkFake) remove(match func(models.ModuleQuiz) bool) int64 {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var kept []models.ModuleQuiz
	var removed int64
	for _, l := range f.db.links {
		if match(l) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	f.db.links = kept
	f.db.writes++
	return removed
}

func (f linkFake) UnlinkExcept(_ context.Context, quizID bson.ObjectID, keep []bson.ObjectID) (int64, error) {
	return f.remove(func(l models.ModuleQuiz) bool {
		if l.QuizID != quizID {
			return false
		}
		for _, id := range keep {
			if id == l.ModuleID {
				return false
			}
		}
		return true
	}), nil
}

func (f linkFake) UnlinkQuiz(_ context.Context, quizID bson.ObjectID) (int64, error) {
	return f.remove(func(l models.ModuleQuiz) bool { return l.QuizID == quizID }), nil
}

func (f linkFake) UnlinkModule(_ context.Context, moduleID bson.ObjectID) (int64, error) {
	return f.remove(func(l models.ModuleQuiz) bool { return l.ModuleID == moduleID }), nil
}

type moduleFake struct{ db *memDB }

func (f moduleFake) FindByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Module, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Module
	for _, id := range uniqueIDs(ids) {
		if m, ok := f.db.modules[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type groupFake struct{ db *memDB }

func (f groupFake) FindByID(_ context.Context, id bson.ObjectID) (*models.Group, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	g, ok := f.db.groups[id]
	if !ok {
		return nil, errors.Wrap(repository.ErrNotFound, "find group")
	}
	return &g, nil
}

type submissionFake struct{ db *memDB }

func (f submissionFake) Create(_ context.Context, submission *models.Submission) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.submissionErr != nil {
		return f.db.submissionErr
	}
	submission.ID = bson.NewObjectID()
	f.db.submissions = append(f.db.submissions, *submission)
	f.db.writes++
	return nil
}

func (f submissionFake) FindByID(_ context.Context, id bson.ObjectID) (*models.Submission, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.submissions {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, errors.Wrap(repository.ErrNotFound, "find submission")
}

func (f submissionFake) Find(_ context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []models.Submission{}
	for _, s := range f.db.submissions {
		if filter.Quiz != nil && s.Quiz != *filter.Quiz {
			continue
		}
		if filter.Student != "" && s.Student != filter.Student {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f submissionFake) FindLatest(_ context.Context, quizID bson.ObjectID, student string) (*models.Submission, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i := len(f.db.submissions) - 1; i >= 0; i-- {
		s := f.db.submissions[i]
		if s.Quiz == quizID && s.Student == student {
			return &s, nil
		}
	}
	return nil, errors.Wrap(repository.ErrNotFound, "find latest submission")
}

func (f submissionFake) Delete(_ context.Context, id bson.ObjectID) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, s := range f.db.submissions {
		if s.ID == id {
			f.db.submissions = append(f.db.submissions[:i], f.db.submissions[i+1:]...)
			f.db.writes++
			return nil
		}
	}
	return errors.Wrap(repository.ErrNotFound, "delete submission")
}

type recordingPublisher struct {
	created     []bson.ObjectID
	updated     []bson.ObjectID
	orphaned    [][]bson.ObjectID
	deleted     []bson.ObjectID
	submissions []bson.ObjectID
}

func (p *recordingPublisher) PublishQuizCreated(_ context.Context, quiz *models.Quiz, _ []bson.ObjectID) error {
	p.created = append(p.created, quiz.ID)
	return nil
}

func (p *recordingPublisher) PublishQuizUpdated(_ context.Context, quiz *models.Quiz, _, orphaned []bson.ObjectID) error {
	p.updated = append(p.updated, quiz.ID)
	p.orphaned = append(p.orphaned, orphaned)
	return nil
}

func (p *recordingPublisher) PublishQuizDeleted(_ context.Context, quizID bson.ObjectID, _ []bson.ObjectID) error {
	p.deleted = append(p.deleted, quizID)
	return nil
}

func (p *recordingPublisher) PublishSubmissionCreated(_ context.Context, submission *models.Submission) error {
	p.submissions = append(p.submissions, submission.ID)
	return errors.New("broker unavailable")
}

type mapCache struct {
	entries     map[string]*models.PopulatedQuiz
	hits        int
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]*models.PopulatedQuiz{}}
}

func (c *mapCache) Get(_ context.Context, id string) (*models.PopulatedQuiz, error) {
	q, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return q, nil
}

func (c *mapCache) Set(_ context.Context, quiz *models.PopulatedQuiz) error {
	c.entries[quiz.ID.Hex()] = quiz
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, id string) error {
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type countingTransactor struct {
	calls int
}

func (t *countingTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

func uniqueIDs(ids []bson.ObjectID) []bson.ObjectID {
	seen := map[bson.ObjectID]bool{}
	var out []bson.ObjectID
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
