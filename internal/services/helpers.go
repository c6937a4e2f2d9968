package services

import (
	"context"
	"log"

	"classroom-quiz-service/internal/apperror"
	"classroom-quiz-service/internal/models"
	"classroom-quiz-service/internal/repository"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// orderByIDs returns items in the order of ids, skipping ids with no matching item.
func orderByIDs[T any](ids []bson.ObjectID, items []T, idOf func(T) bson.ObjectID) []T {
	byID := make(map[bson.ObjectID]T, len(items))
	for _, item := range items {
		byID[idOf(item)] = item
	}

	ordered := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered
}

func publicID(q models.PublicQuestion) bson.ObjectID { return q.ID }

func questionID(q models.Question) bson.ObjectID { return q.ID }

// populateQuizzes resolves the public questions of every quiz with one store read.
func populateQuizzes(ctx context.Context, questions QuestionStore, quizzes []models.Quiz) ([]*models.PopulatedQuiz, error) {
	var ids []bson.ObjectID
	for _, q := range quizzes {
		ids = append(ids, q.Questions...)
	}

	var found []models.PublicQuestion
	if len(ids) > 0 {
		var err error
		if found, err = questions.FindPublic(ctx, ids); err != nil {
			return nil, err
		}
	}

	populated := make([]*models.PopulatedQuiz, len(quizzes))
	for i := range quizzes {
		populated[i] = models.NewPopulatedQuiz(&quizzes[i], orderByIDs(quizzes[i].Questions, found, publicID))
	}
	return populated, nil
}

func populateQuiz(ctx context.Context, questions QuestionStore, quiz *models.Quiz) (*models.PopulatedQuiz, error) {
	populated, err := populateQuizzes(ctx, questions, []models.Quiz{*quiz})
	if err != nil {
		return nil, err
	}
	return populated[0], nil
}

// ownership resolves module ids to their group and checks who may author for it.
type ownership struct {
	modules ModuleStore
	groups  GroupStore
}

// resolveGroup checks that every module exists, that they share exactly one group, that the
// group exists and, when userID is set, that userID owns it.
func (o ownership) resolveGroup(ctx context.Context, op string, moduleIDs []bson.ObjectID, userID string) (*models.Group, error) {
	modules, err := o.modules.FindByIDs(ctx, moduleIDs)
	if err != nil {
		return nil, apperror.Storage(op, err)
	}
	if len(modules) != len(moduleIDs) {
		return nil, apperror.New(apperror.ModuleNotFound, op, "one or more modules not found")
	}

	groupIDs := distinctGroups(modules)
	if len(groupIDs) != 1 {
		return nil, apperror.New(apperror.CrossGroupModules, op, "modules must belong to a single group")
	}

	group, err := o.groups.FindByID(ctx, groupIDs[0])
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.GroupNotFound, op, "group not found for selected modules")
	}
	if err != nil {
		return nil, apperror.Storage(op, err)
	}

	if userID != "" && !group.OwnedBy(userID) {
		return nil, apperror.New(apperror.Forbidden, op, "only the group owner can author quizzes for this group")
	}
	return group, nil
}

// ownsAll checks userID against the owner of every group the modules belong to.
// Modules or groups that no longer exist are skipped.
func (o ownership) ownsAll(ctx context.Context, op string, moduleIDs []bson.ObjectID, userID string) error {
	if userID == "" || len(moduleIDs) == 0 {
		return nil
	}

	modules, err := o.modules.FindByIDs(ctx, moduleIDs)
	if err != nil {
		return apperror.Storage(op, err)
	}
	for _, groupID := range distinctGroups(modules) {
		group, err := o.groups.FindByID(ctx, groupID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Group %s of quiz modules no longer exists, skipping owner check", groupID.Hex())
			continue
		}
		if err != nil {
			return apperror.Storage(op, err)
		}
		if !group.OwnedBy(userID) {
			return apperror.New(apperror.Forbidden, op, "only the group owner can manage this quiz")
		}
	}
	return nil
}

func distinctGroups(modules []models.Module) []bson.ObjectID {
	seen := make(map[bson.ObjectID]struct{})
	var ids []bson.ObjectID
	for _, m := range modules {
		if m.Group == nil || m.Group.IsZero() {
			continue
		}
		if _, ok := seen[*m.Group]; ok {
			continue
		}
		seen[*m.Group] = struct{}{}
		ids = append(ids, *m.Group)
	}
	return ids
}

func hexIDs(ids []bson.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}
