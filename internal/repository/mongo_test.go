package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/isdelr/todo-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func todoBSON(id, owner primitive.ObjectID, title string, completed bool, at time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "description", Value: ""},
		{Key: "completed", Value: completed},
		{Key: "userId", Value: owner},
		{Key: "createdAt", Value: at},
		{Key: "updatedAt", Value: at},
	}
}

// filterOwner returns the userId the last command filtered on.
func filterOwner(mt *mtest.T, field string) (primitive.ObjectID, bool) {
	evt := mt.GetStartedEvent()
	if evt == nil {
		mt.Fatal("expected a command to be sent")
	}
	return evt.Command.Lookup(field, "userId").ObjectIDOK()
}

func TestMongoTodoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	id := primitive.NewObjectID()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("List by owner", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, todoBSON(id, owner, "mine", false, now)))

		todos, err := repo.ListByOwner(ctx, owner.Hex())
		if err != nil {
			mt.Fatalf("ListByOwner: %v", err)
		}
		if len(todos) != 1 || todos[0].ID != id.Hex() || todos[0].UserID != owner.Hex() || !todos[0].CreatedAt.Equal(now) {
			mt.Errorf("unexpected todos %+v", todos)
		}
		if got, ok := filterOwner(mt, "filter"); !ok || got != owner {
			mt.Errorf("expected find filtered on owner %s, got %v", owner.Hex(), got)
		}
	})

	mt.Run("List with invalid owner id", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		todos, err := repo.ListByOwner(ctx, "not-an-object-id")
		if err != nil || todos == nil || len(todos) != 0 {
			mt.Errorf("expected empty list and no error, got %v, %v", todos, err)
		}
		if evt := mt.GetStartedEvent(); evt != nil {
			mt.Errorf("expected no command, got %s", evt.CommandName)
		}
	})

	mt.Run("Update own todo", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: todoBSON(id, owner, "mine", true, now)},
		))

		done := true
		todo, err := repo.Update(ctx, id.Hex(), owner.Hex(), models.TodoPatch{Completed: &done}, now)
		if err != nil {
			mt.Fatalf("Update: %v", err)
		}
		if !todo.Completed || todo.ID != id.Hex() {
			mt.Errorf("unexpected todo %+v", todo)
		}
		evt := mt.GetStartedEvent()
		if got, ok := evt.Command.Lookup("query", "userId").ObjectIDOK(); !ok || got != owner {
			mt.Errorf("expected update filtered on owner, got %v", got)
		}
		if got, ok := evt.Command.Lookup("query", "_id").ObjectIDOK(); !ok || got != id {
			mt.Errorf("expected update filtered on id, got %v", got)
		}
		if set, ok := evt.Command.Lookup("update", "$set", "completed").BooleanOK(); !ok || !set {
			mt.Error("expected $set.completed to be true")
		}
		if _, err := evt.Command.LookupErr("update", "$set", "title"); err == nil {
			mt.Error("expected title to be left out of $set")
		}
	})

	mt.Run("Update foreign todo", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		title := "stolen"
		_, err := repo.Update(ctx, id.Hex(), stranger.Hex(), models.TodoPatch{Title: &title}, now)
		if !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
		if got, ok := filterOwner(mt, "query"); !ok || got != stranger {
			mt.Errorf("expected update filtered on caller %s, got %v", stranger.Hex(), got)
		}
	})

	testCases := []struct {
		name    string
		id      string
		ownerID string
	}{
		{name: "invalid todo id", id: "42", ownerID: owner.Hex()},
		{name: "invalid owner id", id: id.Hex(), ownerID: "zzz"},
	}
	for _, tc := range testCases {
		mt.Run("Update "+tc.name, func(mt *mtest.T) {
			repo := &MongoTodoRepository{coll: mt.Coll}
			title := "x"
			if _, err := repo.Update(ctx, tc.id, tc.ownerID, models.TodoPatch{Title: &title}, now); !errors.Is(err, ErrNotFound) {
				mt.Errorf("expected ErrNotFound, got %v", err)
			}
			if evt := mt.GetStartedEvent(); evt != nil {
				mt.Errorf("expected no command, got %s", evt.CommandName)
			}
		})
		mt.Run("Delete "+tc.name, func(mt *mtest.T) {
			repo := &MongoTodoRepository{coll: mt.Coll}
			if err := repo.Delete(ctx, tc.id, tc.ownerID); !errors.Is(err, ErrNotFound) {
				mt.Errorf("expected ErrNotFound, got %v", err)
			}
			if evt := mt.GetStartedEvent(); evt != nil {
				mt.Errorf("expected no command, got %s", evt.CommandName)
			}
		})
	}

	mt.Run("Delete foreign todo", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		if err := repo.Delete(ctx, id.Hex(), stranger.Hex()); !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("Delete own todo", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		if err := repo.Delete(ctx, id.Hex(), owner.Hex()); err != nil {
			mt.Errorf("Delete: %v", err)
		}
	})

	mt.Run("Create with invalid owner id", func(mt *mtest.T) {
		repo := &MongoTodoRepository{coll: mt.Coll}
		todo := models.Todo{Title: "orphan", UserID: "nope", CreatedAt: now, UpdatedAt: now}
		if err := repo.Create(ctx, &todo); err == nil {
			mt.Error("expected an invalid owner id to be rejected")
		}
	})
}

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("Create assigns ObjectID", func(mt *mtest.T) {
		repo := &MongoUserRepository{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := models.User{Email: "ada@example.com", PasswordHash: "hash", Name: "Ada", CreatedAt: now, UpdatedAt: now}
		if err := repo.Create(ctx, &user); err != nil {
			mt.Fatalf("Create: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(user.ID); err != nil {
			mt.Errorf("expected hex ObjectID, got %q", user.ID)
		}
	})

	mt.Run("Create duplicate email", func(mt *mtest.T) {
		repo := &MongoUserRepository{coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_1",
		}))

		user := models.User{Email: "ada@example.com", PasswordHash: "hash", Name: "Ada", CreatedAt: now, UpdatedAt: now}
		if err := repo.Create(ctx, &user); !errors.Is(err, ErrDuplicate) {
			mt.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	mt.Run("Find by email", func(mt *mtest.T) {
		repo := &MongoUserRepository{coll: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "email", Value: "ada@example.com"},
			{Key: "password", Value: "hash"},
			{Key: "name", Value: "Ada"},
			{Key: "createdAt", Value: now},
			{Key: "updatedAt", Value: now},
		}))

		user, err := repo.FindByEmail(ctx, "ada@example.com")
		if err != nil {
			mt.Fatalf("FindByEmail: %v", err)
		}
		if user.ID != oid.Hex() || user.PasswordHash != "hash" || user.Name != "Ada" {
			mt.Errorf("unexpected user %+v", user)
		}
	})

	mt.Run("Find by email missing", func(mt *mtest.T) {
		repo := &MongoUserRepository{coll: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("Find by invalid id", func(mt *mtest.T) {
		repo := &MongoUserRepository{coll: mt.Coll}
		if _, err := repo.FindByID(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
		if evt := mt.GetStartedEvent(); evt != nil {
			mt.Errorf("expected no command, got %s", evt.CommandName)
		}
	})
}
