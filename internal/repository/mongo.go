package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/todo-be/internal/database"
	"github.com/isdelr/todo-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoStore builds a Store over a database returned by database.NewMongo.
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users: &MongoUserRepository{coll: db.Collection(database.UsersCollection)},
		Todos: &MongoTodoRepository{coll: db.Collection(database.TodosCollection)},
		ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, nil)
		},
		close: func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		},
	}
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"` // hashed
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		Name:         d.Name,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type todoDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	UserID      primitive.ObjectID `bson:"userId"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d todoDoc) model() models.Todo {
	return models.Todo{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		UserID:      d.UserID.Hex(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// MongoUserRepository stores users in the users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// Create inserts the user under a new ObjectID.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Email:     user.Email,
		Password:  user.PasswordHash,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

// FindByEmail looks a user up by email.
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByID looks a user up by its hex ObjectID.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// Count returns the number of users.
func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return doc.model(), nil
}

// MongoTodoRepository stores todos in the todos collection.
type MongoTodoRepository struct {
	coll *mongo.Collection
}

// ownerFilter builds the {_id, userId} filter. ok is false when either id is
// not a valid ObjectID, in which case nothing can match.
func ownerFilter(id, ownerID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "userId": owner}, true
}

// ListByOwner returns the owner's todos, newest first.
func (r *MongoTodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Todo, error) {
	todos := []models.Todo{}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return todos, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"userId": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []todoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		todos = append(todos, d.model())
	}
	return todos, nil
}

// Create inserts the todo under a new ObjectID.
func (r *MongoTodoRepository) Create(ctx context.Context, todo *models.Todo) error {
	owner, err := primitive.ObjectIDFromHex(todo.UserID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", todo.UserID, err)
	}
	doc := todoDoc{
		ID:          primitive.NewObjectID(),
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		UserID:      owner,
		CreatedAt:   todo.CreatedAt,
		UpdatedAt:   todo.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	todo.ID = doc.ID.Hex()
	return nil
}

// Update sets the patched fields with a single findOneAndUpdate.
func (r *MongoTodoRepository) Update(ctx context.Context, id, ownerID string, patch models.TodoPatch, updatedAt time.Time) (models.Todo, error) {
	filter, ok := ownerFilter(id, ownerID)
	if !ok {
		return models.Todo{}, ErrNotFound
	}

	set := bson.M{"updatedAt": updatedAt}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}

	var doc todoDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Todo{}, ErrNotFound
		}
		return models.Todo{}, fmt.Errorf("update todo: %w", err)
	}
	return doc.model(), nil
}

// Delete removes the todo if the owner matches.
func (r *MongoTodoRepository) Delete(ctx context.Context, id, ownerID string) error {
	filter, ok := ownerFilter(id, ownerID)
	if !ok {
		return ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of todos.
func (r *MongoTodoRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
