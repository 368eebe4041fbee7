// Package mongo persists users and tasks in a MongoDB database. The
// collections are treated as a generic document store: exact-match filters,
// $set merges, no transactions across collections.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskhive.org/internal/auth"
	"taskhive.org/internal/task"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"

	opTimeout = 10 * time.Second
)

// Store owns the client connection and hands out collection-scoped stores.
type Store struct {
	client *driver.Client
	users  *Users
	tasks  *Tasks
}

// Open connects, pings and prepares the collections, including the unique
// email index that backs duplicate-signup detection.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  &Users{coll: db.Collection(usersCollection)},
		tasks:  &Tasks{coll: db.Collection(tasksCollection)},
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	idxCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.users.coll.Indexes().CreateOne(idxCtx, driver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.tasks.coll.Indexes().CreateMany(idxCtx, []driver.IndexModel{
		{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

// Users returns the user store backed by the users collection.
func (s *Store) Users() *Users { return s.users }

// Tasks returns the task store backed by the tasks collection.
func (s *Store) Tasks() *Tasks { return s.tasks }

// Ping reports connection health for the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Users implements auth.UserStore.
type Users struct {
	coll *driver.Collection
}

var _ auth.UserStore = (*Users)(nil)

func (s *Users) Create(ctx context.Context, u *auth.User) error {
	_, err := s.coll.InsertOne(ctx, u)
	if driver.IsDuplicateKeyError(err) {
		return auth.ErrAlreadyExists
	}
	return err
}

func (s *Users) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Users) findOne(ctx context.Context, filter bson.M) (*auth.User, error) {
	var u auth.User
	err := s.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Users) SetRefreshToken(ctx context.Context, userID, token string) error {
	update := bson.M{"$set": bson.M{"updatedAt": time.Now().UTC()}}
	if token == "" {
		update["$unset"] = bson.M{"refreshToken": 1}
	} else {
		update["$set"].(bson.M)["refreshToken"] = token
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Tasks implements task.Store.
type Tasks struct {
	coll *driver.Collection
}

var _ task.Store = (*Tasks)(nil)

func (s *Tasks) Create(ctx context.Context, t *task.Task) error {
	_, err := s.coll.InsertOne(ctx, t)
	return err
}

func (s *Tasks) Get(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Tasks) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		set["dueDate"] = *patch.DueDate
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.AssignedTo != nil {
		set["assignedTo"] = *patch.AssignedTo
	}
	if patch.IsRecurring != nil {
		set["isRecurring"] = *patch.IsRecurring
	}
	if patch.Recurrence != nil {
		set["recurrence"] = *patch.Recurrence
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var t task.Task
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&t)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Tasks) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (s *Tasks) ListByCreator(ctx context.Context, userID string) ([]task.Task, error) {
	return s.list(ctx, bson.M{"createdBy": userID})
}

func (s *Tasks) ListByAssignee(ctx context.Context, userID string) ([]task.Task, error) {
	return s.list(ctx, bson.M{"assignedTo": userID})
}

func (s *Tasks) ListAll(ctx context.Context) ([]task.Task, error) {
	return s.list(ctx, bson.M{})
}

func (s *Tasks) list(ctx context.Context, filter bson.M) ([]task.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]task.Task, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
