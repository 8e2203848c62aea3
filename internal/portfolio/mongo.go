package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase = "smart-portfolio"
	usersCollection = "users"
	connectTimeout  = 10 * time.Second
)

type userDocument struct {
	Email     string    `bson:"email"`
	Name      string    `bson:"name"`
	Stocks    []string  `bson:"stocks"`
	CreatedAt time.Time `bson:"createdAt,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty"`
}

// MongoStore keeps holdings in the users collection, one document per email.
// The connection is opened on first use and shared by all callers; a failed
// attempt is retried by the next caller.
type MongoStore struct {
	uri      string
	database string

	mu     sync.Mutex
	client *mongo.Client
}

func NewMongoStore(uri, database string) *MongoStore {
	if database == "" {
		database = DefaultDatabase
	}
	return &MongoStore{uri: uri, database: database}
}

func (s *MongoStore) collection(ctx context.Context) (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		if s.uri == "" {
			return nil, errors.New("mongodb uri is not configured")
		}
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.uri))
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ping mongodb: %w", err)
		}
		s.client = client
	}
	return s.client.Database(s.database).Collection(usersCollection), nil
}

// Close disconnects the shared client if it was opened.
func (s *MongoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

func (s *MongoStore) Get(ctx context.Context, owner string) (Holdings, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return Holdings{}, err
	}

	var doc userDocument
	err = coll.FindOne(ctx, bson.M{"email": owner}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Holdings{}, nil
	}
	if err != nil {
		return Holdings{}, fmt.Errorf("find user: %w", err)
	}
	return NewHoldings(doc.Stocks...), nil
}

// Add upserts the user document so first-time owners get one.
func (s *MongoStore) Add(ctx context.Context, owner, symbol string) (Holdings, error) {
	norm, err := NormalizeSymbol(symbol)
	if err != nil {
		return Holdings{}, err
	}
	coll, err := s.collection(ctx)
	if err != nil {
		return Holdings{}, err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$addToSet":    bson.M{"stocks": norm},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"name": defaultName(owner), "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDocument
	if err := coll.FindOneAndUpdate(ctx, bson.M{"email": owner}, update, opts).Decode(&doc); err != nil {
		return Holdings{}, fmt.Errorf("add stock: %w", err)
	}
	return NewHoldings(doc.Stocks...), nil
}

func (s *MongoStore) Remove(ctx context.Context, owner, symbol string) (Holdings, error) {
	norm, err := NormalizeSymbol(symbol)
	if err != nil {
		return Holdings{}, err
	}
	coll, err := s.collection(ctx)
	if err != nil {
		return Holdings{}, err
	}

	update := bson.M{
		"$pull": bson.M{"stocks": norm},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = coll.FindOneAndUpdate(ctx, bson.M{"email": owner}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Holdings{}, nil
	}
	if err != nil {
		return Holdings{}, fmt.Errorf("remove stock: %w", err)
	}
	return NewHoldings(doc.Stocks...), nil
}

// defaultName derives a display name from the local part of an email.
func defaultName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if name == "" {
		return email
	}
	return name
}
