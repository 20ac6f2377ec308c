package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rohits-web03/estately/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo dials uri and pings the primary before returning.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	slog.Info("successfully connected to mongo")
	return client, nil
}

type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	listings *mongo.Collection
}

// NewMongoStore binds the users and listings collections of dbName and
// ensures their indexes. Cascading deletes need a replica set.
func NewMongoStore(ctx context.Context, client *mongo.Client, dbName string) (*MongoStore, error) {
	db := client.Database(dbName)
	s := &MongoStore{client: client, users: db.Collection("users"), listings: db.Collection("listings")}

	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("user indexes: %w", err)
	}
	_, err = s.listings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userRef", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "regularPrice", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.users.InsertOne(ctx, u)
	return mongoErr(err)
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	return u, mongoErr(err)
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, mongoErr(err)
}

func (s *MongoStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.users.UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{
		"username":     u.Username,
		"email":        u.Email,
		"passwordHash": u.PasswordHash,
		"photoURL":     u.PhotoURL,
		"updatedAt":    u.UpdatedAt,
	}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteUserCascade(ctx context.Context, id string) ([]string, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		cur, err := s.listings.Find(sc, bson.M{"userRef": id}, options.Find().SetProjection(bson.M{"imageUrls": 1}))
		if err != nil {
			return nil, err
		}
		var docs []struct {
			ImageURLs []string `bson:"imageUrls"`
		}
		if err := cur.All(sc, &docs); err != nil {
			return nil, err
		}
		res, err := s.users.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, ErrNotFound
		}
		if _, err := s.listings.DeleteMany(sc, bson.M{"userRef": id}); err != nil {
			return nil, err
		}
		var urls []string
		for _, d := range docs {
			urls = append(urls, d.ImageURLs...)
		}
		return urls, nil
	})
	if err != nil {
		return nil, mongoErr(err)
	}
	urls, _ := out.([]string)
	return urls, nil
}

func (s *MongoStore) CreateListing(ctx context.Context, l *models.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	_, err := s.listings.InsertOne(ctx, l)
	return mongoErr(err)
}

func (s *MongoStore) GetListing(ctx context.Context, id string) (models.Listing, error) {
	var l models.Listing
	err := s.listings.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	return l, mongoErr(err)
}

func (s *MongoStore) UpdateListing(ctx context.Context, l *models.Listing) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := s.listings.UpdateByID(ctx, l.ID, bson.M{"$set": bson.M{
		"title":         l.Title,
		"description":   l.Description,
		"address":       l.Address,
		"type":          l.Type,
		"parking":       l.Parking,
		"furnished":     l.Furnished,
		"offer":         l.Offer,
		"bedrooms":      l.Bedrooms,
		"bathrooms":     l.Bathrooms,
		"regularPrice":  l.RegularPrice,
		"discountPrice": l.DiscountPrice,
		"imageUrls":     l.ImageURLs,
		"updatedAt":     l.UpdatedAt,
	}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteListing(ctx context.Context, id string) error {
	res, err := s.listings.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListByOwner(ctx context.Context, userRef string) ([]models.Listing, error) {
	cur, err := s.listings.Find(ctx, bson.M{"userRef": userRef},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	listings := []models.Listing{}
	if err := cur.All(ctx, &listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// searchFilter is the bson rendition of SearchFilter.Matches.
func searchFilter(f SearchFilter) bson.M {
	price := bson.M{"$gte": f.MinPrice, "$lte": f.MaxPrice}
	filter := bson.M{
		"type": bson.M{"$in": f.Types},
		"$or": bson.A{
			bson.M{"discountPrice": bson.M{"$ne": nil, "$gte": f.MinPrice, "$lte": f.MaxPrice}},
			bson.M{"discountPrice": nil, "regularPrice": price},
		},
	}
	if f.SearchTerm != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.SearchTerm), Options: "i"}
	}
	if f.Parking {
		filter["parking"] = true
	}
	if f.Furnished {
		filter["furnished"] = true
	}
	if f.Offer {
		filter["offer"] = true
	}
	return filter
}

func (s *MongoStore) SearchListings(ctx context.Context, f SearchFilter) ([]models.Listing, int64, error) {
	filter := searchFilter(f)
	total, err := s.listings.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	dir := 1
	if f.Desc {
		dir = -1
	}
	field := string(f.Sort)
	if field == "" {
		field = string(SortCreatedAt)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.StartIndex)).
		SetLimit(int64(f.Limit))
	cur, err := s.listings.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	listings := []models.Listing{}
	if err := cur.All(ctx, &listings); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}
