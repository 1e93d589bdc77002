package dao

import (
	"context"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	mongoLib "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/model"
	"github.com/Laisky/laisky-blog-rest/library/db/mongo"
)

// collectionGetter is the part of mongo.DB the store needs
type collectionGetter interface {
	GetCol(colName string) *mongoLib.Collection
}

// Mongo stores documents in the `blogs` and `users` collections
type Mongo struct {
	db    collectionGetter
	close func(ctx context.Context) error
}

// OpenMongo connects to mongo described by cfg
func OpenMongo(ctx context.Context, cfg Config) (*Mongo, error) {
	db, err := mongo.NewDB(ctx, mongo.DialInfo{
		Addr:   cfg.Addr,
		DBName: cfg.DBName,
		User:   cfg.User,
		Pwd:    cfg.Pwd,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	return NewMongo(db), nil
}

// NewMongo wraps an opened mongo database
func NewMongo(db mongo.DB) *Mongo {
	return &Mongo{db: db, close: db.Close}
}

func (s *Mongo) postsCol() *mongoLib.Collection {
	return s.db.GetCol(model.Post{}.Collection())
}

func (s *Mongo) usersCol() *mongoLib.Collection {
	return s.db.GetCol(model.User{}.Collection())
}

// Setup creates indexes
func (s *Mongo) Setup(ctx context.Context) error {
	if _, err := s.postsCol().Indexes().CreateMany(ctx, []mongoLib.IndexModel{
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}); err != nil {
		return errors.Wrap(err, "create posts indexes")
	}

	if _, err := s.usersCol().Indexes().CreateOne(ctx, mongoLib.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "create users index")
	}

	return nil
}

// Close implements Store
func (s *Mongo) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

func postsFilter(opt model.ListOptions) bson.M {
	filter := bson.M{}
	if opt.AuthorID != "" {
		filter["author_id"] = opt.AuthorID
	}
	if opt.UserID != "" {
		filter["user_id"] = opt.UserID
	}
	return filter
}

// ListPosts implements PostStore
func (s *Mongo) ListPosts(ctx context.Context, opt model.ListOptions) ([]*model.Post, int, error) {
	filter := postsFilter(opt)
	total, err := s.postsCol().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count posts")
	}

	order := 1
	if opt.Desc {
		order = -1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: order}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opt.Offset()))
	if opt.Limit > 0 {
		findOpts.SetLimit(int64(opt.Limit))
	}

	cur, err := s.postsCol().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "find posts")
	}

	posts := []*model.Post{}
	if err = cur.All(ctx, &posts); err != nil {
		return nil, 0, errors.Wrap(err, "decode posts")
	}

	return posts, int(total), nil
}

// GetPost implements PostStore
func (s *Mongo) GetPost(ctx context.Context, id string) (*model.Post, error) {
	post := new(model.Post)
	if err := s.postsCol().FindOne(ctx, bson.M{"_id": id}).Decode(post); err != nil {
		if mongo.NotFound(err) {
			return nil, notFound("post", id)
		}
		return nil, errors.Wrapf(err, "find post %q", id)
	}

	return post, nil
}

// InsertPost implements PostStore
func (s *Mongo) InsertPost(ctx context.Context, p *model.Post) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if _, err := s.postsCol().InsertOne(ctx, p); err != nil {
		return errors.Wrapf(err, "insert post %q", p.ID)
	}

	return nil
}

// ReplacePost implements PostStore
func (s *Mongo) ReplacePost(ctx context.Context, p *model.Post) error {
	ret, err := s.postsCol().ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return errors.Wrapf(err, "replace post %q", p.ID)
	}
	if ret.MatchedCount == 0 {
		return notFound("post", p.ID)
	}

	return nil
}

// RemovePost implements PostStore
func (s *Mongo) RemovePost(ctx context.Context, id string) error {
	ret, err := s.postsCol().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete post %q", id)
	}
	if ret.DeletedCount == 0 {
		return notFound("post", id)
	}

	return nil
}

// InsertUser implements UserStore
func (s *Mongo) InsertUser(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = NewID()
	}

	if _, err := s.usersCol().InsertOne(ctx, u); err != nil {
		if mongo.Duplicated(err) {
			return errors.Wrapf(model.ErrUserExists, "email %q", u.Email)
		}
		return errors.Wrap(err, "insert user")
	}

	return nil
}

func (s *Mongo) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	u := new(model.User)
	if err := s.usersCol().FindOne(ctx, filter).Decode(u); err != nil {
		if mongo.NotFound(err) {
			return nil, notFound("user", key)
		}
		return nil, errors.Wrapf(err, "find user %q", key)
	}

	return u, nil
}

// GetUserByID implements UserStore
func (s *Mongo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

// GetUserByEmail implements UserStore
func (s *Mongo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	return s.findUser(ctx, bson.M{"email": email}, email)
}
