package repository

import (
	"context"
	"time"

	"github.com/haikuplus/haikuplus-server/internal/haiku"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// haikuRow is the stored document. The author is kept as an id only and resolved on read.
type haikuRow struct {
	ID           string    `bson:"_id"`
	AuthorID     string    `bson:"author_id"`
	Title        string    `bson:"title"`
	LineOne      string    `bson:"line_one"`
	LineTwo      string    `bson:"line_two"`
	LineThree    string    `bson:"line_three"`
	Votes        int64     `bson:"votes"`
	CreationTime time.Time `bson:"creation_time"`
}

func rowFromHaiku(h *haiku.Haiku) haikuRow {
	return haikuRow{
		ID:           h.ID,
		AuthorID:     h.AuthorID,
		Title:        h.Title,
		LineOne:      h.LineOne,
		LineTwo:      h.LineTwo,
		LineThree:    h.LineThree,
		Votes:        h.Votes,
		CreationTime: h.CreationTime.UTC(),
	}
}

func (r haikuRow) toModel() *haiku.Haiku {
	return &haiku.Haiku{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Title:        r.Title,
		LineOne:      r.LineOne,
		LineTwo:      r.LineTwo,
		LineThree:    r.LineThree,
		Votes:        r.Votes,
		CreationTime: r.CreationTime.UTC(),
	}
}

// MongoRepo implements a MongoDB-backed repository for haikus.
type MongoRepo struct {
	col *mongo.Collection
}

// NewMongoRepo wraps col; indexes are created by database.EnsureIndexes.
func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, h *haiku.Haiku) error {
	_, err := m.col.InsertOne(ctx, rowFromHaiku(h))
	return err
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*haiku.Haiku, error) {
	var row haikuRow
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&row); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M) ([]*haiku.Haiku, error) {
	opts := options.Find().SetSort(bson.D{{Key: "creation_time", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*haiku.Haiku{}
	for cur.Next(ctx) {
		var row haikuRow
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.toModel())
	}
	return out, cur.Err()
}

func (m *MongoRepo) List(ctx context.Context) ([]*haiku.Haiku, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoRepo) ListByAuthors(ctx context.Context, authorIDs []string) ([]*haiku.Haiku, error) {
	if len(authorIDs) == 0 {
		return []*haiku.Haiku{}, nil
	}
	return m.find(ctx, bson.M{"author_id": bson.M{"$in": authorIDs}})
}

func (m *MongoRepo) IncrementVotes(ctx context.Context, id string) (*haiku.Haiku, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var row haikuRow
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"votes": 1}}, opts).Decode(&row)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (m *MongoRepo) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := m.col.DeleteMany(ctx, bson.M{"author_id": authorID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
