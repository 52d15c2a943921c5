package templates

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tvusvet/backend/internal/platform/docstore"
	"github.com/tvusvet/backend/pkg/apperror"
)

const notFound = "Template not found"

var noID = bson.M{"_id": 0}

type repoMongo struct{ coll *mongo.Collection }

// NewRepoMongo stores templates in the templates collection. The natural key
// relies on the uq_natural_key index from docstore.EnsureIndexes.
func NewRepoMongo(c *docstore.Client) Repository {
	return &repoMongo{coll: c.Collection(docstore.CollTemplates)}
}

func (r *repoMongo) Create(ctx context.Context, t *Template) error {
	_, err := r.coll.InsertOne(ctx, t)
	return docstore.TranslateError(err, notFound)
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Template, error) {
	var t Template
	err := r.coll.FindOne(ctx, bson.M{"template_id": id}, options.FindOne().SetProjection(noID)).Decode(&t)
	if err != nil {
		return nil, docstore.TranslateError(err, notFound)
	}
	return &t, nil
}

func (r *repoMongo) List(ctx context.Context, f Filter, limit, offset int) ([]*Template, error) {
	filter := bson.M{}
	if f.Lang != "" {
		filter["lang"] = f.Lang
	}
	if f.ExamType != "" {
		filter["exam_type"] = f.ExamType
	}
	if f.Organ != "" {
		filter["organ"] = f.Organ
	}
	if f.Query != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"title": re}, bson.M{"text": re}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "organ", Value: 1}, {Key: "title", Value: 1}, {Key: "template_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(noID)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, docstore.TranslateError(err, "")
	}
	defer cur.Close(ctx)

	items := []*Template{}
	for cur.Next(ctx) {
		var t Template
		if err := cur.Decode(&t); err != nil {
			return nil, docstore.TranslateError(err, "")
		}
		items = append(items, &t)
	}
	return items, docstore.TranslateError(cur.Err(), "")
}

func (r *repoMongo) Update(ctx context.Context, id string, patch TemplatePatch, now time.Time) (*Template, error) {
	set := bson.M{"updated_at": now}
	if patch.Organ != nil {
		set["organ"] = *patch.Organ
	}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Lang != nil {
		set["lang"] = *patch.Lang
	}
	if patch.ExamType != nil {
		set["exam_type"] = normalizeExamType(patch.ExamType)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(noID)
	var t Template
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"template_id": id}, bson.M{"$set": set}, opts).Decode(&t)
	if err != nil {
		return nil, docstore.TranslateError(err, notFound)
	}
	return &t, nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"template_id": id})
	if err != nil {
		return docstore.TranslateError(err, notFound)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound(notFound)
	}
	return nil
}

// Upsert matches on the natural key. The key fields are copied from the
// filter into an inserted document, so $setOnInsert only carries the id and
// creation time.
func (r *repoMongo) Upsert(ctx context.Context, t *Template) (bool, error) {
	filter := bson.M{
		"lang":      t.Lang,
		"exam_type": t.ExamType,
		"organ":     t.Organ,
		"title":     t.Title,
	}
	update := bson.M{
		"$set":         bson.M{"text": t.Text, "updated_at": t.UpdatedAt},
		"$setOnInsert": bson.M{"template_id": t.TemplateID, "created_at": t.CreatedAt},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, docstore.TranslateError(err, "")
	}
	return res.UpsertedCount == 1, nil
}

func (r *repoMongo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	return n, docstore.TranslateError(err, "")
}
