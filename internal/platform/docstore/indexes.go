package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexSpecs lists the indexes per collection. Creating an index that already
// exists with the same options is a no-op in MongoDB.
func IndexSpecs() map[string][]mongo.IndexModel {
	unique := func(keys bson.D, name string) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
	}
	plain := func(keys bson.D, name string) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
	}

	return map[string][]mongo.IndexModel{
		CollPatients: {
			unique(bson.D{{Key: "patient_id", Value: 1}}, "uq_patient_id"),
			plain(bson.D{{Key: "name", Value: 1}}, "idx_name"),
		},
		CollExams: {
			unique(bson.D{{Key: "exam_id", Value: 1}}, "uq_exam_id"),
			plain(bson.D{{Key: "patient_id", Value: 1}}, "idx_patient_id"),
		},
		CollImages: {
			unique(bson.D{{Key: "image_id", Value: 1}}, "uq_image_id"),
			plain(bson.D{{Key: "exam_id", Value: 1}}, "idx_exam_id"),
			plain(bson.D{{Key: "patient_id", Value: 1}}, "idx_patient_id"),
			plain(bson.D{{Key: "sha256", Value: 1}}, "idx_sha256"),
		},
		CollTemplates: {
			unique(bson.D{{Key: "template_id", Value: 1}}, "uq_template_id"),
			plain(bson.D{{Key: "organ", Value: 1}, {Key: "title", Value: 1}}, "idx_organ_title"),
			unique(bson.D{
				{Key: "lang", Value: 1},
				{Key: "exam_type", Value: 1},
				{Key: "organ", Value: 1},
				{Key: "title", Value: 1},
			}, "uq_natural_key"),
		},
	}
}

// EnsureIndexes creates every index from IndexSpecs.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for coll, models := range IndexSpecs() {
		if _, err := c.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
