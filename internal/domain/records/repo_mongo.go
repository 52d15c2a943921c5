package records

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

var (
	noID          = bson.M{"_id": 0}
	noIDNoContent = bson.M{"_id": 0, "content": 0}
)

func findOpts(sort bson.D, limit, offset int, projection bson.M) *options.FindOptions {
	return options.Find().
		SetSort(sort).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(projection)
}

func afterUpdate(projection bson.M) *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(projection)
}

// literalRegex builds a case-insensitive substring match with regex
// metacharacters in q escaped.
func literalRegex(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor, notFound string) ([]*T, error) {
	defer cur.Close(ctx)
	items := []*T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, docstore.TranslateError(err, notFound)
		}
		items = append(items, &v)
	}
	return items, docstore.TranslateError(cur.Err(), notFound)
}

type patientRepoMongo struct{ coll *mongo.Collection }

func NewPatientRepoMongo(c *docstore.Client) PatientRepository {
	return &patientRepoMongo{coll: c.Collection(docstore.CollPatients)}
}

func (r *patientRepoMongo) Create(ctx context.Context, p *Patient) error {
	_, err := r.coll.InsertOne(ctx, p)
	return docstore.TranslateError(err, "Patient not found")
}

func (r *patientRepoMongo) GetByID(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	err := r.coll.FindOne(ctx, bson.M{"patient_id": id}, options.FindOne().SetProjection(noID)).Decode(&p)
	if err != nil {
		return nil, docstore.TranslateError(err, "Patient not found")
	}
	return &p, nil
}

func (r *patientRepoMongo) List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, error) {
	filter := bson.M{}
	if f.Query != "" {
		filter["$or"] = bson.A{
			bson.M{"name": literalRegex(f.Query)},
			bson.M{"owner_name": literalRegex(f.Query)},
		}
	}
	cur, err := r.coll.Find(ctx, filter,
		findOpts(bson.D{{Key: "name", Value: 1}, {Key: "patient_id", Value: 1}}, limit, offset, noID))
	if err != nil {
		return nil, docstore.TranslateError(err, "")
	}
	return decodeAll[Patient](ctx, cur, "")
}

func (r *patientRepoMongo) Update(ctx context.Context, id string, patch PatientPatch, now time.Time) (*Patient, error) {
	set := bson.M{"updated_at": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Species != nil {
		set["species"] = *patch.Species
	}
	if patch.OwnerName != nil {
		set["owner_name"] = *patch.OwnerName
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}

	var p Patient
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"patient_id": id}, bson.M{"$set": set}, afterUpdate(noID)).Decode(&p)
	if err != nil {
		return nil, docstore.TranslateError(err, "Patient not found")
	}
	return &p, nil
}

func (r *patientRepoMongo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"patient_id": id})
	if err != nil {
		return docstore.TranslateError(err, "Patient not found")
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("Patient not found")
	}
	return nil
}

type examRepoMongo struct{ coll *mongo.Collection }

func NewExamRepoMongo(c *docstore.Client) ExamRepository {
	return &examRepoMongo{coll: c.Collection(docstore.CollExams)}
}

func (r *examRepoMongo) Create(ctx context.Context, e *Exam) error {
	_, err := r.coll.InsertOne(ctx, e)
	return docstore.TranslateError(err, "Exam not found")
}

func (r *examRepoMongo) GetByID(ctx context.Context, id string) (*Exam, error) {
	var e Exam
	err := r.coll.FindOne(ctx, bson.M{"exam_id": id}, options.FindOne().SetProjection(noID)).Decode(&e)
	if err != nil {
		return nil, docstore.TranslateError(err, "Exam not found")
	}
	return normalizeExam(&e), nil
}

func (r *examRepoMongo) List(ctx context.Context, f ExamFilter, limit, offset int) ([]*Exam, error) {
	filter := bson.M{}
	if f.PatientID != "" {
		filter["patient_id"] = f.PatientID
	}
	cur, err := r.coll.Find(ctx, filter,
		findOpts(bson.D{{Key: "date", Value: -1}, {Key: "exam_id", Value: 1}}, limit, offset, noID))
	if err != nil {
		return nil, docstore.TranslateError(err, "")
	}
	items, err := decodeAll[Exam](ctx, cur, "")
	for _, e := range items {
		normalizeExam(e)
	}
	return items, err
}

func (r *examRepoMongo) Update(ctx context.Context, id string, patch ExamPatch, now time.Time) (*Exam, error) {
	set := bson.M{"updated_at": now}
	if patch.ExamType != nil {
		set["exam_type"] = *patch.ExamType
	}
	if patch.ExamDate != nil {
		set["exam_date"] = *patch.ExamDate
		set["date"] = *patch.ExamDate
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.OrgansData != nil {
		set["organs_data"] = patch.OrgansData
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}

	var e Exam
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"exam_id": id}, bson.M{"$set": set}, afterUpdate(noID)).Decode(&e)
	if err != nil {
		return nil, docstore.TranslateError(err, "Exam not found")
	}
	return normalizeExam(&e), nil
}

func (r *examRepoMongo) IDsByPatient(ctx context.Context, patientID string) ([]string, error) {
	cur, err := r.coll.Find(ctx, bson.M{"patient_id": patientID},
		options.Find().SetProjection(bson.M{"_id": 0, "exam_id": 1}))
	if err != nil {
		return nil, docstore.TranslateError(err, "")
	}
	defer cur.Close(ctx)
	ids := []string{}
	for cur.Next(ctx) {
		var row struct {
			ExamID string `bson:"exam_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, docstore.TranslateError(err, "")
		}
		ids = append(ids, row.ExamID)
	}
	return ids, docstore.TranslateError(cur.Err(), "")
}

func (r *examRepoMongo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"exam_id": id})
	if err != nil {
		return docstore.TranslateError(err, "Exam not found")
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("Exam not found")
	}
	return nil
}

func (r *examRepoMongo) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return 0, docstore.TranslateError(err, "")
	}
	return res.DeletedCount, nil
}

func (r *examRepoMongo) AttachImage(ctx context.Context, examID string, ref ImageRef, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"exam_id": examID}, bson.M{
		"$push": bson.M{"images": ref},
		"$set":  bson.M{"updated_at": now},
	})
	if err != nil {
		return docstore.TranslateError(err, "Exam not found")
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("Exam not found")
	}
	return nil
}

func (r *examRepoMongo) DetachImage(ctx context.Context, examID, imageID string, now time.Time) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"exam_id": examID}, bson.M{
		"$pull": bson.M{"images": bson.M{"image_id": imageID}},
		"$set":  bson.M{"updated_at": now},
	})
	return docstore.TranslateError(err, "")
}

func (r *examRepoMongo) ReplaceImages(ctx context.Context, examID string, refs []ImageRef, now time.Time) (*Exam, error) {
	if refs == nil {
		refs = []ImageRef{}
	}
	var e Exam
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"exam_id": examID},
		bson.M{"$set": bson.M{"images": refs, "updated_at": now}}, afterUpdate(noID)).Decode(&e)
	if err != nil {
		return nil, docstore.TranslateError(err, "Exam not found")
	}
	return normalizeExam(&e), nil
}

type imageRepoMongo struct{ coll *mongo.Collection }

func NewImageRepoMongo(c *docstore.Client) ImageRepository {
	return &imageRepoMongo{coll: c.Collection(docstore.CollImages)}
}

func (r *imageRepoMongo) Create(ctx context.Context, img *Image) error {
	_, err := r.coll.InsertOne(ctx, img)
	return docstore.TranslateError(err, "Image not found")
}

func (r *imageRepoMongo) get(ctx context.Context, id string, projection bson.M) (*Image, error) {
	var img Image
	err := r.coll.FindOne(ctx, bson.M{"image_id": id}, options.FindOne().SetProjection(projection)).Decode(&img)
	if err != nil {
		return nil, docstore.TranslateError(err, "Image not found")
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}
	return &img, nil
}

func (r *imageRepoMongo) GetByID(ctx context.Context, id string) (*Image, error) {
	return r.get(ctx, id, noIDNoContent)
}

func (r *imageRepoMongo) GetWithContent(ctx context.Context, id string) (*Image, error) {
	return r.get(ctx, id, noID)
}

func imageFilter(f ImageFilter) bson.M {
	filter := bson.M{}
	if f.PatientID != "" {
		filter["patient_id"] = f.PatientID
	}
	if f.ExamID != "" {
		filter["exam_id"] = f.ExamID
	}
	return filter
}

func (r *imageRepoMongo) List(ctx context.Context, f ImageFilter, limit, offset int) ([]*Image, error) {
	cur, err := r.coll.Find(ctx, imageFilter(f),
		findOpts(bson.D{{Key: "created_at", Value: -1}, {Key: "image_id", Value: 1}}, limit, offset, noIDNoContent))
	if err != nil {
		return nil, docstore.TranslateError(err, "")
	}
	return decodeAll[Image](ctx, cur, "")
}

func (r *imageRepoMongo) RefsByExam(ctx context.Context, examID string) ([]ImageRef, error) {
	cur, err := r.coll.Find(ctx, bson.M{"exam_id": examID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "image_id", Value: 1}}).
			SetProjection(noIDNoContent))
	if err != nil {
		return nil, docstore.TranslateError(err, "")
	}
	imgs, err := decodeAll[Image](ctx, cur, "")
	if err != nil {
		return nil, err
	}
	refs := make([]ImageRef, len(imgs))
	for i, img := range imgs {
		refs[i] = img.Ref()
	}
	return refs, nil
}

func (r *imageRepoMongo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"image_id": id})
	if err != nil {
		return docstore.TranslateError(err, "Image not found")
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("Image not found")
	}
	return nil
}

func (r *imageRepoMongo) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return 0, docstore.TranslateError(err, "")
	}
	return res.DeletedCount, nil
}

func (r *imageRepoMongo) DeleteByExam(ctx context.Context, examID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"exam_id": examID})
	if err != nil {
		return 0, docstore.TranslateError(err, "")
	}
	return res.DeletedCount, nil
}

// normalizeExam replaces nil slices left by older documents with empty ones.
func normalizeExam(e *Exam) *Exam {
	if e.Images == nil {
		e.Images = []ImageRef{}
	}
	if e.OrgansData == nil {
		e.OrgansData = []OrganFinding{}
	}
	for i := range e.Images {
		if e.Images[i].Tags == nil {
			e.Images[i].Tags = []string{}
		}
	}
	return e
}
