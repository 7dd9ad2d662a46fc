package db

import (
	"context"
	"time"

	"github.com/icdtuning/garage/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoJobCollection implements JobCollection for MongoDB.
type MongoJobCollection struct {
	Collection *mongo.Collection
}

// InsertJob inserts a job record into the collection.
func (c *MongoJobCollection) InsertJob(ctx context.Context, job models.Job) error {
	if err := nilCollection(c.Collection); err != nil {
		return err
	}
	_, err := c.Collection.InsertOne(ctx, job)
	return err
}

// jobQuery translates f into a Mongo filter document.
func jobQuery(f JobFilter) bson.M {
	query := bson.M{}
	if f.MechanicID != "" {
		query["assigned_mechanic_id"] = f.MechanicID
	}
	switch {
	case f.Status != "":
		query["status"] = f.Status
	case f.Bucket != "":
		query["status"] = bson.M{"$in": models.StatusesIn(f.Bucket)}
	}
	return query
}

// FindJobs lists jobs matching filter, newest first.
func (c *MongoJobCollection) FindJobs(ctx context.Context, filter JobFilter) ([]models.Job, error) {
	if err := nilCollection(c.Collection); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := c.Collection.Find(ctx, jobQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	jobs := []models.Job{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// FindJobByID finds a job by its ID.
func (c *MongoJobCollection) FindJobByID(ctx context.Context, id string) (*models.Job, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var job models.Job
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&job); err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// RecordFields returns the manager-editable fields of job keyed by their
// stored names.
func RecordFields(job models.Job) bson.M {
	return bson.M{
		"customer_name":          job.CustomerName,
		"contact_number":         job.ContactNumber,
		"car_brand":              job.CarBrand,
		"car_model":              job.CarModel,
		"year":                   job.Year,
		"registration_number":    job.RegistrationNumber,
		"vin":                    job.VIN,
		"kms":                    job.Kms,
		"entry_date":             job.EntryDate,
		"estimated_delivery":     job.EstimatedDelivery,
		"work_description":       job.WorkDescription,
		"assigned_mechanic_id":   job.AssignedMechanicID,
		"assigned_mechanic_name": job.AssignedMechanicName,
	}
}

// UpdateJobFields sets fields on the job and returns the stored result. The
// caller owns updated_at.
func (c *MongoJobCollection) UpdateJobFields(ctx context.Context, id string, fields bson.M) (*models.Job, error) {
	if len(fields) == 0 {
		return c.FindJobByID(ctx, id)
	}
	return c.update(ctx, id, bson.M{"$set": fields})
}

// SetChecklist replaces the job's checklist and returns the updated job.
func (c *MongoJobCollection) SetChecklist(ctx context.Context, id string, items []models.ChecklistItem) (*models.Job, error) {
	if items == nil {
		items = []models.ChecklistItem{}
	}
	return c.update(ctx, id, bson.M{"$set": bson.M{"checklist": items, "updated_at": time.Now().UTC()}})
}

// PushPhoto appends a photo data URL to the job.
func (c *MongoJobCollection) PushPhoto(ctx context.Context, id string, photo string) (*models.Job, error) {
	return c.update(ctx, id, bson.M{
		"$push": bson.M{"photos": photo},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (c *MongoJobCollection) update(ctx context.Context, id string, update bson.M) (*models.Job, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var job models.Job
	if err := c.Collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&job); err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}
