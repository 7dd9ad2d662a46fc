package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/icdtuning/garage/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoInvoiceCollection implements InvoiceCollection for MongoDB. Counters
// holds one document per invoice year.
type MongoInvoiceCollection struct {
	Collection *mongo.Collection
	Counters   *mongo.Collection
}

// InsertInvoice inserts an invoice record into the collection.
func (c *MongoInvoiceCollection) InsertInvoice(ctx context.Context, invoice models.Invoice) error {
	if err := nilCollection(c.Collection); err != nil {
		return err
	}
	_, err := c.Collection.InsertOne(ctx, invoice)
	return err
}

// FindInvoiceByID finds an invoice by its ID.
func (c *MongoInvoiceCollection) FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var invoice models.Invoice
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&invoice); err != nil {
		return nil, notFound(err)
	}
	return &invoice, nil
}

// FindInvoicesByJob lists a job's invoices in issue order.
func (c *MongoInvoiceCollection) FindInvoicesByJob(ctx context.Context, jobID string) ([]models.Invoice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	invoices := []models.Invoice{}
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// MarkSent records that the invoice went out to recipient.
func (c *MongoInvoiceCollection) MarkSent(ctx context.Context, id string, recipient models.Recipient) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	var field string
	switch recipient {
	case models.RecipientCustomer:
		field = "sent_to_customer"
	case models.RecipientAccountant:
		field = "sent_to_accountant"
	default:
		return fmt.Errorf("unknown recipient %q", recipient)
	}

	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// NextInvoiceSequence increments and returns the counter for year. The
// first call for a year returns 1.
func (c *MongoInvoiceCollection) NextInvoiceSequence(ctx context.Context, year int) (int64, error) {
	if err := nilCollection(c.Counters); err != nil {
		return 0, err
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := c.Counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": "invoice-" + strconv.Itoa(year)},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("reserve invoice sequence: %w", err)
	}
	return counter.Seq, nil
}
