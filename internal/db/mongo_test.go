package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/icdtuning/garage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// testDatabase connects to MONGO_URI and returns a scratch database that is
// dropped when the test ends.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}

	database := client.Database("test_garage_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		database.Drop(context.Background())
		client.Disconnect(context.Background())
	})
	return database
}

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestInsertJob_NilCollection(t *testing.T) {
	coll := &MongoJobCollection{Collection: nil}
	err := coll.InsertJob(context.Background(), models.Job{})
	assert.Error(t, err)

	_, err = coll.FindJobs(context.Background(), JobFilter{})
	assert.Error(t, err)
}

func TestNextInvoiceSequence_NilCounters(t *testing.T) {
	coll := &MongoInvoiceCollection{}
	_, err := coll.NextInvoiceSequence(context.Background(), 2025)
	assert.Error(t, err)
}

func TestNotFound(t *testing.T) {
	assert.Equal(t, ErrNotFound, notFound(mongo.ErrNoDocuments))
	other := context.DeadlineExceeded
	assert.Equal(t, other, notFound(other))
}

func TestJobQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, jobQuery(JobFilter{}))

	q := jobQuery(JobFilter{MechanicID: "m1", Bucket: models.BucketCompleted})
	assert.Equal(t, "m1", q["assigned_mechanic_id"])
	assert.Equal(t, bson.M{"$in": models.StatusesIn(models.BucketCompleted)}, q["status"])

	// An explicit status wins over the bucket.
	q = jobQuery(JobFilter{Bucket: models.BucketActive, Status: models.StatusWashed})
	assert.Equal(t, models.StatusWashed, q["status"])
}

func TestInvalidObjectIDIsNotFound(t *testing.T) {
	jobs := &MongoJobCollection{}
	_, err := jobs.FindJobByID(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrNotFound)

	invoices := &MongoInvoiceCollection{}
	_, err = invoices.FindInvoiceByID(context.Background(), "not-an-id")
	assert.ErrorIs(t, err, ErrNotFound)

	users := &MongoUserCollection{}
	_, err = users.FindUserByID(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	require.NoError(t, EnsureIndexes(ctx, database))

	store := NewStore(database)
	now := time.Now().UTC().Truncate(time.Millisecond)

	mine := models.NewJob(models.JobInput{CustomerName: "A", AssignedMechanicID: "m1", Year: 2020}, nil, now)
	other := models.NewJob(models.JobInput{CustomerName: "B", AssignedMechanicID: "m2", Year: 2021}, nil, now.Add(time.Second))
	other.SetStatus(models.StatusWorkComplete, now)
	require.NoError(t, store.Jobs.InsertJob(ctx, mine))
	require.NoError(t, store.Jobs.InsertJob(ctx, other))

	all, err := store.Jobs.FindJobs(ctx, JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[0].CustomerName, "newest first")

	scoped, err := store.Jobs.FindJobs(ctx, JobFilter{MechanicID: "m1"})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, mine.ID, scoped[0].ID)

	completed, err := store.Jobs.FindJobs(ctx, JobFilter{Bucket: models.BucketCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, other.ID, completed[0].ID)

	updated, err := store.Jobs.SetChecklist(ctx, mine.ID.Hex(), []models.ChecklistItem{{Description: "Oil", Completed: true}})
	require.NoError(t, err)
	assert.Len(t, updated.Checklist, 1)

	updated, err = store.Jobs.PushPhoto(ctx, mine.ID.Hex(), "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, []string{"data:image/png;base64,AAAA"}, updated.Photos)

	edited := now.Add(time.Hour)
	updated, err = store.Jobs.UpdateJobFields(ctx, mine.ID.Hex(), bson.M{"notes": "waiting on gasket", "updated_at": edited})
	require.NoError(t, err)
	assert.Equal(t, "waiting on gasket", updated.Notes)
	assert.True(t, updated.UpdatedAt.Equal(edited), "caller sets updated_at")
	assert.Len(t, updated.Checklist, 1)
	assert.Len(t, updated.Photos, 1)

	reassigned := *updated
	reassigned.CustomerName = "A2"
	reassigned.AssignedMechanicID = "m3"
	updated, err = store.Jobs.UpdateJobFields(ctx, mine.ID.Hex(), RecordFields(reassigned))
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.CustomerName)
	assert.Equal(t, "m3", updated.AssignedMechanicID)
	assert.Equal(t, "waiting on gasket", updated.Notes)

	_, err = store.Jobs.UpdateJobFields(ctx, primitive.NewObjectID().Hex(), bson.M{"notes": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	ctx := context.Background()
	store := NewStore(database)

	seq, err := store.Invoices.NextInvoiceSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	seq, err = store.Invoices.NextInvoiceSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
	seq, err = store.Invoices.NextInvoiceSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq, "counters are per year")

	invoice := models.Invoice{ID: primitive.NewObjectID(), InvoiceNumber: "ICD-2025-0001", JobID: "job-1"}
	require.NoError(t, store.Invoices.InsertInvoice(ctx, invoice))
	require.NoError(t, store.Invoices.MarkSent(ctx, invoice.ID.Hex(), models.RecipientAccountant))

	list, err := store.Invoices.FindInvoicesByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].SentToAccountant)
	assert.False(t, list[0].SentToCustomer)

	assert.Error(t, store.Invoices.MarkSent(ctx, invoice.ID.Hex(), "fax"))
}
