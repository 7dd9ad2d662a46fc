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

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new active user and returns it with its ID set.
func (c *MongoUserCollection) InsertUser(ctx context.Context, user models.User) (*models.User, error) {
	if err := nilCollection(c.Collection); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true

	if _, err := c.Collection.InsertOne(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var user models.User
	if err := c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindUserByUsername finds a user by their username
func (c *MongoUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := c.Collection.FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindUsersByRole lists users holding role, ordered by full name.
func (c *MongoUserCollection) FindUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}})
	cursor, err := c.Collection.Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	now := time.Now().UTC()
	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}
