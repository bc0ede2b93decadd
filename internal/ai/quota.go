package ai

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrQuotaExceeded is returned when a user has exhausted their daily asks.
var ErrQuotaExceeded = errors.New("daily ask quota exceeded")

// ConsumeAskQuota atomically reserves one ask against the user's daily
// allowance. The counter resets by keying on the UTC day, so stale rows
// from previous days never block a new ask.
func ConsumeAskQuota(ctx context.Context, db *mongo.Database, userID string, dailyLimit int) error {
	if dailyLimit <= 0 {
		return nil
	}
	col := db.Collection("ask_quotas")

	now := time.Now().UTC()
	day := now.Format("2006-01-02")

	// Roll the row over to today if it belongs to an earlier day.
	_, err := col.UpdateOne(ctx,
		bson.M{"user_id": userID, "day": bson.M{"$lt": day}},
		bson.M{"$set": bson.M{"day": day, "used": 0, "updated_at": now}},
	)
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"user_id": userID, "day": day, "used": bson.M{"$lt": dailyLimit}},
		bson.M{
			"$inc": bson.M{"used": 1},
			"$set": bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 1 {
		return nil
	}

	// No row matched: either the user has no row yet, or the limit is hit.
	count, err := col.CountDocuments(ctx, bson.M{"user_id": userID, "day": day})
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrQuotaExceeded
	}

	_, err = col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"user_id": userID, "day": day, "used": 1, "updated_at": now}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return ErrQuotaExceeded
	}
	return err
}

// AskQuotaRemaining reports how many asks the user has left today.
func AskQuotaRemaining(ctx context.Context, db *mongo.Database, userID string, dailyLimit int) (int, error) {
	col := db.Collection("ask_quotas")
	day := time.Now().UTC().Format("2006-01-02")

	var row struct {
		Day  string `bson:"day"`
		Used int    `bson:"used"`
	}
	err := col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&row)
	if err == mongo.ErrNoDocuments || (err == nil && row.Day != day) {
		return dailyLimit, nil
	}
	if err != nil {
		return 0, err
	}
	remaining := dailyLimit - row.Used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
