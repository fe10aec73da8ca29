package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/account-service/internal/core/domain"
)

const collectionVideos = "videos"

type WatchHistoryRepository struct {
	users *mongo.Collection
}

func NewWatchHistoryRepository(db *mongo.Database) *WatchHistoryRepository {
	return &WatchHistoryRepository{users: db.Collection(collectionUsers)}
}

type ownerDoc struct {
	FullName string `bson:"fullName"`
	UserName string `bson:"userName"`
	Avatar   string `bson:"avatar"`
}

type videoDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	VideoFile   string             `bson:"videoFile"`
	Thumbnail   string             `bson:"thumbnail"`
	Duration    float64            `bson:"duration"`
	Views       int64              `bson:"views"`
	IsPublished bool               `bson:"isPublished"`
	CreatedAt   time.Time          `bson:"createdAt"`
	Owner       ownerDoc           `bson:"owner"`
}

type historyDoc struct {
	WatchHistory []primitive.ObjectID `bson:"watchHistory"`
	History      []videoDoc           `bson:"history"`
}

// WatchHistory resolves the user's watchHistory references into videos with
// a condensed owner. Entries come back in stored order; references to deleted
// videos are skipped.
func (r *WatchHistoryRepository) WatchHistory(ctx context.Context, userID string) ([]domain.VideoSummary, error) {
	oid, ok := objectID(userID)
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.users.Aggregate(ctx, historyPipeline(oid))
	if err != nil {
		return nil, fmt.Errorf("aggregate watch history: %w", err)
	}
	defer cur.Close(ctx)

	var docs []historyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode watch history: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrUserNotFound
	}

	// $lookup does not keep the order of localField, so reorder by the stored array.
	byID := make(map[primitive.ObjectID]videoDoc, len(docs[0].History))
	for _, v := range docs[0].History {
		byID[v.ID] = v
	}

	out := make([]domain.VideoSummary, 0, len(docs[0].WatchHistory))
	for _, id := range docs[0].WatchHistory {
		v, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, domain.VideoSummary{
			ID:           v.ID.Hex(),
			Title:        v.Title,
			Description:  v.Description,
			VideoURL:     v.VideoFile,
			ThumbnailURL: v.Thumbnail,
			Duration:     v.Duration,
			Views:        v.Views,
			IsPublished:  v.IsPublished,
			CreatedAt:    v.CreatedAt,
			Owner: domain.OwnerSummary{
				FullName:  v.Owner.FullName,
				UserName:  v.Owner.UserName,
				AvatarURL: v.Owner.Avatar,
			},
		})
	}
	return out, nil
}

func historyPipeline(userID primitive.ObjectID) mongo.Pipeline {
	ownerLookup := bson.A{
		bson.M{"$lookup": bson.M{
			"from":         collectionUsers,
			"localField":   "owner",
			"foreignField": "_id",
			"as":           "owner",
			"pipeline": bson.A{
				bson.M{"$project": bson.M{"fullName": 1, "userName": 1, "avatar": 1}},
			},
		}},
		bson.M{"$addFields": bson.M{"owner": bson.M{"$first": "$owner"}}},
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionVideos,
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "history",
			"pipeline":     ownerLookup,
		}}},
		{{Key: "$project", Value: bson.M{"watchHistory": 1, "history": 1}}},
	}
}
