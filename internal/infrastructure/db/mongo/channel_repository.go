package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/account-service/internal/core/domain"
)

const collectionSubscriptions = "subscriptions"

// ChannelRepository reads channel profiles by joining users with the
// subscriptions collection ({subscriber, channel, createdAt}).
type ChannelRepository struct {
	users *mongo.Collection
	subs  *mongo.Collection
}

func NewChannelRepository(db *mongo.Database) *ChannelRepository {
	return &ChannelRepository{
		users: db.Collection(collectionUsers),
		subs:  db.Collection(collectionSubscriptions),
	}
}

type channelDoc struct {
	ID                        primitive.ObjectID `bson:"_id"`
	UserName                  string             `bson:"userName"`
	FullName                  string             `bson:"fullName"`
	Email                     string             `bson:"email"`
	Avatar                    string             `bson:"avatar"`
	CoverImage                string             `bson:"coverImage"`
	SubscribersCount          int64              `bson:"subscribersCount"`
	ChannelsSubscribedToCount int64              `bson:"channelsSubscribedToCount"`
	IsSubscribed              bool               `bson:"isSubscribed"`
}

func (r *ChannelRepository) FindChannelProfile(ctx context.Context, userName, viewerID string) (*domain.ChannelProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.users.Aggregate(ctx, channelPipeline(userName, viewerID))
	if err != nil {
		return nil, fmt.Errorf("aggregate channel: %w", err)
	}
	defer cur.Close(ctx)

	var docs []channelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode channel: %w", err)
	}
	if len(docs) == 0 {
		return nil, domain.ErrChannelNotFound
	}

	d := docs[0]
	return &domain.ChannelProfile{
		ID:                        d.ID.Hex(),
		UserName:                  d.UserName,
		FullName:                  d.FullName,
		Email:                     d.Email,
		AvatarURL:                 d.Avatar,
		CoverImageURL:             d.CoverImage,
		SubscribersCount:          d.SubscribersCount,
		ChannelsSubscribedToCount: d.ChannelsSubscribedToCount,
		IsSubscribed:              d.IsSubscribed,
	}, nil
}

func channelPipeline(userName, viewerID string) mongo.Pipeline {
	// Anonymous or malformed viewers are never subscribed.
	var isSubscribed any = false
	if oid, ok := objectID(viewerID); ok {
		isSubscribed = bson.M{"$in": bson.A{oid, "$subscribers.subscriber"}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userName": userName}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionSubscriptions,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionSubscriptions,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed":              isSubscribed,
		}}},
		{{Key: "$project", Value: bson.M{
			"userName":                  1,
			"fullName":                  1,
			"email":                     1,
			"avatar":                    1,
			"coverImage":                1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}
}

// EnsureIndexes backs both subscription lookups of the channel pipeline.
func (r *ChannelRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "channel", Value: 1}}},
		{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.subs.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("ensure subscription indexes: %w", err)
	}
	return nil
}
