package domain

// ChannelProfile is the public view of a user as a channel, aggregated with
// subscription counts relative to an optional viewer.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	UserName                  string `json:"userName"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	AvatarURL                 string `json:"avatar"`
	CoverImageURL             string `json:"coverImage,omitempty"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}
