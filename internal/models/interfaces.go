package models

// FeedEntity is implemented by models whose writes are published on the change feed
type FeedEntity interface {
	FeedCollection() string
	FeedID() string
	FeedKey() string
}
