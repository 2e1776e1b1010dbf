package core

type OrderParams struct {
	Port int
}

const (
	// Constraints for checkout payloads
	MinItems = 1
	MaxItems = 20

	MinItemQuantity = 1
	MaxItemQuantity = 10

	MaxTableReferenceLen = 32
	MaxNotesLen          = 300

	// Valid rating scores
	MinRatingScore = 1
	MaxRatingScore = 5

	// in seconds, for db and broker calls
	WaitTime = 20

	DefaultChangedBy = "checkout"

	// redis key prefix for the status read-through cache
	StatusCacheKeyPrefix = "order:status:"

	MBReconnInterval = 5
)
