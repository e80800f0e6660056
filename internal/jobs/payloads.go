package jobs

import "time"

// ImageCleanupPayload asks the worker to unlink a stored image after the
// owning place row has already been deleted. Keep the payload ID/path based;
// the worker needs nothing else.
type ImageCleanupPayload struct {
	PlaceID     string    `json:"placeId"`
	ImagePath   string    `json:"imagePath"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"` // optional: correlation
}
