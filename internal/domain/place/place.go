package place

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Place struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Location    Location  `json:"location"`
	ImagePath   string    `json:"image"`
	CreatorID   string    `json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("place not found")

// Create arrives as a multipart form so the image file can ride alongside
// the text fields.
type CreatePlaceRequest struct {
	Title       string `form:"title" binding:"required,min=1,max=120"`
	Description string `form:"description" binding:"required,min=5,max=1000"`
	Address     string `form:"address" binding:"required,min=3,max=200"`

	// filled in by the handler, never bound from the client
	CreatorID string `form:"-"`
	ImagePath string `form:"-"`
}

type UpdatePlaceRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=120"`
	Description string `json:"description" binding:"required,min=5,max=1000"`
}

// A factory to build a Place from the incoming DTO plus the resolved
// coordinates.

func NewFromCreateRequest(req CreatePlaceRequest, loc Location) Place {
	now := time.Now().UTC()

	return Place{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Location:    loc,
		ImagePath:   req.ImagePath,
		CreatorID:   req.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
