package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	ImagePath    string    `json:"image"`
	PlaceIDs     []string  `json:"places"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("user not found")

// raised on signup when the email is already registered.
var ErrEmailTaken = errors.New("email already in use")

// Signup fields arrive as a multipart form (the image file rides alongside).
type SignUpRequest struct {
	Name     string `form:"name" binding:"required,min=2,max=80"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// A factory to build a User from the signup DTO once the password is hashed
// and the image is stored.

func NewFromSignUpRequest(req SignUpRequest, passwordHash, imagePath string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		ImagePath:    imagePath,
		PlaceIDs:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
