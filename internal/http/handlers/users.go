package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/placehub/placehub/internal/config"
	"github.com/placehub/placehub/internal/domain/user"
	"github.com/placehub/placehub/internal/security"
	"github.com/placehub/placehub/internal/storage"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) error
}

type UserLister interface {
	List(ctx context.Context) ([]user.User, error)
}

type TokenIssuer interface {
	GenerateToken(userID, email string) (string, error)
}

// ImageStore is the slice of the blob store the handlers need.
type ImageStore interface {
	Save(header *multipart.FileHeader) (string, error)
	Delete(path string) error
}

type UsersHandler struct {
	readers UserReader
	writers UserWriter
	listers UserLister
	jwt     TokenIssuer
	images  ImageStore
}

func NewUsersHandler(reader UserReader, writer UserWriter, lister UserLister, jwt TokenIssuer, images ImageStore) *UsersHandler {
	return &UsersHandler{
		readers: reader,
		writers: writer,
		listers: lister,
		jwt:     jwt,
		images:  images,
	}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	users, err := h.listers.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UsersHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindForm(ctx, &req) {
		return
	}

	imageHeader, err := ctx.FormFile("image")

	if err != nil {
		RespondBadRequest(ctx, "An image file is required", nil)
		return
	}

	imagePath, err := h.images.Save(imageHeader)

	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			RespondBadRequest(ctx, "Image must be png or jpeg", nil)
			return
		}

		RespondInternal(ctx, "Could not store image")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.discardImage(imagePath)
		RespondInternal(ctx, "Could not create user")
		return
	}

	u := user.NewFromSignUpRequest(req, hash, imagePath)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err = h.writers.Create(cctx, u)

	if err != nil {
		h.discardImage(imagePath)

		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "A user with this email already exists.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.GenerateToken(u.ID, u.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"userId": u.ID,
		"email":  u.Email,
		"token":  token,
	})
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.readers.GetByEmail(cctx, req.Email)
	if err != nil {
		// same answer whether the email exists or not
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.jwt.GenerateToken(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"userId": foundUser.ID,
		"email":  foundUser.Email,
		"token":  token,
	})
}

// discardImage cleans up a stored upload when the record it belongs to never
// made it; failures only get logged by the store layer.
func (h *UsersHandler) discardImage(path string) {
	_ = h.images.Delete(path)
}
