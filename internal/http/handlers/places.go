package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/placehub/placehub/internal/config"
	"github.com/placehub/placehub/internal/domain/place"
	"github.com/placehub/placehub/internal/domain/user"
	"github.com/placehub/placehub/internal/geocode"
	"github.com/placehub/placehub/internal/http/middlewares"
	"github.com/placehub/placehub/internal/jobs"
	"github.com/placehub/placehub/internal/queue/redisclient"
	"github.com/placehub/placehub/internal/storage"
	"github.com/placehub/placehub/internal/utils"
)

type PlacesRepository interface {
	Create(ctx context.Context, p place.Place) error
	Delete(ctx context.Context, p place.Place) error
	GetByID(ctx context.Context, id string) (place.Place, error)
	GetByIDWithCreator(ctx context.Context, id string) (place.Place, user.User, error)
	ListByCreator(ctx context.Context, userID string) ([]place.Place, error)
	Update(ctx context.Context, id string, req place.UpdatePlaceRequest) (place.Place, error)
}

type Geocoder interface {
	Resolve(ctx context.Context, address string) (place.Location, error)
}

// CleanupEnqueuer hands image-cleanup jobs to the queue; nil disables the
// async path and deletions happen inline.
type CleanupEnqueuer interface {
	Enqueue(ctx context.Context, queue string, raw []byte) error
}

type PlacesHandler struct {
	repo     PlacesRepository
	geocoder Geocoder
	images   ImageStore
	queue    CleanupEnqueuer
	log      *slog.Logger
}

func NewPlacesHandler(repo PlacesRepository, geocoder Geocoder, images ImageStore, queue CleanupEnqueuer, log *slog.Logger) *PlacesHandler {
	return &PlacesHandler{
		repo:     repo,
		geocoder: geocoder,
		images:   images,
		queue:    queue,
		log:      log,
	}
}

func (h *PlacesHandler) GetPlaceByID(ctx *gin.Context) {
	placeID := ctx.Param("id")

	if !utils.IsUUID(placeID) {
		RespondBadRequest(ctx, "place id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	p, err := h.repo.GetByID(cctx, placeID)

	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			RespondNotFound(ctx, "Place not found")
			return
		}

		RespondInternal(ctx, "Could not fetch place")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"place": p})
}

func (h *PlacesHandler) ListPlacesByUser(ctx *gin.Context) {
	userID := ctx.Param("uid")

	if !utils.IsUUID(userID) {
		RespondBadRequest(ctx, "user id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	places, err := h.repo.ListByCreator(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not fetch places")
		return
	}

	// no places yet is a normal answer, not a 404

	ctx.JSON(http.StatusOK, gin.H{"places": places})
}

func (h *PlacesHandler) CreatePlace(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req place.CreatePlaceRequest

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

	// resolve the address before touching the store; nothing to roll back if
	// this fails

	gctx, gcancel := config.WithTimeout(5 * time.Second)

	loc, err := h.geocoder.Resolve(gctx, req.Address)
	gcancel()

	if err != nil {
		h.discardImage(imagePath)

		if errors.Is(err, geocode.ErrNotFound) {
			RespondUnprocessable(ctx, "address_unresolved", "Could not find a location for this address.")
			return
		}

		RespondInternal(ctx, "Could not resolve address")
		return
	}

	req.CreatorID = userID
	req.ImagePath = imagePath

	p := place.NewFromCreateRequest(req, loc)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	err = h.repo.Create(cctx, p)

	if err != nil {
		h.discardImage(imagePath)

		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Could not find a user for the provided id")
			return
		}

		RespondInternal(ctx, "Creating place failed, please try again.")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"place": p})
}

func (h *PlacesHandler) UpdatePlace(ctx *gin.Context) {
	placeID := ctx.Param("id")

	if !utils.IsUUID(placeID) {
		RespondBadRequest(ctx, "place id must be a valid UUID", nil)
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req place.UpdatePlaceRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	p, err := h.repo.GetByID(cctx, placeID)

	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			RespondNotFound(ctx, "Place not found")
			return
		}

		RespondInternal(ctx, "Could not fetch place")
		return
	}

	// only the creator may edit — checked before any mutation

	if p.CreatorID != userID {
		RespondForbidden(ctx, "Not allowed to edit this place")
		return
	}

	updated, err := h.repo.Update(cctx, placeID, req)

	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			RespondNotFound(ctx, "Place not found")
			return
		}

		RespondInternal(ctx, "Could not update place")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"place": updated})
}

func (h *PlacesHandler) DeletePlace(ctx *gin.Context) {
	placeID := ctx.Param("id")

	if !utils.IsUUID(placeID) {
		RespondBadRequest(ctx, "place id must be a valid UUID", nil)
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	p, creator, err := h.repo.GetByIDWithCreator(cctx, placeID)

	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			RespondNotFound(ctx, "Place not found")
			return
		}

		RespondInternal(ctx, "Could not fetch place")
		return
	}

	// ownership check before any mutation

	if creator.ID != userID {
		RespondForbidden(ctx, "Not allowed to delete this place")
		return
	}

	imagePath := p.ImagePath

	err = h.repo.Delete(cctx, p)

	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			RespondNotFound(ctx, "Place not found")
			return
		}

		RespondInternal(ctx, "Could not delete place")
		return
	}

	// the record delete already committed; image cleanup is best effort and
	// never fails the request
	h.cleanupImage(ctx, p.ID, imagePath)

	ctx.JSON(http.StatusOK, gin.H{"message": "Place deleted"})
}

func (h *PlacesHandler) cleanupImage(ctx *gin.Context, placeID, imagePath string) {
	if imagePath == "" {
		return
	}

	if h.queue != nil {
		payload := jobs.ImageCleanupPayload{
			PlaceID:     placeID,
			ImagePath:   imagePath,
			RequestedAt: time.Now().UTC(),
			RequestID:   requestIDFrom(ctx),
		}

		raw, err := jobs.EncodePayload(jobs.JobImageCleanup, payload)

		if err == nil {
			j, jerr := jobs.NewJob(jobs.JobImageCleanup, raw)

			if jerr == nil {
				encoded, eerr := jobs.EncodeJob(j)

				if eerr == nil {
					qctx, qcancel := config.WithTimeout(2 * time.Second)
					defer qcancel()

					if qe := h.queue.Enqueue(qctx, redisclient.CleanupQueue, encoded); qe == nil {
						return
					}

					h.log.Warn("cleanup enqueue failed, deleting inline", "place_id", placeID)
				}
			}
		}
	}

	err := h.images.Delete(imagePath)

	if err != nil {
		h.log.Error("could not delete place image", "place_id", placeID, "path", imagePath, "err", err)
	}
}

func (h *PlacesHandler) discardImage(path string) {
	err := h.images.Delete(path)

	if err != nil {
		h.log.Warn("could not discard uploaded image", "path", path, "err", err)
	}
}
