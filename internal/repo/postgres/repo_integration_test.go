package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placehub/placehub/internal/db"
	"github.com/placehub/placehub/internal/domain/place"
	"github.com/placehub/placehub/internal/domain/user"
	"github.com/placehub/placehub/internal/repo/postgres"
)

// These tests need a real database. Point TEST_DB_DSN at a scratch Postgres
// to run them; they are skipped otherwise.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")

	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping database integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	t.Cleanup(pool.Close)

	return pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool) user.User {
	t.Helper()

	ctx := context.Background()

	u := user.NewFromSignUpRequest(user.SignUpRequest{
		Name:     "Integration Tester",
		Email:    uuid.NewString() + "@example.com",
		Password: "ignored",
	}, "not-a-real-hash", "uploads/images/tester.png")

	users := postgres.NewUsersRepo(pool, nil)

	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	t.Cleanup(func() {
		// FK order: membership rows and places first, then the user
		_, _ = pool.Exec(ctx, `DELETE FROM user_places WHERE user_id = $1`, u.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM places WHERE creator_id = $1`, u.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
	})

	return u
}

func newPlaceFor(creatorID string) place.Place {
	return place.NewFromCreateRequest(place.CreatePlaceRequest{
		Title:       "Integration Test Spot",
		Description: "A place created by the integration tests.",
		Address:     "1 Test Street",
		CreatorID:   creatorID,
		ImagePath:   "uploads/images/spot.png",
	}, place.Location{Lat: 52.52, Lng: 13.405})
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()

	var n int

	if err := pool.QueryRow(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}

	return n
}

func TestCreateWritesPlaceAndMembership(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, pool)

	places := postgres.NewPlacesRepo(pool, nil)

	p := newPlaceFor(u.ID)

	if err := places.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if n := countRows(t, pool, `SELECT COUNT(*) FROM places WHERE id = $1`, p.ID); n != 1 {
		t.Errorf("place rows = %d, want 1", n)
	}

	if n := countRows(t, pool, `SELECT COUNT(*) FROM user_places WHERE user_id = $1 AND place_id = $2`, u.ID, p.ID); n != 1 {
		t.Errorf("membership rows = %d, want 1", n)
	}

	got, err := places.GetByID(context.Background(), p.ID)

	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Title != p.Title || got.CreatorID != u.ID {
		t.Errorf("got %+v", got)
	}
}

func TestCreateForMissingUserLeavesNoRows(t *testing.T) {
	pool := testPool(t)

	places := postgres.NewPlacesRepo(pool, nil)

	p := newPlaceFor(uuid.NewString())

	err := places.Create(context.Background(), p)

	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("got err %v, want user.ErrNotFound", err)
	}

	// the aborted transaction must not leave either row behind

	if n := countRows(t, pool, `SELECT COUNT(*) FROM places WHERE id = $1`, p.ID); n != 0 {
		t.Errorf("place rows = %d, want 0", n)
	}

	if n := countRows(t, pool, `SELECT COUNT(*) FROM user_places WHERE place_id = $1`, p.ID); n != 0 {
		t.Errorf("membership rows = %d, want 0", n)
	}
}

func TestDeleteRemovesPlaceAndMembership(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, pool)

	places := postgres.NewPlacesRepo(pool, nil)

	p := newPlaceFor(u.ID)

	if err := places.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := places.Delete(context.Background(), p); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if n := countRows(t, pool, `SELECT COUNT(*) FROM places WHERE id = $1`, p.ID); n != 0 {
		t.Errorf("place rows = %d, want 0", n)
	}

	if n := countRows(t, pool, `SELECT COUNT(*) FROM user_places WHERE place_id = $1`, p.ID); n != 0 {
		t.Errorf("membership rows = %d, want 0", n)
	}

	// deleting again reports not found
	if err := places.Delete(context.Background(), p); !errors.Is(err, place.ErrNotFound) {
		t.Errorf("second delete err = %v, want place.ErrNotFound", err)
	}
}

func TestListByCreatorReadsMembership(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, pool)

	places := postgres.NewPlacesRepo(pool, nil)

	first := newPlaceFor(u.ID)
	second := newPlaceFor(u.ID)
	second.Title = "Second Spot"
	second.CreatedAt = second.CreatedAt.Add(time.Second)

	for _, p := range []place.Place{first, second} {
		if err := places.Create(context.Background(), p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := places.ListByCreator(context.Background(), u.ID)

	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d places, want 2", len(got))
	}

	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("order wrong: %s, %s", got[0].Title, got[1].Title)
	}
}

func TestDuplicateEmailMapsToErrEmailTaken(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, pool)

	users := postgres.NewUsersRepo(pool, nil)

	dup := user.NewFromSignUpRequest(user.SignUpRequest{
		Name:     "Another Tester",
		Email:    u.Email,
		Password: "ignored",
	}, "not-a-real-hash", "")

	err := users.Create(context.Background(), dup)

	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("got err %v, want user.ErrEmailTaken", err)
	}
}

func TestUsersListCarriesPlaceIDs(t *testing.T) {
	pool := testPool(t)
	u := seedUser(t, pool)

	places := postgres.NewPlacesRepo(pool, nil)
	users := postgres.NewUsersRepo(pool, nil)

	p := newPlaceFor(u.ID)

	if err := places.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := users.List(context.Background())

	if err != nil {
		t.Fatalf("list users: %v", err)
	}

	for _, got := range all {
		if got.ID != u.ID {
			continue
		}

		if len(got.PlaceIDs) != 1 || got.PlaceIDs[0] != p.ID {
			t.Errorf("place ids = %v, want [%s]", got.PlaceIDs, p.ID)
		}

		return
	}

	t.Fatalf("seeded user %s missing from listing", u.ID)
}
