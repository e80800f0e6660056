package jobs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/placehub/placehub/internal/jobs"
)

func TestEncodeDecodePayloadRoundTrip(t *testing.T) {
	payload := jobs.ImageCleanupPayload{
		PlaceID:     "place-1",
		ImagePath:   "uploads/images/abc.png",
		RequestedAt: time.Now().UTC().Truncate(time.Second),
	}

	raw, err := jobs.EncodePayload(jobs.JobImageCleanup, payload)

	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	j, err := jobs.NewJob(jobs.JobImageCleanup, raw)

	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if j.MaxTries != 5 {
		t.Errorf("got MaxTries %d, want 5", j.MaxTries)
	}

	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	got, ok := decoded.(jobs.ImageCleanupPayload)

	if !ok {
		t.Fatalf("decoded wrong type %T", decoded)
	}

	if got.ImagePath != payload.ImagePath || got.PlaceID != payload.PlaceID {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestEncodePayloadTypeMismatch(t *testing.T) {
	_, err := jobs.EncodePayload(jobs.JobImageCleanup, struct{ X int }{X: 1})

	if !errors.Is(err, jobs.ErrPayloadTypeMismatch) {
		t.Fatalf("got err %v, want ErrPayloadTypeMismatch", err)
	}
}

func TestNewJobRejectsUnknownType(t *testing.T) {
	_, err := jobs.NewJob(jobs.JobType("nope"), []byte(`{}`))

	if !errors.Is(err, jobs.ErrInvalidJobType) {
		t.Fatalf("got err %v, want ErrInvalidJobType", err)
	}
}

func TestDecodeJobEnvelope(t *testing.T) {
	raw, err := jobs.EncodePayload(jobs.JobImageCleanup, jobs.ImageCleanupPayload{ImagePath: "x"})

	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	j, err := jobs.NewJob(jobs.JobImageCleanup, raw)

	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	encoded, err := jobs.EncodeJob(j)

	if err != nil {
		t.Fatalf("encode job: %v", err)
	}

	back, err := jobs.DecodeJob(encoded)

	if err != nil {
		t.Fatalf("decode job: %v", err)
	}

	if back.ID != j.ID || back.Type != j.Type {
		t.Errorf("envelope mismatch: got %+v want %+v", back, j)
	}
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	_, err := jobs.DecodeJob([]byte(`{"type":"unknown"}`))

	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
