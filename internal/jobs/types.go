package jobs

type JobType string

const (
	JobImageCleanup JobType = "image_cleanup"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobImageCleanup:
		return true
	default:
		return false
	}
}
