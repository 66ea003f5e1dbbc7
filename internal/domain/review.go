package domain

const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = MaxRating
)

// ReviewDraft is the editable review of one purchased product.
type ReviewDraft struct {
	ProductID int64
	Rating    int
	Comment   string
	Submitted bool
}

func NewReviewDraft(productID int64) ReviewDraft {
	return ReviewDraft{ProductID: productID, Rating: DefaultRating}
}

func (d *ReviewDraft) SetRating(rating int) error {
	if d.Submitted {
		return ErrReviewSubmitted
	}
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}

	d.Rating = rating

	return nil
}

func (d *ReviewDraft) SetComment(comment string) error {
	if d.Submitted {
		return ErrReviewSubmitted
	}

	d.Comment = comment

	return nil
}
