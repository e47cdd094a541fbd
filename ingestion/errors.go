package ingestion

import "errors"

var (
	// ErrTalentRepositoryRequired is returned when a talent repository is not provided.
	ErrTalentRepositoryRequired = errors.New("talent repository required")

	// ErrDimensionRepositoryRequired is returned when a dimension repository is not provided.
	ErrDimensionRepositoryRequired = errors.New("dimension repository required")

	// ErrTagRepositoryRequired is returned when a tag repository is not provided.
	ErrTagRepositoryRequired = errors.New("tag repository required")

	// ErrJobRepositoryRequired is returned when a job repository is not provided.
	ErrJobRepositoryRequired = errors.New("job repository required")

	// ErrExtractorRequired is returned when a card extractor is not provided.
	ErrExtractorRequired = errors.New("card extractor required")
)
