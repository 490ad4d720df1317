package types

import "github.com/m-mizutani/goerr/v2"

// Dataset selects which contact book a request operates on.
type Dataset string

const (
	// DatasetPartner is the partner organisations contact book.
	DatasetPartner Dataset = "partner"
	// DatasetFunder is the funding organisations contact book. Access is
	// restricted to admins.
	DatasetFunder Dataset = "funder"
)

func (d Dataset) Validate() error {
	switch d {
	case DatasetPartner, DatasetFunder:
		return nil
	default:
		return goerr.New("unknown dataset", goerr.V("dataset", string(d)))
	}
}

// Restricted reports whether the dataset requires an admin permission check.
func (d Dataset) Restricted() bool {
	return d == DatasetFunder
}

func (d Dataset) String() string {
	return string(d)
}
