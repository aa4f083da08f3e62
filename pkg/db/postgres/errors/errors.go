package errors

import (
	"fmt"

	"github.com/omniphi/orchestrator/pkg/domain"
)

// record looked up was not there.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}
func (m Missing) Unwrap() error {
	return domain.ErrMissing
}
