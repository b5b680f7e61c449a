package opkit

import (
	"fmt"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-carrier-billing/core"
)

// RequireParams checks every required field in one pass and reports all
// missing names together, so callers fix their request once instead of
// replaying it per field.
func RequireParams(fields map[string]string) *goerrors.Error {
	missing := make([]string, 0, len(fields))
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return core.NewValidationError(
		fmt.Sprintf("missing required parameters: %s", strings.Join(missing, ", ")),
		core.BillingErrorMissingParameters,
		map[string]any{core.ErrMetaMissingFields: missing},
	)
}
