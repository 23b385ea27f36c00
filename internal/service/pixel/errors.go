package pixel

import (
	"fmt"

	"github.com/ignite/pixel-tracker/internal/domain"
)

// ErrIDExhausted is returned when every generated identifier collided with an
// existing pixel. It is reported as a storage failure.
var ErrIDExhausted = fmt.Errorf("%w: pixel id generation exhausted retries", domain.ErrStorage)
