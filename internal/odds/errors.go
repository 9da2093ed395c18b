package odds

import (
	"fmt"

	"github.com/radieske/betslip-service/internal/betslip"
)

// ErrEventNotFound é retornado pelos fetchers quando o evento não existe na fonte
var ErrEventNotFound = fmt.Errorf("odds: %w", betslip.ErrEventNotFound)
