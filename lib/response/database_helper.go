package response

import (
	"errors"

	"github.com/getevo/evo/v2/lib/log"
	"gorm.io/gorm"
)

// HandleDBError handles common database errors with consistent responses.
// Returns nil if no error, otherwise returns appropriate error response.
func HandleDBError(err error, notFoundMsg string, context string) interface{} {
	if err == nil {
		return nil
	}

	log.Error("%s: %v", context, err)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(notFoundMsg)
	}

	return Error(ErrDatabaseError)
}

// HandleDBErrorWithDetails handles DB errors with detailed error info
func HandleDBErrorWithDetails(err error, notFoundMsg string, context string) interface{} {
	if err == nil {
		return nil
	}

	log.Error("%s: %v", context, err)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Error(NewErrorWithDetails(ErrorCodeNotFound, notFoundMsg, 404, "Resource not found"))
	}

	return Error(NewErrorWithDetails(ErrorCodeDatabaseError, "Database operation failed", 500, err.Error()))
}
