package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const bookingIDPrefix = "TRV"

// NewBookingID returns "TRV" + base36 unix millis + 4 hex chars of a random
// UUID, all upper case.
func NewBookingID(now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return strings.ToUpper(bookingIDPrefix + stamp + suffix)
}
