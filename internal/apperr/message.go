package apperr

import "strings"

// UserMessage returns the text shown to staff for err.
func UserMessage(err error) string {
	var ve *ValidationError
	var tz *TimeZoneError

	switch {
	case err == nil:
		return ""
	case As(err, &ve):
		return "❌ Invalid " + ve.Field + ": " + ve.Reason
	case As(err, &tz):
		msg := "❌ Unknown time zone " + tz.Name
		if hints := GetAllHints(err); len(hints) > 0 {
			msg += "\n💡 " + strings.Join(hints, "; ")
		}
		return msg
	case Is(err, ErrNotFound):
		return "❌ Not found"
	case Is(err, ErrInvalidTransition):
		return "❌ This status change is not allowed"
	case Is(err, ErrUnboundedPreview):
		return "❌ Preview needs a horizon and a count"
	default:
		return "❌ Something went wrong. Try again later."
	}
}
