package poller

import "net/http"

const (
	MessageUnreachable  = "Unable to connect to weather service. Please check your internet connection."
	MessageUnauthorized = "Weather data not found. Please try again."
	MessageForbidden    = "You do not have permission to access this resource."
	MessageNotFound     = "The requested resource could not be found."
	MessageServerError  = "Weather service is temporarily unavailable. Please try again later."
	MessageDefault      = "Failed to load weather data. Please refresh the page."
)

// ErrorMessage maps a fetch status to the message shown to the user. Status 0
// means the service could not be reached.
func ErrorMessage(status int) string {
	switch status {
	case 0:
		return MessageUnreachable
	case http.StatusUnauthorized:
		return MessageUnauthorized
	case http.StatusForbidden:
		return MessageForbidden
	case http.StatusNotFound:
		return MessageNotFound
	case http.StatusInternalServerError:
		return MessageServerError
	default:
		return MessageDefault
	}
}
