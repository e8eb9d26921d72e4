package navigation

const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeRegistrationRejected = "REGISTRATION_REJECTED"
)

// MsgInvalidCredentials does not say which of email or password was wrong.
const MsgInvalidCredentials = "Invalid email or password."

// Error is a user-facing rejection shown inline on the sign-in screen.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
