package services

// User-facing messages. They never carry backend diagnostics.
const (
	MsgLoginFailed        = "Login failed. Please try again"
	MsgEmailInUse         = "An account with that email already exists"
	MsgInvalidEmail       = "That email is invalid"
	MsgSignUpFailed       = "Sign up failed. Please try again"
	MsgUsernameTaken      = "That username is already taken"
	MsgUsernameRequired   = "Please enter a username"
	MsgDisplayNameMissing = "Please enter a display name"
	MsgSomethingWrong     = "Something went wrong on our end, please try again"
	MsgGenericRetry       = "An error occured. Please try again"
	MsgPasswordTooShort   = "Password must be at least 6 characters"
	MsgPasswordMismatch   = "Passwords do not match"
	MsgReauthRequired     = "Please sign in again to continue"
	MsgWrongAccount       = "You must login to the same account that was previously signed in"
	MsgDeleteFailed       = "An error occured while attempting to delete your account. We apologize for the inconvenience"
	MsgOrphanedAccount    = "Your account data was deleted but an error occured while deleting your account"
)

// MinPasswordLength matches the identity backend's own minimum.
const MinPasswordLength = 6
