package session

// Reduce returns the state that follows prev after a. It never mutates prev
// and every variant leaves the loading phase, so the only way to be loading
// is to never have dispatched anything.
func Reduce(prev State, a Action) State {
	next := prev.clone()
	next.IsLoading = false

	switch a := a.(type) {
	case RestoreCredentials:
		next.User = a.User.Clone()
		next.SignInErrorMessage = ""
		next.SignUpErrorMessage = ""
	case SignIn:
		next.User = a.User.Clone()
		next.IsSignout = false
		next.SignInErrorMessage = ""
		next.SignUpErrorMessage = ""
	case SignInError:
		next.User = nil
		next.SignInErrorMessage = a.Message
		next.SignUpErrorMessage = ""
	case SignUpError:
		next.User = nil
		next.SignUpErrorMessage = a.Message
		next.SignInErrorMessage = ""
	case SignOut:
		next.User = nil
		next.IsSignout = true
		next.SignInErrorMessage = ""
		next.SignUpErrorMessage = ""
	case InternalError:
		next.User = nil
		next.SignInErrorMessage = ""
		next.SignUpErrorMessage = ""
	default:
		return prev.clone()
	}
	return next
}
