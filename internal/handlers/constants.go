package handlers

const (
	SessionCookieName = "token"

	ErrMsgInvalidBody        = "invalid request body"
	ErrMsgUnauthorized       = "authentication required"
	ErrMsgForbidden          = "admin access required"
	ErrMsgInvalidCredentials = "invalid email or password"
	ErrMsgInternal           = "internal server error"
	ErrMsgNotFound           = "not found"
	ErrMsgTooManyRequests    = "too many requests"
	ErrMsgCannotDeleteSelf   = "cannot delete your own account"

	MsgRegistered   = "registration successful"
	MsgLoggedIn     = "login successful"
	MsgLoggedOut    = "logout successful"
	MsgResetRequest = "if the email is registered, a reset link has been sent"
	MsgResetDone    = "password updated"
	MsgUserUpdated  = "user updated"
	MsgUserDeleted  = "user deleted"
)
