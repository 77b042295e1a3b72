package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrLocalMode          = fmt.Errorf("not available when using local storage")

	// Authentication errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrForbidden          = fmt.Errorf("not permitted for this account type")
	ErrAccountNotFound    = fmt.Errorf("no account with that username")
	ErrIncorrectPassword  = fmt.Errorf("incorrect password")
	ErrUsernameTaken      = fmt.Errorf("username has been taken")
	ErrPasswordsDontMatch = fmt.Errorf("passwords do not match")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Key management errors
	ErrEncryption = fmt.Errorf("could not encrypt password")
	ErrDecryption = fmt.Errorf("could not decrypt password")

	// Storage errors
	ErrServiceUnavailable   = fmt.Errorf("service unavailable")
	ErrAchievementNotFound  = fmt.Errorf("achievement not found")
	ErrDuplicateAchievement = fmt.Errorf("achievement with that title already exists in category")
	ErrInvalidProgress      = fmt.Errorf("progress out of range")
	ErrImageUpload          = fmt.Errorf("failed to upload image")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
