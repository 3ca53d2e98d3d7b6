package auth

import "errors"

var errMissingUser = errors.New("init data has no user")
