package core

import "errors"

var (
	// ErrServerFull is returned by Admit when the registry is at capacity.
	ErrServerFull = errors.New("server full")
	// ErrAlreadyRemoved is returned by Remove for a session that is gone.
	ErrAlreadyRemoved = errors.New("session already removed")
	// ErrNameInUse is returned when another live session holds the username.
	ErrNameInUse = errors.New("username already in use")
	// ErrNoSuchSession is returned for operations on an unknown session id.
	ErrNoSuchSession = errors.New("no such session")
)
