// Package services defines the business logic for the forum engine and the
// host application's accounts. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Forum errors.
var (
	// ErrMessageboardNotFound indicates that no messageboard has the requested slug.
	ErrMessageboardNotFound = errors.New("messageboard not found")

	// ErrTopicNotFound indicates that the requested topic does not exist, or
	// does not belong to the messageboard named in the URL.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrEmptyContent is returned when a post body is blank.
	ErrEmptyContent = errors.New("content is empty")

	// ErrTooLong is returned when a title or post exceeds the configured limit.
	ErrTooLong = errors.New("content too long")

	// ErrSlugExhausted is returned when no free slug could be found for a title.
	ErrSlugExhausted = errors.New("could not allocate a unique topic slug")
)

// Account errors.
var (
	// ErrEmailTaken is returned on sign-up when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on sign-in with an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned when a session token is missing, unknown
	// or expired.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)
