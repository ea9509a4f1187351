package otp

import "errors"

var (
	// ErrInvalidCode reports a candidate that does not match the live code.
	ErrInvalidCode = errors.New("otp: invalid code")
	// ErrExpired reports a code past its validity window.
	ErrExpired = errors.New("otp: code expired")
	// ErrNoActiveCode reports a verification with no live challenge.
	ErrNoActiveCode = errors.New("otp: no active code")
	// ErrTooManyAttempts reports the failed-attempt threshold being hit;
	// the challenge is invalidated and a new code must be requested.
	ErrTooManyAttempts = errors.New("otp: too many attempts")
	// ErrDelivery reports a code that was generated but could not be sent.
	// The caller surfaces it distinctly so the user is not left staring at
	// a code-entry prompt for a code that never arrived.
	ErrDelivery = errors.New("otp: delivery failed")
	// ErrMissingDestination reports a profile without a usable phone number.
	ErrMissingDestination = errors.New("otp: no delivery destination")
	// ErrUnavailable reports a transient challenge-store failure.
	ErrUnavailable = errors.New("otp: backend unavailable")
)
