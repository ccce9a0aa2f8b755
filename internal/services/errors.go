package services

import "errors"

var (
	// ErrInvalidInput covers malformed or missing request fields
	ErrInvalidInput = errors.New("invalid input")
	// ErrOfferNotFound is returned when an offer id matches nothing
	ErrOfferNotFound = errors.New("offer not found")
	// ErrStoreNotFound is returned when a store id matches nothing
	ErrStoreNotFound = errors.New("store not found")
	// ErrOfferInactive is returned when redeeming a deactivated offer
	ErrOfferInactive = errors.New("offer is not active")
	// ErrAlreadyRedeemed is returned on a second redemption of the same offer by the same user
	ErrAlreadyRedeemed = errors.New("offer already redeemed")
	// ErrOfferExhausted is returned once an offer reached its redemption ceiling
	ErrOfferExhausted = errors.New("offer redemption limit reached")
	// ErrResolverUnavailable is returned when the directory or catalogue cannot be queried
	ErrResolverUnavailable = errors.New("proximity resolver unavailable")
	// ErrUserNotFound is returned when an authenticated user no longer exists
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on signup with an email already registered
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")
)
