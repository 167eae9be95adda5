package models

// User is a learner account in the platform's user directory.
type User struct {
	// ID is the platform identifier.
	ID string

	// Name is the display name.
	Name string

	// Email is the user's email address.
	Email string

	// WalletAddress is where token transfers are delivered. Empty when the
	// user has not linked a wallet.
	WalletAddress string
}

// UserPage is one page of the user directory.
type UserPage struct {
	Users      []User
	Page       int
	TotalPages int
}

// Operator is the administrative account approving payouts.
type Operator struct {
	ID    string
	Name  string
	Email string
}
