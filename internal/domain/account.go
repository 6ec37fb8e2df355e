package domain

import "time"

// AccountStatus is the operational state of an account.
type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE" // normal operations allowed
	AccountFrozen AccountStatus = "FROZEN" // no debit/credit allowed
	AccountClosed AccountStatus = "CLOSED" // permanently disabled
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountFrozen, AccountClosed:
		return true
	}
	return false
}

// OwnerType distinguishes real customers from the designated SYSTEM owner.
type OwnerType string

const (
	OwnerTypeUser   OwnerType = "user"
	OwnerTypeSystem OwnerType = "system"
)

// SystemOwnerID is the fixed owner id of the money-creation account.
const SystemOwnerID = "SYSTEM"

// Account is a ledger account. Balance is never stored on it; it is always
// derived from the account's ledger entries. Accounts are never deleted,
// only closed.
type Account struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	OwnerType OwnerType     `json:"owner_type"`
	Status    AccountStatus `json:"status"`
	Currency  string        `json:"currency"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsSystem reports whether this is the designated SYSTEM account.
func (a *Account) IsSystem() bool {
	return a.OwnerType == OwnerTypeSystem
}

// Actor is the authenticated caller, as resolved by the (out-of-scope)
// auth collaborator and passed through the transport boundary.
type Actor struct {
	UserID   string
	IsSystem bool
}
