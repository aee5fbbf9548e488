package models

import "fmt"

// Snapshot is the account state the importance engine consumes, valid as of
// one block height. The position of an account in Accounts is its node id.
type Snapshot struct {
	Height   uint64    `json:"height" yaml:"height"`
	Accounts []Account `json:"accounts" yaml:"accounts"`
}

// Account is one account of a snapshot
type Account struct {
	Address                string    `json:"address" yaml:"address"`
	Balance                float64   `json:"balance" yaml:"balance"`
	CoinDayWeightedBalance float64   `json:"coinDayWeightedBalance" yaml:"coinDayWeightedBalance"`
	Outlinks               []Outlink `json:"outlinks,omitempty" yaml:"outlinks,omitempty"`
}

// Outlink is a weighted transfer from the owning account to Counterparty
type Outlink struct {
	Counterparty string  `json:"counterparty" yaml:"counterparty"`
	Weight       float64 `json:"weight" yaml:"weight"`
}

// NumAccounts returns the number of accounts
func (s *Snapshot) NumAccounts() int { return len(s.Accounts) }

// Addresses returns the account addresses in node id order
func (s *Snapshot) Addresses() []string {
	addresses := make([]string, len(s.Accounts))
	for i, account := range s.Accounts {
		addresses[i] = account.Address
	}
	return addresses
}

// IndexByAddress maps every address to its node id.
// With duplicate addresses the first occurrence wins.
func (s *Snapshot) IndexByAddress() map[string]int {
	index := make(map[string]int, len(s.Accounts))
	for i, account := range s.Accounts {
		if _, exists := index[account.Address]; !exists {
			index[account.Address] = i
		}
	}
	return index
}

// NumOutlinks returns the total number of outlinks
func (s *Snapshot) NumOutlinks() int {
	count := 0
	for _, account := range s.Accounts {
		count += len(account.Outlinks)
	}
	return count
}

// ValidationError represents structured validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("validation error in field '%s': %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(ve), ve[0].Error(), len(ve)-1)
}

// Add appends an error built from its parts
func (ve *ValidationErrors) Add(field, message, value string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message, Value: value})
}

// ErrOrNil returns ve as an error, or nil when it is empty
func (ve ValidationErrors) ErrOrNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}
