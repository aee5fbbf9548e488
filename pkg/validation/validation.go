package validation

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gilchrisn/poi-engine/pkg/models"
)

// ValidateSnapshot performs comprehensive validation of a snapshot.
// Outlinks to addresses outside the snapshot are allowed; the engine
// ignores them.
func ValidateSnapshot(snapshot *models.Snapshot) error {
	if snapshot == nil {
		return models.ValidationError{Field: "snapshot", Message: "snapshot cannot be nil"}
	}

	var errors models.ValidationErrors

	if len(snapshot.Accounts) == 0 {
		return models.ValidationError{
			Field:   "accounts",
			Message: "snapshot must contain at least one account",
		}
	}

	if err := validateAccounts(snapshot.Accounts); err != nil {
		if ve, ok := err.(models.ValidationErrors); ok {
			errors = append(errors, ve...)
		} else {
			errors.Add("accounts", err.Error(), "")
		}
	}

	if err := validateOutlinks(snapshot.Accounts); err != nil {
		if ve, ok := err.(models.ValidationErrors); ok {
			errors = append(errors, ve...)
		} else {
			errors.Add("outlinks", err.Error(), "")
		}
	}

	return errors.ErrOrNil()
}

// validateAccounts checks addresses and balances
func validateAccounts(accounts []models.Account) error {
	var errors models.ValidationErrors

	seen := make(map[string]int, len(accounts))
	total := 0.0
	for i, account := range accounts {
		fieldPrefix := fmt.Sprintf("accounts[%d]", i)

		if strings.TrimSpace(account.Address) == "" {
			errors.Add(fieldPrefix+".address", "address cannot be empty or whitespace", account.Address)
		} else if first, exists := seen[account.Address]; exists {
			errors.Add(fieldPrefix+".address", fmt.Sprintf("duplicate address, first used by accounts[%d]", first), account.Address)
		} else {
			seen[account.Address] = i
		}

		if !isFinite(account.Balance) || account.Balance < 0 {
			errors.Add(fieldPrefix+".balance", "balance must be finite and non-negative", fmt.Sprintf("%g", account.Balance))
		} else {
			total += account.Balance
		}

		if !isFinite(account.CoinDayWeightedBalance) || account.CoinDayWeightedBalance < 0 {
			errors.Add(fieldPrefix+".coinDayWeightedBalance", "coin-day weighted balance must be finite and non-negative",
				fmt.Sprintf("%g", account.CoinDayWeightedBalance))
		}
	}

	if len(errors) == 0 && !(total > 0) {
		errors.Add("accounts", "total balance must be positive", fmt.Sprintf("%g", total))
	}

	return errors.ErrOrNil()
}

// validateOutlinks checks counterparties and weights
func validateOutlinks(accounts []models.Account) error {
	var errors models.ValidationErrors

	for i, account := range accounts {
		for j, link := range account.Outlinks {
			fieldPrefix := fmt.Sprintf("accounts[%d].outlinks[%d]", i, j)

			if strings.TrimSpace(link.Counterparty) == "" {
				errors.Add(fieldPrefix+".counterparty", "counterparty cannot be empty", "")
			}
			if !isFinite(link.Weight) || link.Weight <= 0 {
				errors.Add(fieldPrefix+".weight", "outlink weight must be finite and positive", fmt.Sprintf("%g", link.Weight))
			}
		}
	}

	return errors.ErrOrNil()
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// ValidateFileFormat checks if a snapshot file has a supported extension and is readable
func ValidateFileFormat(filePath string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".json", ".yaml", ".yml", ".txt", ".edges", ".edgelist":
	default:
		return fmt.Errorf("unsupported snapshot file extension: %q", ext)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("snapshot path is a directory: %s", filePath)
	}
	return nil
}

// ValidateOutputDirectory checks if output directory exists or can be created
func ValidateOutputDirectory(outputDir string) error {
	info, err := os.Stat(outputDir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
		return nil
	}

	if err != nil {
		return fmt.Errorf("cannot access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path exists but is not a directory: %s", outputDir)
	}

	return nil
}
