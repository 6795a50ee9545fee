package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wellbank/segmint/internal/model"
)

// Validation errors.
var (
	ErrNilContext           = errors.New("context cannot be nil")
	ErrEmptyString          = errors.New("string parameter cannot be empty")
	ErrNilParameter         = errors.New("parameter cannot be nil")
	ErrEmptySlice           = errors.New("slice cannot be empty")
	ErrInvalidCustomer      = errors.New("invalid customer")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrInvalidHolding       = errors.New("invalid holding")
	ErrInvalidProbability   = errors.New("acceptance probability must be between 0 and 1")
	ErrInvalidStatusChange  = errors.New("invalid recommendation status transition")
	ErrInvalidRunTransition = errors.New("batch run already finished")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCustomers validates a slice of customers.
func validateCustomers(customers []model.Customer) error {
	if customers == nil {
		return fmt.Errorf("%w: customers", ErrNilParameter)
	}
	if len(customers) == 0 {
		return fmt.Errorf("%w: customers", ErrEmptySlice)
	}
	for i, c := range customers {
		if strings.TrimSpace(c.CustomerID) == "" {
			return fmt.Errorf("customer at index %d: %w: missing customer ID", i, ErrInvalidCustomer)
		}
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}
	for i, txn := range transactions {
		if strings.TrimSpace(txn.CustomerID) == "" {
			return fmt.Errorf("transaction at index %d: %w: missing customer ID", i, ErrInvalidTransaction)
		}
	}
	return nil
}

// validateHoldings validates a slice of holdings.
func validateHoldings(holdings []model.Holding) error {
	if holdings == nil {
		return fmt.Errorf("%w: holdings", ErrNilParameter)
	}
	if len(holdings) == 0 {
		return fmt.Errorf("%w: holdings", ErrEmptySlice)
	}
	for i, h := range holdings {
		if strings.TrimSpace(h.CustomerID) == "" {
			return fmt.Errorf("holding at index %d: %w: missing customer ID", i, ErrInvalidHolding)
		}
		if strings.TrimSpace(h.ProductCode) == "" {
			return fmt.Errorf("holding at index %d: %w: missing product code", i, ErrInvalidHolding)
		}
	}
	return nil
}

// validateRecommendations validates recommendations and their paired explanations.
func validateRecommendations(recs []model.Recommendation, explanations []model.Explanation) error {
	if recs == nil {
		return fmt.Errorf("%w: recommendations", ErrNilParameter)
	}
	if len(recs) == 0 {
		return fmt.Errorf("%w: recommendations", ErrEmptySlice)
	}
	if len(explanations) != len(recs) {
		return fmt.Errorf("explanations must pair 1:1 with recommendations: %d != %d",
			len(explanations), len(recs))
	}
	for i, r := range recs {
		if strings.TrimSpace(r.CustomerID) == "" {
			return fmt.Errorf("recommendation at index %d: %w: missing customer ID", i, ErrNilParameter)
		}
		if strings.TrimSpace(r.ProductCode) == "" {
			return fmt.Errorf("recommendation at index %d: %w: missing product code", i, ErrNilParameter)
		}
		if r.AcceptanceProb < 0 || r.AcceptanceProb > 1 {
			return fmt.Errorf("recommendation at index %d: %w", i, ErrInvalidProbability)
		}
	}
	return nil
}
