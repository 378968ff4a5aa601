// Package plaid provides a client for importing accounts, transactions,
// and liabilities from the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required")
	}
	if c.Environment != "sandbox" && c.Environment != "production" {
		return fmt.Errorf("invalid Plaid environment: must be sandbox or production")
	}
	return nil
}

// Client wraps the Plaid API for one access token.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	accessToken string
	environment string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		environment: cfg.Environment,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetAccounts fetches the user's accounts.
func (c *Client) GetAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	c.logger.Info("Fetching accounts from Plaid")

	var plaidAccounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.wrapPlaidError(err, "failed to fetch accounts")
		}
		plaidAccounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	accounts := make([]model.Account, 0, len(plaidAccounts))
	for _, pa := range plaidAccounts {
		accounts = append(accounts, mapAccount(pa, userID))
	}

	c.logger.Info("Fetched accounts", "count", len(accounts))
	return accounts, nil
}

// GetTransactions fetches transactions within the date range, paging
// through the full result set.
func (c *Client) GetTransactions(ctx context.Context, userID string, startDate, endDate time.Time) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"))

	var allTransactions []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format("2006-01-02"),
				endDate.Format("2006-01-02"),
			)
			options := plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			}
			request.SetOptions(options)

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.wrapPlaidError(err, "failed to fetch transactions")
			}

			page = resp.GetTransactions()
			return nil
		}, *c.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		allTransactions = append(allTransactions, page...)

		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	c.logger.Info("Fetched all transactions", "count", len(allTransactions))

	transactions := make([]model.Transaction, 0, len(allTransactions))
	for _, pt := range allTransactions {
		transactions = append(transactions, c.mapTransaction(pt, userID))
	}

	return transactions, nil
}

// GetLiabilities fetches credit card liability terms for the user's
// accounts. Accounts without liability data are simply absent.
func (c *Client) GetLiabilities(ctx context.Context, userID string) ([]model.Liability, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	c.logger.Info("Fetching liabilities from Plaid")

	var credit []plaid.CreditCardLiability
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewLiabilitiesGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.LiabilitiesGet(ctx).LiabilitiesGetRequest(*request).Execute()
		if err != nil {
			return c.wrapPlaidError(err, "failed to fetch liabilities")
		}
		credit = resp.GetLiabilities().Credit
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	liabilities := make([]model.Liability, 0, len(credit))
	for _, cc := range credit {
		liability := mapCreditLiability(cc, userID)
		if liability.AccountID == "" {
			continue
		}
		liabilities = append(liabilities, liability)
	}

	c.logger.Info("Fetched liabilities", "count", len(liabilities))
	return liabilities, nil
}

func (c *Client) wrapPlaidError(err error, msg string) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
			c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

// mapAccount converts a Plaid account to our internal model. Plaid does
// not report joint ownership, so all imported accounts default to
// individual holding.
func mapAccount(pa plaid.AccountBase, userID string) model.Account {
	balances := pa.GetBalances()

	return model.Account{
		ID:               pa.GetAccountId(),
		UserID:           userID,
		Name:             pa.GetName(),
		OfficialName:     pa.GetOfficialName(),
		Type:             model.AccountType(pa.GetType()),
		Subtype:          model.AccountSubtype(pa.GetSubtype()),
		HolderCategory:   model.HolderIndividual,
		Currency:         balances.GetIsoCurrencyCode(),
		CurrentBalance:   balances.GetCurrent(),
		AvailableBalance: balances.GetAvailable(),
		CreditLimit:      balances.GetLimit(),
	}
}

// mapTransaction converts a Plaid transaction to our internal model.
// Plaid reports positive amounts for money out; our convention is the
// inverse, so amounts are negated here.
func (c *Client) mapTransaction(pt plaid.Transaction, userID string) model.Transaction {
	date, err := time.Parse("2006-01-02", pt.GetDate())
	if err != nil {
		c.logger.Error("Failed to parse transaction date", "date", pt.GetDate(), "error", err)
		date = time.Now()
	}

	merchantName := pt.GetMerchantName()
	if merchantName == "" {
		merchantName = pt.GetName()
	}
	merchantName = cleanMerchantName(merchantName)

	pfc := pt.GetPersonalFinanceCategory()

	tx := model.Transaction{
		ID:               pt.GetTransactionId(),
		AccountID:        pt.GetAccountId(),
		UserID:           userID,
		Date:             date,
		Name:             pt.GetName(),
		MerchantName:     merchantName,
		MerchantEntityID: pt.GetMerchantEntityId(),
		Amount:           -pt.GetAmount(),
		CategoryPrimary:  pfc.GetPrimary(),
		CategoryDetailed: pfc.GetDetailed(),
		PaymentChannel:   pt.GetPaymentChannel(),
		Pending:          pt.GetPending(),
	}

	tx.Hash = tx.GenerateHash()
	return tx
}

// mapCreditLiability converts Plaid credit card liability terms.
func mapCreditLiability(cc plaid.CreditCardLiability, userID string) model.Liability {
	liability := model.Liability{
		AccountID:         cc.GetAccountId(),
		UserID:            userID,
		MinimumPayment:    cc.GetMinimumPaymentAmount(),
		LastPaymentAmount: cc.GetLastPaymentAmount(),
		IsOverdue:         cc.GetIsOverdue(),
	}

	// Prefer the purchase APR; fall back to the first one reported.
	aprs := cc.GetAprs()
	for _, apr := range aprs {
		if apr.GetAprType() == "purchase_apr" {
			liability.APR = apr.GetAprPercentage()
			break
		}
	}
	if liability.APR == 0 && len(aprs) > 0 {
		liability.APR = aprs[0].GetAprPercentage()
	}
	liability.InterestRate = liability.APR

	if d := cc.GetLastPaymentDate(); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			liability.LastPaymentDate = t
		}
	}
	if d := cc.GetNextPaymentDueDate(); d != "" {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			liability.NextPaymentDueDate = t
		}
	}

	return liability
}

// cleanMerchantName standardizes merchant names: title case, trailing
// reference numbers and corporate suffixes removed.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		if word != "" {
			runes := []rune(word)
			for j := 0; j < len(runes); j++ {
				if j == 0 || !isLetter(runes[j-1]) {
					runes[j] = toUpper(runes[j])
				}
			}
			words[i] = string(runes)
		}
	}
	name = strings.Join(words, " ")

	parts := strings.Fields(name)
	if len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		// A long all-digit tail is probably a reference number.
		if len(lastPart) > 5 && isAllDigits(lastPart) {
			parts = parts[:len(parts)-1]
		}
	}
	name = strings.Join(parts, " ")

	suffixes := []string{
		" Llc",
		" Inc",
		" Corp",
		" Corporation",
		" Company",
		" Co",
		" Ltd",
		" Limited",
	}

	changed := true
	for changed {
		changed = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
