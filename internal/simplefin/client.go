// Package simplefin imports financial data over the SimpleFIN bridge
// protocol. SimpleFIN is a read-only aggregation protocol: a one-time
// claim token is exchanged for a long-lived access URL, and all data is
// fetched from that URL with no further credentials.
//
// SimpleFIN amounts are signed decimal strings with negative values for
// outflows, which matches the local convention, so amounts pass through
// without negation.
package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Client fetches accounts and transactions from a SimpleFIN bridge.
type Client struct {
	accessURL  string
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  service.RetryOptions
}

// accountSet is the top-level response from the /accounts endpoint.
type accountSet struct {
	Accounts []account `json:"accounts"`
}

type account struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Currency         string        `json:"currency"`
	Balance          string        `json:"balance"`
	AvailableBalance string        `json:"available-balance"`
	Transactions     []transaction `json:"transactions"`
}

type transaction struct {
	ID          string `json:"id"`
	Posted      int64  `json:"posted"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Pending     bool   `json:"pending"`
}

// NewClient creates a SimpleFIN client, claiming the token for an access
// URL on first use and reusing the saved access URL afterwards.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("SimpleFIN token is required")
	}

	auth, err := loadOrClaimAuth(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with SimpleFIN: %w", err)
	}

	return &Client{
		accessURL: auth.AccessURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "simplefin"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetAccounts fetches all accounts visible through the access URL.
func (c *Client) GetAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	set, err := c.fetchAccountSet(ctx, nil)
	if err != nil {
		return nil, err
	}

	accounts := make([]model.Account, 0, len(set.Accounts))
	for _, a := range set.Accounts {
		accounts = append(accounts, c.mapAccount(a, userID))
	}

	c.logger.Info("Fetched accounts from SimpleFIN", "count", len(accounts))
	return accounts, nil
}

// GetTransactions fetches posted transactions in the date range. Pending
// transactions are skipped since their amounts and dates can still change.
func (c *Client) GetTransactions(ctx context.Context, userID string, startDate, endDate time.Time) ([]model.Transaction, error) {
	params := url.Values{}
	params.Set("start-date", strconv.FormatInt(startDate.Unix(), 10))
	// The SimpleFIN end-date is exclusive.
	params.Set("end-date", strconv.FormatInt(endDate.AddDate(0, 0, 1).Unix(), 10))

	set, err := c.fetchAccountSet(ctx, params)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	for _, a := range set.Accounts {
		for _, tx := range a.Transactions {
			if tx.Pending {
				continue
			}

			date := time.Unix(tx.Posted, 0)
			if date.Before(startDate) || date.After(endDate.AddDate(0, 0, 1)) {
				continue
			}

			mapped, err := c.mapTransaction(tx, a.ID, userID, date)
			if err != nil {
				c.logger.Error("Skipping unparseable transaction",
					"transaction_id", tx.ID,
					"error", err)
				continue
			}
			transactions = append(transactions, mapped)
		}
	}

	c.logger.Info("Fetched transactions from SimpleFIN",
		"count", len(transactions),
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"))

	return transactions, nil
}

// GetLiabilities returns nothing: the SimpleFIN protocol does not expose
// APRs, minimum payments, or due dates.
func (c *Client) GetLiabilities(_ context.Context, _ string) ([]model.Liability, error) {
	return nil, nil
}

// fetchAccountSet performs one GET against the /accounts endpoint with
// retry on transient failures.
func (c *Client) fetchAccountSet(ctx context.Context, params url.Values) (*accountSet, error) {
	u, err := url.Parse(c.accessURL + "/accounts")
	if err != nil {
		return nil, fmt.Errorf("failed to parse access URL: %w", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var set *accountSet
	err = common.WithRetry(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if reqErr != nil {
			return &common.RetryableError{Err: reqErr, Retryable: false}
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return fmt.Errorf("failed to fetch SimpleFIN data: %w", doErr)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			apiErr := fmt.Errorf("SimpleFIN API error: %d - %s", resp.StatusCode, string(body))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return apiErr
			}
			return &common.RetryableError{Err: apiErr, Retryable: false}
		}

		var decoded accountSet
		if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr != nil {
			return &common.RetryableError{
				Err:       fmt.Errorf("failed to decode SimpleFIN response: %w", decodeErr),
				Retryable: false,
			}
		}
		set = &decoded
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	return set, nil
}

func (c *Client) mapAccount(a account, userID string) model.Account {
	current, err := parseAmount(a.Balance)
	if err != nil {
		c.logger.Error("Failed to parse account balance",
			"account_id", a.ID,
			"error", err)
	}
	available := current
	if a.AvailableBalance != "" {
		if parsed, err := parseAmount(a.AvailableBalance); err == nil {
			available = parsed
		}
	}

	accountType, subtype := classifyAccount(a.Name, current)

	return model.Account{
		ID:               a.ID,
		UserID:           userID,
		Name:             a.Name,
		Type:             accountType,
		Subtype:          subtype,
		HolderCategory:   model.HolderIndividual,
		Currency:         a.Currency,
		CurrentBalance:   current,
		AvailableBalance: available,
		CreatedAt:        time.Now(),
	}
}

func (c *Client) mapTransaction(tx transaction, accountID, userID string, date time.Time) (model.Transaction, error) {
	amount, err := parseAmount(tx.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to parse amount %q: %w", tx.Amount, err)
	}

	merchantName := normalizeMerchant(tx.Payee)
	if merchantName == "" {
		merchantName = normalizeMerchant(tx.Description)
	}

	mapped := model.Transaction{
		ID:             fmt.Sprintf("%s_%s", accountID, tx.ID),
		AccountID:      accountID,
		UserID:         userID,
		Date:           date,
		Name:           tx.Description,
		MerchantName:   merchantName,
		Amount:         amount,
		PaymentChannel: "other",
	}
	mapped.Hash = mapped.GenerateHash()

	return mapped, nil
}

// classifyAccount guesses the account type from its name. SimpleFIN does
// not carry a type field, so the name is the only hint available.
func classifyAccount(name string, balance float64) (model.AccountType, model.AccountSubtype) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "credit") || strings.Contains(lower, "card"):
		return model.AccountTypeCredit, model.SubtypeCreditCard
	case strings.Contains(lower, "saving"):
		return model.AccountTypeDepository, model.SubtypeSavings
	case strings.Contains(lower, "money market"):
		return model.AccountTypeDepository, model.SubtypeMoneyMarket
	case strings.Contains(lower, "hsa") || strings.Contains(lower, "health savings"):
		return model.AccountTypeDepository, model.SubtypeHSA
	case strings.Contains(lower, "mortgage"):
		return model.AccountTypeLoan, model.SubtypeMortgage
	case strings.Contains(lower, "loan") && balance < 0:
		return model.AccountTypeLoan, model.SubtypeAuto
	default:
		return model.AccountTypeDepository, model.SubtypeChecking
	}
}

// parseAmount converts a SimpleFIN decimal amount string to a float64.
func parseAmount(amountStr string) (float64, error) {
	if amountStr == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(amountStr, 64)
}

// normalizeMerchant trims corporate suffixes and title-cases the name.
func normalizeMerchant(raw string) string {
	merchant := strings.TrimSpace(raw)
	if merchant == "" {
		return ""
	}

	upper := strings.ToUpper(merchant)
	for _, suffix := range []string{" LLC", " INC", " CORP", " CO"} {
		if strings.HasSuffix(upper, suffix) {
			merchant = merchant[:len(merchant)-len(suffix)]
			break
		}
	}

	words := strings.Fields(strings.ToLower(merchant))
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}

	return strings.Join(words, " ")
}

// claimToken exchanges a base64-encoded claim token for an access URL.
func claimToken(token string) (string, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		decodedBytes, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return "", fmt.Errorf("failed to decode SimpleFIN token: %w", err)
		}
	}

	claimURL := string(decodedBytes)
	if !strings.HasPrefix(claimURL, "http://") && !strings.HasPrefix(claimURL, "https://") {
		return "", fmt.Errorf("decoded token is not a valid URL: %s", claimURL)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest(http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim access URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to claim SimpleFIN access: %d - %s", resp.StatusCode, string(body))
	}

	accessURLBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read access URL: %w", err)
	}

	accessURL := strings.TrimSpace(string(accessURLBytes))
	if !strings.HasPrefix(accessURL, "http://") && !strings.HasPrefix(accessURL, "https://") {
		return "", fmt.Errorf("invalid access URL received: %s", accessURL)
	}

	return accessURL, nil
}
