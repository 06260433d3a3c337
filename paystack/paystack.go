package paystack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Apetorku/StayGlobal-sub001/services"
)

// Paystack configuration via environment variables
// PAYSTACK_SECRET_KEY, PAYSTACK_BASE_URL (optional)

const defaultBaseURL = "https://api.paystack.co"

// Client talks to the Paystack REST API. All calls are bounded by the HTTP
// client timeout and are never retried here; callers re-verify idempotently
// by reference.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient() *Client {
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) call(method, path string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("paystack: unexpected response (%d): %s", res.StatusCode, string(raw))
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 || !envelope.Status {
		return nil, fmt.Errorf("paystack: %s (%d)", envelope.Message, res.StatusCode)
	}
	return envelope.Data, nil
}

type initializePayload struct {
	Email             string `json:"email"`
	Amount            int64  `json:"amount"` // smallest currency unit
	Currency          string `json:"currency"`
	Reference         string `json:"reference"`
	Subaccount        string `json:"subaccount,omitempty"`
	TransactionCharge int64  `json:"transaction_charge,omitempty"`
	Bearer            string `json:"bearer,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Initialize requests an authorization handle for a charge, optionally split
// with an owner subaccount.
func (c *Client) Initialize(req services.InitializeRequest) (*services.InitializeResult, error) {
	payload := initializePayload{
		Email:     req.Email,
		Amount:    req.AmountMinor,
		Currency:  req.Currency,
		Reference: req.Reference,
	}
	if req.Split != nil {
		payload.Subaccount = req.Split.SubaccountCode
		payload.TransactionCharge = req.Split.TransactionChargeMinor
		payload.Bearer = req.Split.Bearer
	}

	data, err := c.call(http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var parsed initializeData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return &services.InitializeResult{
		AuthorizationURL: parsed.AuthorizationURL,
		AccessCode:       parsed.AccessCode,
		Reference:        parsed.Reference,
	}, nil
}

type verifyData struct {
	Status string `json:"status"`
	Amount int64  `json:"amount"`
	PaidAt string `json:"paid_at"`
}

// Verify fetches the final status of a transaction by reference.
func (c *Client) Verify(reference string) (*services.VerifyResult, error) {
	data, err := c.call(http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var parsed verifyData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	paidAt, _ := time.Parse(time.RFC3339, parsed.PaidAt)
	return &services.VerifyResult{
		Status:      parsed.Status,
		AmountMinor: parsed.Amount,
		PaidAt:      paidAt,
	}, nil
}

type subaccountPayload struct {
	BusinessName     string  `json:"business_name"`
	SettlementBank   string  `json:"settlement_bank"`
	AccountNumber    string  `json:"account_number"`
	PercentageCharge float64 `json:"percentage_charge"`
}

type subaccountData struct {
	SubaccountCode string `json:"subaccount_code"`
}

// CreateSubaccount registers an owner's payout destination. percentageCharge
// is the platform's share on split transactions.
func (c *Client) CreateSubaccount(businessName, bankCode, accountNumber string, percentageCharge float64) (string, error) {
	data, err := c.call(http.MethodPost, "/subaccount", subaccountPayload{
		BusinessName:     businessName,
		SettlementBank:   bankCode,
		AccountNumber:    accountNumber,
		PercentageCharge: percentageCharge,
	})
	if err != nil {
		return "", err
	}

	var parsed subaccountData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", err
	}
	return parsed.SubaccountCode, nil
}
