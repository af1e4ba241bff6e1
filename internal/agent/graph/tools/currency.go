package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	errx "github.com/tripgenie/agent-server/internal/core/error"
)

// ===================================
// Currency Conversion Tool
// ===================================

const currencyService = "exchangerate"

// maxErrorBody caps how much of a failed provider body ends up in an error.
const maxErrorBody = 512

type ConvertCurrencyInput struct {
	Amount       float64 `json:"amount"`
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
}

type ratesResponse struct {
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// CurrencyClient fetches live rates from an ExchangeRate-API style provider:
// GET {base}/{apiKey}/latest/{FROM} -> {"conversion_rates": {"EUR": 0.92, ...}}.
// Every call is a fresh round trip.
type CurrencyClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewCurrencyClient(httpClient *http.Client, baseURL, apiKey string) *CurrencyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CurrencyClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Rates returns the conversion table keyed by target currency code.
func (c *CurrencyClient) Rates(ctx context.Context, from string) (map[string]float64, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(from))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build currency request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errx.Provider(currencyService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errx.Provider(currencyService, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errx.ProviderStatus(currencyService, resp.StatusCode, truncate(string(body), maxErrorBody))
	}

	var data ratesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errx.Provider(currencyService, fmt.Errorf("decode rates: %w", err))
	}
	if data.ConversionRates == nil {
		return nil, errx.Provider(currencyService, fmt.Errorf("invalid response: conversion_rates missing"))
	}
	return data.ConversionRates, nil
}

// Convert returns amount * rate(from -> to).
func (c *CurrencyClient) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rates, err := c.Rates(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := rates[to]
	if !ok {
		return 0, errx.Lookup(fmt.Sprintf("%s not found in exchange rates", to))
	}
	return amount * rate, nil
}

func createConvertCurrencyTool(c *CurrencyClient) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolConvertCurrency,
			Desc: "Convert an amount from one currency to another using live exchange rates. Use it for every cost figure the user needs in a different currency.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount": {
					Type:     schema.Number,
					Desc:     "The amount to convert; must be positive",
					Required: true,
				},
				"from_currency": {
					Type:     schema.String,
					Desc:     "ISO 4217 code of the source currency, e.g. USD",
					Required: true,
				},
				"to_currency": {
					Type:     schema.String,
					Desc:     "ISO 4217 code of the target currency, e.g. EUR",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *ConvertCurrencyInput) (float64, error) {
			if in.Amount <= 0 {
				return 0, errx.ToolArguments(ToolConvertCurrency, "amount must be positive")
			}
			if in.FromCurrency == "" || in.ToCurrency == "" {
				return 0, errx.ToolArguments(ToolConvertCurrency, "from_currency and to_currency are required")
			}
			return c.Convert(ctx, in.Amount, in.FromCurrency, in.ToCurrency)
		},
	)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
