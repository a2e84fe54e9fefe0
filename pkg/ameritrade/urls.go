package ameritrade

import (
	"fmt"
	"net/url"
)

// API endpoints, v1.
const (
	// BaseURL is the REST API origin. Overridable per session for testing.
	BaseURL = "https://api.tdameritrade.com"

	authURL = "https://auth.tdameritrade.com/auth?response_type=code&client_id=%s&redirect_uri=%s"

	apiVersion = "/v1/"
	oauthPath  = apiVersion + "oauth2/token"
)

// accountsPath returns the accounts collection path, or a single account's
// path when id is non-zero.
func accountsPath(id int64) string {
	if id == 0 {
		return apiVersion + "accounts"
	}
	return fmt.Sprintf("%saccounts/%d", apiVersion, id)
}

// ordersPath returns the cross-account orders path when accountID is zero,
// the account's orders collection when orderID is zero, and a single order's
// path otherwise.
func ordersPath(accountID, orderID int64) string {
	if accountID == 0 {
		return apiVersion + "orders"
	}
	p := accountsPath(accountID) + "/orders"
	if orderID == 0 {
		return p
	}
	return fmt.Sprintf("%s/%d", p, orderID)
}

func preferencesPath(accountID int64) string {
	return accountsPath(accountID) + "/preferences"
}

func savedOrdersPath(accountID, savedOrderID int64) string {
	p := accountsPath(accountID) + "/savedorders"
	if savedOrderID == 0 {
		return p
	}
	return fmt.Sprintf("%s/%d", p, savedOrderID)
}

func transactionsPath(accountID, transactionID int64) string {
	p := accountsPath(accountID) + "/transactions"
	if transactionID == 0 {
		return p
	}
	return fmt.Sprintf("%s/%d", p, transactionID)
}

func userPrincipalsPath(subscriptionKeys bool) string {
	p := apiVersion + "userprincipals"
	if subscriptionKeys {
		p += "/streamersubscriptionkeys"
	}
	return p
}

func watchlistsPath(accountID, watchlistID int64) string {
	if accountID == 0 {
		return accountsPath(0) + "/watchlists"
	}
	p := accountsPath(accountID) + "/watchlists"
	if watchlistID == 0 {
		return p
	}
	return fmt.Sprintf("%s/%d", p, watchlistID)
}

// quotesPath returns the quote path for one symbol, or the multi-symbol
// quotes path when symbol is empty.
func quotesPath(symbol string) string {
	if symbol == "" {
		return apiVersion + "marketdata/quotes"
	}
	return apiVersion + "marketdata/" + url.PathEscape(symbol) + "/quotes"
}

func historicalsPath(symbol string) string {
	return apiVersion + "marketdata/" + url.PathEscape(symbol) + "/pricehistory"
}
