package feed

import (
	"context"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"spendsync/internal/engine"
)

// plaidAPI calls the real Plaid endpoints.
type plaidAPI struct {
	client *plaid.APIClient
}

func (p plaidAPI) sync(ctx context.Context, token, cursor string, count int32) (syncPage, error) {
	req := plaid.NewTransactionsSyncRequest(token)
	if cursor != "" {
		req.SetCursor(cursor)
	}
	req.SetCount(count)

	resp, _, err := p.client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*req).Execute()
	if err != nil {
		return syncPage{}, err
	}

	page := syncPage{
		nextCursor: resp.GetNextCursor(),
		hasMore:    resp.GetHasMore(),
	}
	for _, t := range resp.GetAdded() {
		page.added = append(page.added, fromPlaid(t))
	}
	for _, t := range resp.GetModified() {
		page.modified = append(page.modified, fromPlaid(t))
	}
	for _, r := range resp.GetRemoved() {
		page.removed = append(page.removed, r.GetTransactionId())
	}
	return page, nil
}

func (p plaidAPI) list(ctx context.Context, token string, start, end time.Time, offset, count int32) ([]rawTransaction, int32, error) {
	req := plaid.NewTransactionsGetRequest(token, start.Format(dateLayout), end.Format(dateLayout))
	opts := plaid.NewTransactionsGetRequestOptions()
	opts.SetCount(count)
	opts.SetOffset(offset)
	req.SetOptions(*opts)

	resp, _, err := p.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*req).Execute()
	if err != nil {
		return nil, 0, err
	}
	txs := make([]rawTransaction, 0, len(resp.GetTransactions()))
	for _, t := range resp.GetTransactions() {
		txs = append(txs, fromPlaid(t))
	}
	return txs, resp.GetTotalTransactions(), nil
}

func (p plaidAPI) linkToken(ctx context.Context, lr linkRequest) (string, error) {
	req := plaid.NewLinkTokenCreateRequest(
		lr.clientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		plaid.LinkTokenCreateRequestUser{ClientUserId: lr.userID},
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	if lr.webhook != "" {
		req.SetWebhook(lr.webhook)
	}
	if lr.redirectURI != "" {
		req.SetRedirectUri(lr.redirectURI)
	}

	resp, _, err := p.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", err
	}
	return resp.GetLinkToken(), nil
}

func (p plaidAPI) exchange(ctx context.Context, publicToken string) (engine.Link, error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := p.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return engine.Link{}, err
	}
	return engine.Link{AccessToken: resp.GetAccessToken(), ItemID: resp.GetItemId()}, nil
}

func fromPlaid(t plaid.Transaction) rawTransaction {
	raw := rawTransaction{
		id:       t.GetTransactionId(),
		amount:   t.GetAmount(),
		date:     t.GetDate(),
		merchant: t.GetMerchantName(),
		name:     t.GetName(),
		pending:  t.GetPending(),
	}
	if pfc, ok := t.GetPersonalFinanceCategoryOk(); ok && pfc != nil {
		raw.category = pfc.GetPrimary()
	}
	return raw
}
