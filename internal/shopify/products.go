package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	minPageSize = 1
	maxPageSize = 250

	accessTokenHeader = "X-Shopify-Access-Token"
)

// productFields limits catalog reads to what the app actually renders.
const productFields = "id,title,image,images"

// Image is a product image reference.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// Product is one catalog record, trimmed to the requested fields.
type Product struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Image  *Image  `json:"image,omitempty"`
	Images []Image `json:"images,omitempty"`
}

// ProductPage is one page of catalog records plus the cursor for the next
// page, empty when this was the last one.
type ProductPage struct {
	Products     []Product `json:"products"`
	NextPageInfo string    `json:"next_page_info,omitempty"`
}

// FetchPage fetches one page of products for a shop. pageInfo is the opaque
// cursor from a previous page (empty for the first page); limit is clamped
// to [1, 250].
func (a *API) FetchPage(ctx context.Context, shop string, pageInfo string, limit int) (*ProductPage, error) {
	sess, err := a.sessions.Get(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionMissing
	}

	if limit < minPageSize {
		limit = minPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("fields", productFields)
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	}

	resp, err := a.client.Do(ctx, Request{
		Method:  "GET",
		URL:     a.shopURL(shop, a.adminPath("products.json")) + "?" + q.Encode(),
		Headers: map[string]string{accessTokenHeader: sess.AccessToken},
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Products []Product `json:"products"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode products response: %w", err)
	}

	return &ProductPage{
		Products:     body.Products,
		NextPageInfo: nextPageInfo(resp.Headers.Get("Link")),
	}, nil
}

// FetchAll follows the pagination cursor until it runs out, aggregating
// records in arrival order. The context is checked between pages so a
// disconnected caller stops the loop.
func (a *API) FetchAll(ctx context.Context, shop string) ([]Product, error) {
	var all []Product
	pageInfo := ""
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		page, err := a.FetchPage(ctx, shop, pageInfo, maxPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Products...)
		if page.NextPageInfo == "" {
			return all, nil
		}
		pageInfo = page.NextPageInfo
	}
}

// nextPageInfo extracts the page_info cursor from the entry marked
// rel="next" in a Link pagination header, e.g.
//
//	<https://x.myshopify.com/admin/api/2024-07/products.json?page_info=abc&limit=50>; rel="next"
func nextPageInfo(linkHeader string) string {
	for _, entry := range strings.Split(linkHeader, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			continue
		}
		if !strings.Contains(parts[1], `rel="next"`) {
			continue
		}
		raw := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}
