package rakuten

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Affiliate API endpoints. Tests override the per-client copies.
const (
	defaultIchibaURL = "https://app.rakuten.co.jp/services/api/IchibaItem/Search/20220601"
	defaultBooksURL  = "https://app.rakuten.co.jp/services/api/BooksBook/Search/20170404"
	defaultGamesURL  = "https://app.rakuten.co.jp/services/api/BooksGame/Search/20170404"
	defaultHotelURL  = "https://app.rakuten.co.jp/services/api/Travel/HotelRanking/20170426"

	defaultHits = 5
)

// ErrKeywordRequired is returned before any network call when the search
// keyword is empty.
var ErrKeywordRequired = errors.New("keyword required")

// Item is the normalized search result shared by all providers.
type Item struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Price int    `json:"price"`
}

// Hotel is one entry of the travel ranking.
type Hotel struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MinCharge int    `json:"min_charge"`
}

// Client calls the affiliate search APIs. All methods honor the request
// context and the configured timeout; none of them are used on the hot path
// of the points ledger.
type Client struct {
	appID      string
	httpClient *http.Client

	ichibaURL string
	booksURL  string
	gamesURL  string
	hotelURL  string
}

// NewClient builds a client for the given affiliate application id.
func NewClient(appID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		appID:      appID,
		httpClient: &http.Client{Timeout: timeout},
		ichibaURL:  defaultIchibaURL,
		booksURL:   defaultBooksURL,
		gamesURL:   defaultGamesURL,
		hotelURL:   defaultHotelURL,
	}
}

// upstream items come wrapped per element: {"Items":[{"Item":{...}}]}
type itemEnvelope struct {
	Items []struct {
		Item rawItem `json:"Item"`
	} `json:"Items"`
}

// rawItem covers the field variants the providers use. The games API mixes
// book-style and marketplace-style fields, so normalization prefers the
// explicit item name/price and falls back to title/price.
type rawItem struct {
	ItemName  string      `json:"itemName"`
	Title     string      `json:"title"`
	ItemURL   string      `json:"itemUrl"`
	ItemPrice json.Number `json:"itemPrice"`
	Price     json.Number `json:"price"`
}

func (r rawItem) normalize() Item {
	name := r.ItemName
	if name == "" {
		name = r.Title
	}
	price := numberToInt(r.ItemPrice)
	if price == 0 {
		price = numberToInt(r.Price)
	}
	return Item{Name: name, URL: r.ItemURL, Price: price}
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	v, err := n.Int64()
	if err != nil {
		// some payloads carry prices as floats
		if f, ferr := n.Float64(); ferr == nil {
			return int(f)
		}
		return 0
	}
	return int(v)
}

// SearchIchiba queries the marketplace item search by keyword.
func (c *Client) SearchIchiba(ctx context.Context, keyword string, hits int) ([]Item, error) {
	return c.searchItems(ctx, c.ichibaURL, "keyword", keyword, hits)
}

// SearchBooks queries the book search by title.
func (c *Client) SearchBooks(ctx context.Context, keyword string, hits int) ([]Item, error) {
	return c.searchItems(ctx, c.booksURL, "title", keyword, hits)
}

// SearchGames queries the game search by title.
func (c *Client) SearchGames(ctx context.Context, keyword string, hits int) ([]Item, error) {
	return c.searchItems(ctx, c.gamesURL, "title", keyword, hits)
}

func (c *Client) searchItems(ctx context.Context, endpoint, keywordParam, keyword string, hits int) ([]Item, error) {
	if keyword == "" {
		return []Item{}, ErrKeywordRequired
	}
	if hits <= 0 {
		hits = defaultHits
	}

	params := url.Values{}
	params.Set("applicationId", c.appID)
	params.Set(keywordParam, keyword)
	params.Set("format", "json")
	params.Set("hits", strconv.Itoa(hits))

	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return []Item{}, err
	}

	var envelope itemEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return []Item{}, fmt.Errorf("unexpected response payload: %w", err)
	}

	items := make([]Item, 0, len(envelope.Items))
	for _, wrapped := range envelope.Items {
		items = append(items, wrapped.Item.normalize())
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api request failed: status=%d", resp.StatusCode)
	}
	return body, nil
}
