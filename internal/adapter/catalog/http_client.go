package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-service/internal/core/domain"
)

const (
	DefaultTimeout  = 3 * time.Second
	productPath     = "/api/v1/products/"
	maxResponseSize = 1 << 20
)

var ErrInvalidResponse = errors.New("invalid product service response")

// apiResponse is the envelope every product service endpoint returns.
type apiResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *productData `json:"data"`
}

type productData struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	ImageURL string           `json:"imageUrl"`
	Status   string           `json:"status"`
}

// HTTPClient looks up products in the product service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a client bounded by timeout per call. A nil
// httpClient uses a fresh http.Client.
func NewHTTPClient(baseURL string, timeout time.Duration, httpClient *http.Client) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := *httpClient
	c.Timeout = timeout

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &c,
	}
}

func (c *HTTPClient) Product(ctx context.Context, productID string) (domain.Product, error) {
	endpoint := c.baseURL + productPath + url.PathEscape(productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return domain.Product{}, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return body.product()
}

func (r apiResponse) product() (domain.Product, error) {
	switch {
	case !r.Success:
		return domain.Product{}, fmt.Errorf("%w: success=false: %s", ErrInvalidResponse, r.Message)
	case r.Data == nil:
		return domain.Product{}, fmt.Errorf("%w: missing data", ErrInvalidResponse)
	case strings.TrimSpace(r.Data.Name) == "":
		return domain.Product{}, fmt.Errorf("%w: missing name", ErrInvalidResponse)
	case r.Data.Price == nil:
		return domain.Product{}, fmt.Errorf("%w: missing price", ErrInvalidResponse)
	case r.Data.Price.IsNegative():
		return domain.Product{}, fmt.Errorf("%w: negative price", ErrInvalidResponse)
	}

	return domain.Product{
		ID:       r.Data.ID,
		Name:     r.Data.Name,
		Price:    *r.Data.Price,
		ImageURL: r.Data.ImageURL,
		Status:   r.Data.Status,
	}, nil
}
