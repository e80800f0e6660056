package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/placehub/placehub/internal/domain/place"
)

// ErrNotFound means the address did not resolve to any coordinates.
var ErrNotFound = errors.New("address could not be resolved")

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		// a hung geocoder must not stall the request forever
		httpc: &http.Client{Timeout: 5 * time.Second},
	}
}

// response shape of the Google geocoding API; we only read the first result.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *Client) Resolve(ctx context.Context, address string) (place.Location, error) {
	endpoint := c.baseURL + "/maps/api/geocode/json?address=" + url.QueryEscape(address) + "&key=" + url.QueryEscape(c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)

	if err != nil {
		return place.Location{}, err
	}

	resp, err := c.httpc.Do(req)

	if err != nil {
		return place.Location{}, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return place.Location{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body geocodeResponse

	err = json.NewDecoder(resp.Body).Decode(&body)

	if err != nil {
		return place.Location{}, err
	}

	if body.Status == "ZERO_RESULTS" || len(body.Results) == 0 {
		return place.Location{}, ErrNotFound
	}

	loc := body.Results[0].Geometry.Location

	return place.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
}
