// Package shipping books shipments and tracks parcels through the DHL
// Express REST API.
package shipping

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/pkg/breaker"
	"storefront/pkg/log"
)

// Address is a shipment endpoint.
type Address struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Shipment is a booked shipment.
type Shipment struct {
	TrackingNumber string `json:"tracking_number"`
	LabelURL       string `json:"label_url"`
}

// TrackingEvent is one scan in a parcel's journey.
type TrackingEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	StatusCode  string    `json:"status_code"`
}

// Client shipping carrier client interface
type Client interface {
	// CreateShipment books a shipment and returns the tracking number and
	// label download URL.
	CreateShipment(ctx context.Context, orderNo string, from, to Address, weightKg float64) (*Shipment, error)

	// Track returns the scan history for a tracking number.
	Track(ctx context.Context, trackingNumber string) ([]TrackingEvent, error)
}

type dhlClient struct {
	baseURL string
	auth    string
	http    *http.Client
	cb      *breaker.CircuitBreaker
}

// NewDHLClient creates a DHL Express client using basic auth credentials.
func NewDHLClient(cfg *config.ShippingConfig) Client {
	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
	return &dhlClient{
		baseURL: cfg.BaseURL,
		auth:    "Basic " + credentials,
		http:    &http.Client{Timeout: cfg.Timeout},
		cb: breaker.NewCircuitBreaker("shipping", breaker.Config{
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
		}),
	}
}

// CreateShipment books a shipment
func (c *dhlClient) CreateShipment(ctx context.Context, orderNo string, from, to Address, weightKg float64) (*Shipment, error) {
	body := map[string]interface{}{
		"customerReference": orderNo,
		"shipper":           from,
		"receiver":          to,
		"packages": []map[string]interface{}{
			{"weight": weightKg},
		},
	}

	var raw struct {
		ShipmentTrackingNumber string `json:"shipmentTrackingNumber"`
		Documents              []struct {
			URL string `json:"url"`
		} `json:"documents"`
	}

	err := c.cb.Execute(ctx, func() error {
		return c.do(ctx, http.MethodPost, "/shipments", body, &raw)
	})
	if err != nil {
		log.WithFields(map[string]interface{}{
			"order_no": orderNo,
			"error":    err.Error(),
		}).Error("Shipment booking failed")
		return nil, err
	}

	shipment := &Shipment{TrackingNumber: raw.ShipmentTrackingNumber}
	if len(raw.Documents) > 0 {
		shipment.LabelURL = raw.Documents[0].URL
	}
	return shipment, nil
}

// Track returns the scan history for a tracking number
func (c *dhlClient) Track(ctx context.Context, trackingNumber string) ([]TrackingEvent, error) {
	var raw struct {
		Shipments []struct {
			Events []struct {
				Date        string `json:"date"`
				Time        string `json:"time"`
				TypeCode    string `json:"typeCode"`
				Description string `json:"description"`
				Location    struct {
					Address struct {
						AddressLocality string `json:"addressLocality"`
					} `json:"address"`
				} `json:"serviceArea"`
			} `json:"events"`
		} `json:"shipments"`
	}

	path := "/tracking?shipmentTrackingNumber=" + trackingNumber
	err := c.cb.Execute(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, &raw)
	})
	if err != nil {
		return nil, err
	}

	if len(raw.Shipments) == 0 {
		return nil, fmt.Errorf("no tracking data for %s", trackingNumber)
	}

	events := make([]TrackingEvent, 0, len(raw.Shipments[0].Events))
	for _, e := range raw.Shipments[0].Events {
		ts, _ := time.Parse("2006-01-02 15:04:05", e.Date+" "+e.Time)
		events = append(events, TrackingEvent{
			Timestamp:   ts,
			Location:    e.Location.Address.AddressLocality,
			Description: e.Description,
			StatusCode:  e.TypeCode,
		})
	}
	return events, nil
}

func (c *dhlClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("carrier returned %d: %s", resp.StatusCode, string(data))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
