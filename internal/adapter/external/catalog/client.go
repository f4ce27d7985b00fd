package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/domain"
	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/pkg/config"
)

const defaultTimeout = 3 * time.Second

var errNotFound = errors.New("not found")

// client fetches JSON resources by id from an upstream service. Calls go
// through a circuit breaker; a 404 is an answer, not a failure.
type client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	log        *zap.Logger
}

func newClient(name, baseURL string, timeout time.Duration, cbCfg config.CircuitBreakerConfig, log *zap.Logger) *client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb:         newBreaker(name, cbCfg, log),
		log:        log,
	}
}

func newBreaker(name string, cfg config.CircuitBreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	maxRequests := uint32(3)
	if cfg.MaxRequests > 0 {
		maxRequests = uint32(cfg.MaxRequests)
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
	})
}

// get decodes GET {baseURL}/{id} into out. It returns errNotFound on 404.
func (c *client) get(ctx context.Context, id string, out interface{}) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, errNotFound
		case resp.StatusCode >= 300:
			return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Warn("Catalog call short-circuited", zap.String("url", c.baseURL), zap.String("id", id))
	}
	return err
}

// HTTPVehicleCatalog resolves vehicles and their rate plans over HTTP.
type HTTPVehicleCatalog struct {
	c *client
}

func NewHTTPVehicleCatalog(cfg config.CatalogConfig, cbCfg config.CircuitBreakerConfig, log *zap.Logger) *HTTPVehicleCatalog {
	return &HTTPVehicleCatalog{c: newClient("vehicle-catalog", cfg.VehicleURL, cfg.Timeout, cbCfg, log)}
}

var _ ports.VehicleCatalog = (*HTTPVehicleCatalog)(nil)

func (v *HTTPVehicleCatalog) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	if err := v.c.get(ctx, id, &vehicle); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("vehicle catalog: %w", err)
	}
	return &vehicle, nil
}

// HTTPCustomerDirectory resolves customers over HTTP.
type HTTPCustomerDirectory struct {
	c *client
}

func NewHTTPCustomerDirectory(cfg config.CatalogConfig, cbCfg config.CircuitBreakerConfig, log *zap.Logger) *HTTPCustomerDirectory {
	return &HTTPCustomerDirectory{c: newClient("customer-directory", cfg.CustomerURL, cfg.Timeout, cbCfg, log)}
}

var _ ports.CustomerDirectory = (*HTTPCustomerDirectory)(nil)

func (d *HTTPCustomerDirectory) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := d.c.get(ctx, id, &customer); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("customer directory: %w", err)
	}
	return &customer, nil
}
