package petstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pet-owner-reports/internal/domain/owners"
	"pet-owner-reports/internal/domain/pets"
	"pet-owner-reports/internal/platform/httpclient"

	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured = errors.New("petstore client not configured")
	ErrNotFound      = errors.New("petstore: not found")
	ErrUpstream      = errors.New("petstore upstream error")
)

type Config struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit en requests/segundo hacia el servicio (0 = sin límite).
	RateLimit float64
	// Burst del token bucket. Si es 0 se usa 1.
	Burst int
}

// Client consume el servicio de dueños/mascotas.
// Los listados se decodifican elemento a elemento (ver httpclient.StreamArray).
type Client struct {
	http    *httpclient.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}

	hc, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{http: hc}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

func (c *Client) StreamOwners(ctx context.Context, fn func(owners.Owner) error) error {
	return c.stream(ctx, "/owners", func(raw json.RawMessage) error {
		var r owners.OwnerResponse
		if err := json.Unmarshal(raw, &r); err != nil {
			return fmt.Errorf("%w: invalid owner json: %v", ErrUpstream, err)
		}
		return fn(owners.FromResponse(r))
	})
}

func (c *Client) StreamPets(ctx context.Context, fn func(pets.Pet) error) error {
	return c.stream(ctx, "/pets", func(raw json.RawMessage) error {
		p, err := decodePet(raw)
		if err != nil {
			return err
		}
		return fn(p)
	})
}

func (c *Client) StreamPetIDsByOwner(ctx context.Context, ownerID int64, fn func(int64) error) error {
	return c.stream(ctx, fmt.Sprintf("/pets/owner/%d", ownerID), func(raw json.RawMessage) error {
		var id int64
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("%w: invalid pet id json: %v", ErrUpstream, err)
		}
		return fn(id)
	})
}

func (c *Client) PetByID(ctx context.Context, id int64) (pets.Pet, error) {
	return c.getPet(ctx, fmt.Sprintf("/pets/%d", id))
}

// PetByIDUnreliable usa el endpoint con retardo/fallas aleatorias.
// No reintenta: eso lo decide quien llama (ver retry.Policy).
func (c *Client) PetByIDUnreliable(ctx context.Context, id int64) (pets.Pet, error) {
	return c.getPet(ctx, fmt.Sprintf("/pets/delay/%d", id))
}

func (c *Client) getPet(ctx context.Context, path string) (pets.Pet, error) {
	if err := c.wait(ctx); err != nil {
		return pets.Pet{}, err
	}

	var raw json.RawMessage
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return pets.Pet{}, classify(path, err)
	}
	return decodePet(raw)
}

func (c *Client) stream(ctx context.Context, path string, fn func(json.RawMessage) error) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	// separar errores del callback (del caller) de errores de transporte
	var cbErr error
	err := c.http.StreamArray(ctx, path, func(raw json.RawMessage) error {
		if err := fn(raw); err != nil {
			cbErr = err
			return err
		}
		return nil
	})
	if cbErr != nil {
		return cbErr
	}
	if err != nil {
		return classify(path, err)
	}
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case httpclient.StatusCode(err) == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	default:
		return fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}
}

func decodePet(raw json.RawMessage) (pets.Pet, error) {
	var r pets.PetResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return pets.Pet{}, fmt.Errorf("%w: invalid pet json: %v", ErrUpstream, err)
	}
	p, err := pets.FromResponse(r)
	if err != nil {
		return pets.Pet{}, fmt.Errorf("%w: invalid pet birth_date %q: %v", ErrUpstream, r.BirthDate, err)
	}
	return p, nil
}
