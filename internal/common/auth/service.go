// internal/common/auth/service.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"talent-platform/internal/common/database"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
)

// Service introspects bearer tokens against the hosted authentication
// provider. Introspection results are cached in Redis for the configured TTL
// so repeated requests do not hammer the provider.
type Service struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	cache        *database.RedisClient
	cacheTTL     time.Duration
	logger       logger.Logger
}

type introspectionResponse struct {
	Active bool   `json:"active"`
	Sub    string `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func NewService(baseURL, clientID, clientSecret string, cache *database.RedisClient, cacheTTL time.Duration, log logger.Logger) *Service {
	return &Service{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       log.WithFields(map[string]interface{}{"component": "auth"}),
	}
}

// Introspect resolves a bearer token to an Identity. An invalid, expired or
// inactive token yields an Unauthorized error.
func (s *Service) Introspect(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, errors.NewUnauthorizedError("missing bearer token")
	}

	cacheKey := "auth:token:" + token
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, cacheKey); err == nil {
			var id Identity
			if err := json.Unmarshal([]byte(val), &id); err == nil {
				return &id, nil
			}
		}
	}

	id, err := s.introspectRemote(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(id); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
				s.logger.Warn("failed to cache token introspection", map[string]interface{}{
					"error": err,
				})
			}
		}
	}

	return id, nil
}

func (s *Service) introspectRemote(ctx context.Context, token string) (*Identity, error) {
	endpoint := fmt.Sprintf("%s/oauth/introspect", s.baseURL)

	data := url.Values{}
	data.Set("token", token)
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewUpstreamFailureError("auth", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamFailureError("auth", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewUpstreamFailureError("auth",
			fmt.Errorf("introspection failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var ir introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, errors.NewUpstreamFailureError("auth", err)
	}

	if !ir.Active || ir.Sub == "" {
		return nil, errors.NewUnauthorizedError("token inactive or expired")
	}

	role := Role(ir.Role)
	switch role {
	case RoleTalent, RoleEmployer, RoleAdmin:
	default:
		role = RoleTalent
	}

	return &Identity{
		UserID: ir.Sub,
		Email:  ir.Email,
		Role:   role,
	}, nil
}
