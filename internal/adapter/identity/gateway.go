package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Gateway talks to the token-issuing identity provider over its REST API
// (identity-toolkit style accounts:* endpoints).
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGateway(baseURL, apiKey string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type accountRecord struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phoneNumber"`
	CustomAttributes string `json:"customAttributes"`
}

type lookupResponse struct {
	Users []accountRecord `json:"users"`
}

func (g *Gateway) Verify(ctx context.Context, token string) (*port.Identity, error) {
	var resp lookupResponse
	err := g.post(ctx, "accounts:lookup", map[string]any{"idToken": token}, &resp)
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, domain.ErrUnauthorized
	}

	acct := resp.Users[0]
	ident := &port.Identity{
		AccountID: acct.LocalID,
		Email:     acct.Email,
		Phone:     acct.PhoneNumber,
		RawToken:  token,
	}
	if acct.CustomAttributes != "" {
		var claims struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal([]byte(acct.CustomAttributes), &claims); err == nil {
			ident.UserID = claims.UserID
		}
	}
	return ident, nil
}

func (g *Gateway) FindAccountByEmail(ctx context.Context, email string) (string, error) {
	return g.findAccount(ctx, map[string]any{"email": []string{email}})
}

func (g *Gateway) FindAccountByPhone(ctx context.Context, phone string) (string, error) {
	return g.findAccount(ctx, map[string]any{"phoneNumber": []string{phone}})
}

func (g *Gateway) findAccount(ctx context.Context, body map[string]any) (string, error) {
	var resp lookupResponse
	err := g.post(ctx, "accounts:lookup", body, &resp)
	if err != nil {
		// The provider answers a miss with an empty user list or a client
		// error depending on the lookup key; both mean "no account".
		if isClientError(err) {
			return "", nil
		}
		return "", err
	}
	if len(resp.Users) == 0 {
		return "", nil
	}
	return resp.Users[0].LocalID, nil
}

func (g *Gateway) UpdateAccount(ctx context.Context, accountID string, update port.AccountUpdate) error {
	body := map[string]any{"localId": accountID}
	if update.Email != "" {
		body["email"] = update.Email
	}
	if update.Phone != "" {
		body["phoneNumber"] = update.Phone
	}
	if update.EmailVerified {
		body["emailVerified"] = true
	}
	return g.post(ctx, "accounts:update", body, nil)
}

func (g *Gateway) SetUserClaim(ctx context.Context, accountID, userID string) error {
	claims, err := json.Marshal(map[string]string{"userId": userID})
	if err != nil {
		return err
	}
	return g.post(ctx, "accounts:update", map[string]any{
		"localId":          accountID,
		"customAttributes": string(claims),
	}, nil)
}

func (g *Gateway) DeleteAccount(ctx context.Context, accountID string) error {
	return g.post(ctx, "accounts:delete", map[string]any{"localId": accountID}, nil)
}

// statusError carries the provider's HTTP status for classification.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("identity provider status %d: %s", e.status, e.body)
}

func isClientError(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status >= 400 && se.status < 500
}

func (g *Gateway) post(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/%s?key=%s", g.baseURL, endpoint, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode identity provider response: %w", err)
		}
	}
	return nil
}
