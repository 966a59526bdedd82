package cli

import (
	"bytes"
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

	"syndicate/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status   int               `json:"-"`
	Message  string            `json:"error"`
	Code     string            `json:"code"`
	Metadata map[string]string `json:"metadata"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api status %d", e.Status)
}

// IsOffline reports whether err means the API could not be reached, as
// opposed to the API answering with an error.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Call is one mutating request. Calls are what the offline queue stores.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

func gamePath(gameID int64, suffix string) string {
	return fmt.Sprintf("/v1/games/%d/%s", gameID, suffix)
}

func WithdrawCall(gameID int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, "bank/withdraw")}
}

func DepositCall(gameID int64, amount decimal.Decimal) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, "bank/deposit"), Body: map[string]any{"amount": amount.String()}}
}

func BuyCall(gameID, resourceID, quantity int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, fmt.Sprintf("market/%d/buy", resourceID)), Body: map[string]any{"quantity": quantity}}
}

func SellCall(gameID, resourceID, quantity int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, fmt.Sprintf("market/%d/sell", resourceID)), Body: map[string]any{"quantity": quantity}}
}

func RecruitCall(gameID int64, resourceIDs []int64, turns int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, "personnel/recruit"), Body: map[string]any{"resource_ids": resourceIDs, "turns": turns}}
}

func DivestCall(gameID, resourceID, quantity int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, fmt.Sprintf("personnel/%d/divest", resourceID)), Body: map[string]any{"quantity": quantity}}
}

func ActivateTurnsCall(gameID, amount int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, "turns/activate"), Body: map[string]any{"amount": amount}}
}

func ReserveTurnsCall(gameID, amount int64) Call {
	return Call{Method: http.MethodPost, Path: gamePath(gameID, "turns/reserve"), Body: map[string]any{"amount": amount}}
}

// Send performs call and decodes the response into out when out is not nil.
func (c *Client) Send(ctx context.Context, accessToken string, call Call, idem string, out any) error {
	var in any
	if call.Body != nil {
		in = call.Body
	}
	return c.jsonRequest(ctx, call.Method, call.Path, accessToken, in, out, idem)
}

func (c *Client) Me(ctx context.Context, accessToken string) (game.User, error) {
	var out game.User
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListGames(ctx context.Context, accessToken, status string) ([]game.Game, error) {
	path := "/v1/games"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out struct {
		Games []game.Game `json:"games"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out.Games, err
}

func (c *Client) Game(ctx context.Context, accessToken string, gameID int64) (game.Game, error) {
	var out game.Game
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/%d", gameID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Join(ctx context.Context, accessToken string, gameID int64, name string, locationID *int64) (game.Player, error) {
	body := map[string]any{"name": name}
	if locationID != nil {
		body["location_id"] = *locationID
	}
	var out game.Player
	err := c.jsonRequest(ctx, http.MethodPost, gamePath(gameID, "join"), accessToken, body, &out, "")
	return out, err
}

func (c *Client) Player(ctx context.Context, accessToken string, gameID int64) (game.Player, error) {
	var out game.Player
	err := c.jsonRequest(ctx, http.MethodGet, gamePath(gameID, "player"), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Players(ctx context.Context, accessToken string) ([]game.Player, error) {
	var out struct {
		Players []game.Player `json:"players"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players", accessToken, nil, &out, "")
	return out.Players, err
}

func (c *Client) Market(ctx context.Context, accessToken string, gameID int64, resourceType string) ([]game.MarketResource, error) {
	path := gamePath(gameID, "market")
	if resourceType != "" {
		path += "?type=" + url.QueryEscape(resourceType)
	}
	var out struct {
		Resources []game.MarketResource `json:"resources"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out.Resources, err
}

func (c *Client) Personnel(ctx context.Context, accessToken string, gameID int64) ([]game.PersonnelResource, error) {
	var out struct {
		Personnel []game.PersonnelResource `json:"personnel"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, gamePath(gameID, "personnel"), accessToken, nil, &out, "")
	return out.Personnel, err
}

func (c *Client) CreateGame(ctx context.Context, accessToken string, in game.CreateGameInput) (game.Game, error) {
	var out game.Game
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/games", accessToken, in, &out, "")
	return out, err
}

func (c *Client) DeleteGame(ctx context.Context, accessToken string, gameID int64) error {
	return c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/admin/games/%d", gameID), accessToken, nil, nil, "")
}

func (c *Client) GrantTurns(ctx context.Context, accessToken, userID string, amount int64) (game.User, error) {
	var out game.User
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/users/"+url.PathEscape(userID)+"/turns", accessToken, map[string]any{
		"amount": amount,
	}, &out, "")
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
