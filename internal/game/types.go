package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Game struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	StartAt         time.Time       `json:"start_at"`
	LengthDays      int             `json:"length_days"`
	Status          string          `json:"status"`
	ResourceSetID   *int64          `json:"resource_set_id,omitempty"`
	StartingReserve int64           `json:"starting_reserve"`
	StartingBank    decimal.Decimal `json:"starting_bank"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EndsAt is the moment the round stops accepting new play.
func (g Game) EndsAt() time.Time {
	return g.StartAt.Add(time.Duration(g.LengthDays) * 24 * time.Hour)
}

type Player struct {
	ID               uuid.UUID       `json:"id"`
	GameID           int64           `json:"game_id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	LocationID       *int64          `json:"location_id,omitempty"`
	TurnsActive      int64           `json:"turns_active"`
	TurnsReserve     int64           `json:"turns_reserve"`
	TurnsTransferred int64           `json:"turns_transferred"`
	MoneyCash        decimal.Decimal `json:"money_cash"`
	MoneyBank        decimal.Decimal `json:"money_bank"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Turns    int64  `json:"turns"`
}

type CreateGameInput struct {
	Name            string          `json:"name"`
	StartAt         time.Time       `json:"start_at"`
	LengthDays      int             `json:"length_days"`
	ResourceSetID   *int64          `json:"resource_set_id,omitempty"`
	StartingReserve int64           `json:"starting_reserve"`
	StartingBank    decimal.Decimal `json:"starting_bank"`
}

type JoinGameInput struct {
	GameID     int64  `json:"-"`
	UserID     string `json:"-"`
	Username   string `json:"-"`
	Name       string `json:"name"`
	LocationID *int64 `json:"location_id,omitempty"`
}

// Target identifies the player an economy operation acts on.
type Target struct {
	GameID         int64
	PlayerID       uuid.UUID
	UserID         string
	IdempotencyKey string
}

type Balances struct {
	MoneyCash decimal.Decimal `json:"money_cash"`
	MoneyBank decimal.Decimal `json:"money_bank"`
}

type MarketResource struct {
	ResourceID     int64           `json:"resource_id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	PlayerQuantity int64           `json:"player_quantity"`
}

type TradeResult struct {
	ResourceID     int64           `json:"resource_id"`
	PlayerQuantity int64           `json:"player_quantity"`
	MoneyCash      decimal.Decimal `json:"money_cash"`
}

type PersonnelResource struct {
	ResourceID     int64           `json:"resource_id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	RecruitMin     decimal.Decimal `json:"recruit_min"`
	RecruitMax     decimal.Decimal `json:"recruit_max"`
	DivestCost     decimal.Decimal `json:"divest_cost"`
	PlayerQuantity int64           `json:"player_quantity"`
}

type Recruited struct {
	ResourceID   int64  `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	Quantity     int64  `json:"quantity"`
}

type TurnPools struct {
	TurnsActive  int64 `json:"turns_active"`
	TurnsReserve int64 `json:"turns_reserve"`
}

type RecruitResult struct {
	TurnsUsed int64       `json:"turnsUsed"`
	Recruited []Recruited `json:"recruited"`
	Player    TurnPools   `json:"player"`
}

type DivestResult struct {
	ResourceID       int64  `json:"resourceId"`
	ResourceName     string `json:"resourceName"`
	QuantityDivested int64  `json:"quantityDivested"`
	// CashReceived is the cost of the divestment reported as a negative
	// number: divesting personnel always costs money.
	CashReceived decimal.Decimal `json:"cashReceived"`
	Player       struct {
		MoneyCash decimal.Decimal `json:"money_cash"`
	} `json:"player"`
}

type AccountTransferResult struct {
	Player Player `json:"player"`
	User   User   `json:"user"`
}
