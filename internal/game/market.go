package game

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"syndicate/internal/catalog"
)

func marketTypes(filter string) ([]string, error) {
	if filter == "" {
		return catalog.MarketTypes, nil
	}
	t, ok := catalog.NormalizeType(filter)
	if !ok || !catalog.IsMarketType(t) {
		return nil, validationError(CodeInvalidType, "type must be one of Items, Transports, Vehicles, Weapons")
	}
	return []string{t}, nil
}

// ListResources returns the market resources of the game's resource set with
// the player's holdings and current prices. A game without a resource set
// has an empty market.
func (s *Service) ListResources(ctx context.Context, t Target, typeFilter string) ([]MarketResource, error) {
	types, err := marketTypes(typeFilter)
	if err != nil {
		return nil, err
	}
	g, err := s.viewerGame(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make([]MarketResource, 0, 16)
	if g.ResourceSetID == nil {
		return out, nil
	}
	list, err := s.catalog.ListSet(ctx, *g.ResourceSetID, types)
	if err != nil {
		return nil, err
	}
	owned, err := holdings(ctx, s.db, t.GameID, t.PlayerID)
	if err != nil {
		return nil, translateStoreError(t.GameID, err)
	}
	for _, r := range list {
		out = append(out, MarketResource{
			ResourceID:     r.ID,
			Name:           r.Name,
			Type:           r.Type,
			BuyPrice:       catalog.BuyPrice(r),
			SellPrice:      catalog.SellPrice(r),
			PlayerQuantity: owned[r.ID],
		})
	}
	return out, nil
}

// marketResource resolves resourceID through the same set and type filter
// ListResources uses.
func (s *Service) marketResource(ctx context.Context, g Game, resourceID int64) (catalog.Resource, error) {
	notAvailable := newError(KindNotFound, CodeResourceNotAvailable, "resource %d is not sold in this game", resourceID)
	if g.ResourceSetID == nil {
		return catalog.Resource{}, notAvailable
	}
	list, err := s.catalog.ListSet(ctx, *g.ResourceSetID, catalog.MarketTypes)
	if err != nil {
		return catalog.Resource{}, err
	}
	for _, r := range list {
		if r.ID == resourceID {
			return r, nil
		}
	}
	return catalog.Resource{}, notAvailable
}

// Buy purchases quantity units at the marked-up buy price.
func (s *Service) Buy(ctx context.Context, t Target, resourceID, quantity int64) (out TradeResult, err error) {
	ctx, span := s.startSpan(ctx, "Buy", t.GameID)
	defer func() { endSpan(span, err) }()

	if err := validateQuantity(quantity); err != nil {
		return out, err
	}
	var cost decimal.Decimal
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		g, p, err := beginEconomy(ctx, tx, t, "market.buy")
		if err != nil {
			return err
		}
		r, err := s.marketResource(ctx, g, resourceID)
		if err != nil {
			return err
		}
		cost, err = planBuy(p.MoneyCash, catalog.BuyPrice(r), quantity)
		if err != nil {
			return err
		}
		bal, err := updateBalances(ctx, tx, t, `money_cash = money_cash - $2`, `money_cash >= $2`, cost)
		if err != nil {
			return err
		}
		qty, err := addHolding(ctx, tx, t.GameID, t.PlayerID, r.ID, quantity)
		if err != nil {
			return err
		}
		out = TradeResult{ResourceID: r.ID, PlayerQuantity: qty, MoneyCash: bal.MoneyCash}
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	s.publish(ctx, t, "market.buy", map[string]any{"resource_id": resourceID, "quantity": quantity, "cost": cost.String()})
	return out, nil
}

// Sell releases quantity owned units at the sell price. A holding sold down
// to zero keeps its row.
func (s *Service) Sell(ctx context.Context, t Target, resourceID, quantity int64) (out TradeResult, err error) {
	ctx, span := s.startSpan(ctx, "Sell", t.GameID)
	defer func() { endSpan(span, err) }()

	if err := validateQuantity(quantity); err != nil {
		return out, err
	}
	var proceeds decimal.Decimal
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		g, p, err := beginEconomy(ctx, tx, t, "market.sell")
		if err != nil {
			return err
		}
		r, err := s.marketResource(ctx, g, resourceID)
		if err != nil {
			return err
		}
		owned, err := lockHolding(ctx, tx, t.GameID, p.ID, r.ID)
		if err != nil {
			return err
		}
		proceeds, err = planSell(catalog.SellPrice(r), owned, quantity)
		if err != nil {
			return err
		}
		qty, err := subtractHolding(ctx, tx, t.GameID, p.ID, r.ID, quantity)
		if err != nil {
			return err
		}
		bal, err := updateBalances(ctx, tx, t, `money_cash = money_cash + $2`, `$2 >= 0`, proceeds)
		if err != nil {
			return err
		}
		out = TradeResult{ResourceID: r.ID, PlayerQuantity: qty, MoneyCash: bal.MoneyCash}
		return nil
	})
	if err != nil {
		return TradeResult{}, err
	}
	s.publish(ctx, t, "market.sell", map[string]any{"resource_id": resourceID, "quantity": quantity, "proceeds": proceeds.String()})
	return out, nil
}

// viewerGame loads the game for a read-only view and checks the player
// exists and belongs to the caller.
func (s *Service) viewerGame(ctx context.Context, t Target) (Game, error) {
	g, err := s.GetGame(ctx, t.GameID)
	if err != nil {
		return g, err
	}
	p, err := s.GetPlayer(ctx, t.GameID, t.PlayerID)
	if err != nil {
		return g, err
	}
	if t.UserID != "" && p.UserID != t.UserID {
		return g, &Error{Kind: KindPolicyViolation, Code: CodeForbidden, Message: "player belongs to another user"}
	}
	return g, nil
}
