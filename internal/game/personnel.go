package game

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"

	"syndicate/internal/catalog"
	"syndicate/internal/partition"
)

func (s *Service) ListPersonnel(ctx context.Context, t Target) ([]PersonnelResource, error) {
	if _, err := s.viewerGame(ctx, t); err != nil {
		return nil, err
	}
	list, err := s.catalog.ListTypes(ctx, catalog.PersonnelTypes)
	if err != nil {
		return nil, err
	}
	owned, err := holdings(ctx, s.db, t.GameID, t.PlayerID)
	if err != nil {
		return nil, translateStoreError(t.GameID, err)
	}
	out := make([]PersonnelResource, 0, len(list))
	for _, r := range list {
		lo, hi := catalog.RecruitBounds(r)
		out = append(out, PersonnelResource{
			ResourceID:     r.ID,
			Name:           r.Name,
			Type:           r.Type,
			RecruitMin:     lo,
			RecruitMax:     hi,
			DivestCost:     catalog.DivestCost(r),
			PlayerQuantity: owned[r.ID],
		})
	}
	return out, nil
}

func (s *Service) personnelResource(ctx context.Context, resourceID int64) (catalog.Resource, error) {
	r, err := s.catalog.Get(ctx, resourceID, catalog.PersonnelTypes...)
	if errors.Is(err, catalog.ErrNotFound) {
		return r, validationError(CodeInvalidResource, "resource %d is not an Associate or Enforcer", resourceID)
	}
	return r, err
}

// Recruit spends turns on personnel. Every resource draws its own multiplier
// from its recruit bounds and receives ceil(turns * multiplier / n) units.
// Either every resource is recruited or none is.
func (s *Service) Recruit(ctx context.Context, t Target, resourceIDs []int64, turns int64) (out RecruitResult, err error) {
	ctx, span := s.startSpan(ctx, "Recruit", t.GameID)
	defer func() { endSpan(span, err) }()

	if err := planRecruit(math.MaxInt64, turns, resourceIDs); err != nil {
		return out, err
	}
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		_, p, err := beginEconomy(ctx, tx, t, "personnel.recruit")
		if err != nil {
			return err
		}
		resources := make([]catalog.Resource, 0, len(resourceIDs))
		for _, id := range resourceIDs {
			r, err := s.personnelResource(ctx, id)
			if err != nil {
				return err
			}
			resources = append(resources, r)
		}
		if err := planRecruit(p.TurnsActive, turns, resourceIDs); err != nil {
			return err
		}

		recruited := make([]Recruited, 0, len(resources))
		for _, r := range resources {
			lo, hi := catalog.RecruitBounds(r)
			qty := recruitQuantity(turns, drawMultiplier(lo, hi, s.nextFloat()), len(resources))
			if _, err := addHolding(ctx, tx, t.GameID, p.ID, r.ID, qty); err != nil {
				return err
			}
			recruited = append(recruited, Recruited{ResourceID: r.ID, ResourceName: r.Name, Quantity: qty})
		}

		var pools TurnPools
		err = tx.QueryRow(ctx, `
			UPDATE `+partition.Table(t.GameID, partition.PlayersTable)+`
			SET turns_active = turns_active - $2, updated_at = now()
			WHERE id = $1 AND turns_active >= $2
			RETURNING turns_active, turns_reserve
		`, p.ID, turns).Scan(&pools.TurnsActive, &pools.TurnsReserve)
		if errors.Is(err, pgx.ErrNoRows) {
			return errConcurrentUpdate()
		}
		if err != nil {
			return err
		}
		out = RecruitResult{TurnsUsed: turns, Recruited: recruited, Player: pools}
		return nil
	})
	if err != nil {
		return RecruitResult{}, err
	}
	s.publish(ctx, t, "personnel.recruit", map[string]any{"turns": turns, "recruited": out.Recruited})
	return out, nil
}

// Divest releases personnel. Releasing costs floor(value / 2) per unit; the
// cost is reported as a negative CashReceived.
func (s *Service) Divest(ctx context.Context, t Target, resourceID, quantity int64) (out DivestResult, err error) {
	ctx, span := s.startSpan(ctx, "Divest", t.GameID)
	defer func() { endSpan(span, err) }()

	if err := validateQuantity(quantity); err != nil {
		return out, err
	}
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		_, p, err := beginEconomy(ctx, tx, t, "personnel.divest")
		if err != nil {
			return err
		}
		r, err := s.personnelResource(ctx, resourceID)
		if err != nil {
			return err
		}
		owned, err := lockHolding(ctx, tx, t.GameID, p.ID, r.ID)
		if err != nil {
			return err
		}
		cost, err := planDivest(p.MoneyCash, catalog.DivestCost(r), owned, quantity)
		if err != nil {
			return err
		}
		if _, err := subtractHolding(ctx, tx, t.GameID, p.ID, r.ID, quantity); err != nil {
			return err
		}
		bal, err := updateBalances(ctx, tx, t, `money_cash = money_cash - $2`, `money_cash >= $2`, cost)
		if err != nil {
			return err
		}
		out = DivestResult{
			ResourceID:       r.ID,
			ResourceName:     r.Name,
			QuantityDivested: quantity,
			CashReceived:     cost.Neg(),
		}
		out.Player.MoneyCash = bal.MoneyCash
		return nil
	})
	if err != nil {
		return DivestResult{}, err
	}
	s.publish(ctx, t, "personnel.divest", map[string]any{"resource_id": resourceID, "quantity": quantity, "cost": out.CashReceived.Neg().String()})
	return out, nil
}
