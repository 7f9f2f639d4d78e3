package manager

import (
	"context"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/result"
	"github.com/xtxerr/marketstats/internal/stats"
	"github.com/xtxerr/marketstats/internal/store"
	"github.com/xtxerr/marketstats/internal/validation"
)

var marketLog = logging.Component("manager.market")

// MarketInput is a proposed market.
type MarketInput struct {
	Code        string
	Description string
	Country     string
}

// MarketService manages markets.
type MarketService struct {
	repo  Repository
	cache *stats.Cache
}

// List returns all markets ordered by country and id.
func (s *MarketService) List(ctx context.Context) result.Result[[]*store.Market] {
	markets, err := s.repo.ListMarkets(ctx)
	if err != nil {
		return fault[[]*store.Market](ctx, marketLog, "list markets", err)
	}
	return result.Ok(markets)
}

// Get returns a market by id.
func (s *MarketService) Get(ctx context.Context, id int64) result.Result[*store.Market] {
	return s.get(ctx, "get market", id)
}

// GetByCode returns a market by code, failing with KindMarketNotFound.
func (s *MarketService) GetByCode(ctx context.Context, code string) result.Result[*store.Market] {
	m, err := s.repo.GetMarketByCode(ctx, code)
	if err != nil {
		return fault[*store.Market](ctx, marketLog, "get market by code", err)
	}
	if m == nil {
		return reject[*store.Market](ctx, marketLog, "get market by code",
			errors.KindMarketNotFound, errors.NewNotFound(errors.ErrMarketNotFound, code))
	}
	return result.Ok(m)
}

func (s *MarketService) get(ctx context.Context, op string, id int64) result.Result[*store.Market] {
	m, err := s.repo.GetMarket(ctx, id)
	if err != nil {
		return fault[*store.Market](ctx, marketLog, op, err)
	}
	if m == nil {
		return reject[*store.Market](ctx, marketLog, op,
			errors.KindNotFound, errors.NewNotFound(errors.ErrMarketNotFound, id))
	}
	return result.Ok(m)
}

// Create registers a market owned by an existing country.
//
// A duplicate code fails with KindConflict. A country that is allow-listed
// but not registered fails with KindInvalidReference.
func (s *MarketService) Create(ctx context.Context, in MarketInput) result.Result[*store.Market] {
	const op = "create market"

	if err := validation.ValidateMarket(in.Code, in.Description, in.Country); err != nil {
		return reject[*store.Market](ctx, marketLog, op, errors.KindInvalidInput, err)
	}
	name, _ := constants.ParseCountry(in.Country)

	existing, err := s.repo.GetMarketByCode(ctx, in.Code)
	if err != nil {
		return fault[*store.Market](ctx, marketLog, op, err)
	}
	if existing != nil {
		return reject[*store.Market](ctx, marketLog, op,
			errors.KindConflict, errors.NewAlreadyExists(errors.ErrMarketAlreadyExists, in.Code))
	}

	country, err := s.repo.GetCountryByName(ctx, name)
	if err != nil {
		return fault[*store.Market](ctx, marketLog, op, err)
	}
	if country == nil {
		return reject[*store.Market](ctx, marketLog, op,
			errors.KindInvalidReference, errors.NewInvalidReference("country", name))
	}

	m := &store.Market{
		Code:        in.Code,
		Description: in.Description,
		CountryID:   country.ID,
	}
	if err := s.repo.CreateMarket(ctx, m); err != nil {
		return fault[*store.Market](ctx, marketLog, op, err)
	}
	m.Country = country
	m.ParticipantIDs = []int64{}

	return commit(ctx, marketLog, s.cache, op, m)
}

// Update replaces a market's description.
func (s *MarketService) Update(ctx context.Context, id int64, description string) result.Result[*store.Market] {
	const op = "update market"

	if err := validation.ValidateDescription(description); err != nil {
		return reject[*store.Market](ctx, marketLog, op, errors.KindInvalidInput, err)
	}

	r := s.get(ctx, op, id)
	if !r.IsOk() {
		return r
	}
	m := r.Value()

	if err := s.repo.UpdateMarketDescription(ctx, id, description); err != nil {
		return fromStore[*store.Market](ctx, marketLog, op, err)
	}
	m.Description = description

	return commit(ctx, marketLog, s.cache, op, m)
}

// Delete removes a market and its membership edges.
func (s *MarketService) Delete(ctx context.Context, id int64) result.Void {
	const op = "delete market"

	if r := s.get(ctx, op, id); !r.IsOk() {
		return result.Propagate[result.Unit](r)
	}

	if err := s.repo.DeleteMarket(ctx, id); err != nil {
		return fromStore[result.Unit](ctx, marketLog, op, err)
	}

	return commit(ctx, marketLog, s.cache, op, result.Unit{})
}
