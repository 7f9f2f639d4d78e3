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

var countryLog = logging.Component("manager.country")

// CountryService manages allow-listed countries. Countries have no mutable
// fields.
type CountryService struct {
	repo  Repository
	cache *stats.Cache
}

// List returns all countries.
func (s *CountryService) List(ctx context.Context) result.Result[[]*store.Country] {
	countries, err := s.repo.ListCountries(ctx)
	if err != nil {
		return fault[[]*store.Country](ctx, countryLog, "list countries", err)
	}
	return result.Ok(countries)
}

// Get returns a country by id.
func (s *CountryService) Get(ctx context.Context, id int64) result.Result[*store.Country] {
	c, err := s.repo.GetCountry(ctx, id)
	if err != nil {
		return fault[*store.Country](ctx, countryLog, "get country", err)
	}
	if c == nil {
		return reject[*store.Country](ctx, countryLog, "get country",
			errors.KindNotFound, errors.NewNotFound(errors.ErrCountryNotFound, id))
	}
	return result.Ok(c)
}

// Create registers a country. name is matched against the allow-list by its
// stored value or display name.
func (s *CountryService) Create(ctx context.Context, name string) result.Result[*store.Country] {
	const op = "create country"

	if err := validation.ValidateCountry(name); err != nil {
		return reject[*store.Country](ctx, countryLog, op, errors.KindInvalidInput, err)
	}
	country, _ := constants.ParseCountry(name)

	existing, err := s.repo.GetCountryByName(ctx, country)
	if err != nil {
		return fault[*store.Country](ctx, countryLog, op, err)
	}
	if existing != nil {
		return reject[*store.Country](ctx, countryLog, op,
			errors.KindConflict, errors.NewAlreadyExists(errors.ErrCountryAlreadyExists, country))
	}

	c := &store.Country{Name: country}
	if err := s.repo.CreateCountry(ctx, c); err != nil {
		return fault[*store.Country](ctx, countryLog, op, err)
	}

	return commit(ctx, countryLog, s.cache, op, c)
}

// Delete removes a country. A country that still owns markets is rejected
// with KindConflict.
func (s *CountryService) Delete(ctx context.Context, id int64) result.Void {
	const op = "delete country"

	c, err := s.repo.GetCountry(ctx, id)
	if err != nil {
		return fault[result.Unit](ctx, countryLog, op, err)
	}
	if c == nil {
		return reject[result.Unit](ctx, countryLog, op,
			errors.KindNotFound, errors.NewNotFound(errors.ErrCountryNotFound, id))
	}

	n, err := s.repo.CountMarketsByCountry(ctx, id)
	if err != nil {
		return fault[result.Unit](ctx, countryLog, op, err)
	}
	if n > 0 {
		return reject[result.Unit](ctx, countryLog, op,
			errors.KindConflict, errors.Wrapf(errors.ErrInUse, "country %s owns %d markets", c.Name, n))
	}

	if err := s.repo.DeleteCountry(ctx, id); err != nil {
		return fromStore[result.Unit](ctx, countryLog, op, err)
	}

	return commit(ctx, countryLog, s.cache, op, result.Unit{})
}
