package manager

import (
	"context"
	"fmt"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
	"github.com/xtxerr/marketstats/internal/logging"
	"github.com/xtxerr/marketstats/internal/result"
	"github.com/xtxerr/marketstats/internal/stats"
	"github.com/xtxerr/marketstats/internal/store"
	"github.com/xtxerr/marketstats/internal/validation"
)

var participantLog = logging.Component("manager.participant")

// ParticipantInput is a proposed participant together with the ids of the
// markets it should join.
type ParticipantInput struct {
	Name               string
	Identification     string
	IdentificationType string
	Description        string
	MarketIDs          []int64
}

// ParticipantService manages participants and their market memberships.
type ParticipantService struct {
	repo  Repository
	cache *stats.Cache
}

// List returns all participants ordered by id.
func (s *ParticipantService) List(ctx context.Context) result.Result[[]*store.Participant] {
	ps, err := s.repo.ListParticipants(ctx)
	if err != nil {
		return fault[[]*store.Participant](ctx, participantLog, "list participants", err)
	}
	return result.Ok(ps)
}

// Get returns a participant by id.
func (s *ParticipantService) Get(ctx context.Context, id int64) result.Result[*store.Participant] {
	return s.get(ctx, "get participant", id)
}

func (s *ParticipantService) get(ctx context.Context, op string, id int64) result.Result[*store.Participant] {
	p, err := s.repo.GetParticipant(ctx, id)
	if err != nil {
		return fault[*store.Participant](ctx, participantLog, op, err)
	}
	if p == nil {
		return reject[*store.Participant](ctx, participantLog, op,
			errors.KindNotFound, errors.NewNotFound(errors.ErrParticipantNotFound, id))
	}
	return result.Ok(p)
}

// ListByMarket returns the members of the market with the given code.
func (s *ParticipantService) ListByMarket(ctx context.Context, code string) result.Result[[]*store.Participant] {
	const op = "list participants by market"

	m, err := s.repo.GetMarketByCode(ctx, code)
	if err != nil {
		return fault[[]*store.Participant](ctx, participantLog, op, err)
	}
	if m == nil {
		return reject[[]*store.Participant](ctx, participantLog, op,
			errors.KindMarketNotFound, errors.NewNotFound(errors.ErrMarketNotFound, code))
	}

	ps, err := s.repo.ListParticipantsByMarket(ctx, m.ID)
	if err != nil {
		return fault[[]*store.Participant](ctx, participantLog, op, err)
	}
	return result.Ok(ps)
}

// Create registers a participant and attaches it to every market in
// in.MarketIDs that exists. Ids that do not resolve are skipped.
//
// A participant with the same identification and type fails with
// KindConflict and nothing is written.
func (s *ParticipantService) Create(ctx context.Context, in ParticipantInput) result.Result[*store.Participant] {
	const op = "create participant"

	if err := validation.ValidateParticipant(in.Name, in.Identification, in.IdentificationType, in.Description); err != nil {
		return reject[*store.Participant](ctx, participantLog, op, errors.KindInvalidInput, err)
	}
	idType, _ := constants.ParseIdentificationType(in.IdentificationType)

	existing, err := s.repo.GetParticipantByIdentification(ctx, in.Identification, idType)
	if err != nil {
		return fault[*store.Participant](ctx, participantLog, op, err)
	}
	if existing != nil {
		return reject[*store.Participant](ctx, participantLog, op, errors.KindConflict,
			errors.NewAlreadyExists(errors.ErrParticipantAlreadyExists,
				fmt.Sprintf("%s %s", idType, in.Identification)))
	}

	markets, err := s.repo.ListMarketsByIDs(ctx, in.MarketIDs)
	if err != nil {
		return fault[*store.Participant](ctx, participantLog, op, err)
	}

	resolved := make([]int64, 0, len(markets))
	for _, m := range markets {
		resolved = append(resolved, m.ID)
	}
	if skipped := unresolved(in.MarketIDs, resolved); len(skipped) > 0 {
		participantLog.Ctx(ctx).Info("skipping unknown market ids", "op", op, "market_ids", skipped)
	}

	p := &store.Participant{
		Name:               in.Name,
		Identification:     in.Identification,
		IdentificationType: idType,
		Description:        in.Description,
	}
	if err := s.repo.CreateParticipant(ctx, p, resolved); err != nil {
		return fault[*store.Participant](ctx, participantLog, op, err)
	}

	return commit(ctx, participantLog, s.cache, op, p)
}

// Update replaces a participant's description.
func (s *ParticipantService) Update(ctx context.Context, id int64, description string) result.Result[*store.Participant] {
	const op = "update participant"

	if err := validation.ValidateDescription(description); err != nil {
		return reject[*store.Participant](ctx, participantLog, op, errors.KindInvalidInput, err)
	}

	r := s.get(ctx, op, id)
	if !r.IsOk() {
		return r
	}
	p := r.Value()

	if err := s.repo.UpdateParticipantDescription(ctx, id, description); err != nil {
		return fromStore[*store.Participant](ctx, participantLog, op, err)
	}
	p.Description = description

	return commit(ctx, participantLog, s.cache, op, p)
}

// Delete removes a participant and its membership edges.
func (s *ParticipantService) Delete(ctx context.Context, id int64) result.Void {
	const op = "delete participant"

	if r := s.get(ctx, op, id); !r.IsOk() {
		return result.Propagate[result.Unit](r)
	}

	if err := s.repo.DeleteParticipant(ctx, id); err != nil {
		return fromStore[result.Unit](ctx, participantLog, op, err)
	}

	return commit(ctx, participantLog, s.cache, op, result.Unit{})
}

// =============================================================================
// Memberships
// =============================================================================

// AddMembership adds the participant to the market with the given code.
//
// Fails with KindNotFound for an unknown participant, KindMarketNotFound for
// an unknown market and KindConflict when the participant is already a
// member. A failure leaves both sides unchanged.
func (s *ParticipantService) AddMembership(ctx context.Context, participantID int64, marketCode string) result.Void {
	const op = "add membership"

	p, m, r := s.resolvePair(ctx, op, participantID, marketCode)
	if r != nil {
		return *r
	}

	member, err := s.repo.HasMembership(ctx, m.ID, p.ID)
	if err != nil {
		return fault[result.Unit](ctx, participantLog, op, err)
	}
	if member {
		return reject[result.Unit](ctx, participantLog, op, errors.KindConflict,
			errors.NewAlreadyExists(errors.ErrMembershipAlreadyExists, fmt.Sprintf("%d in %s", p.ID, m.Code)))
	}

	if err := s.repo.AddMembership(ctx, m.ID, p.ID); err != nil {
		return fault[result.Unit](ctx, participantLog, op, err)
	}

	return commit(ctx, participantLog, s.cache, op, result.Unit{})
}

// RemoveMembership removes the participant from the market with the given
// code. A participant that is not a member fails with KindNotFound.
func (s *ParticipantService) RemoveMembership(ctx context.Context, participantID int64, marketCode string) result.Void {
	const op = "remove membership"

	p, m, r := s.resolvePair(ctx, op, participantID, marketCode)
	if r != nil {
		return *r
	}

	if err := s.repo.RemoveMembership(ctx, m.ID, p.ID); err != nil {
		return fromStore[result.Unit](ctx, participantLog, op, err)
	}

	return commit(ctx, participantLog, s.cache, op, result.Unit{})
}

// resolvePair looks up both sides of a membership. A non-nil failure means
// the lookup did not succeed.
func (s *ParticipantService) resolvePair(ctx context.Context, op string, participantID int64, marketCode string) (*store.Participant, *store.Market, *result.Void) {
	pr := s.get(ctx, op, participantID)
	if !pr.IsOk() {
		f := result.Propagate[result.Unit](pr)
		return nil, nil, &f
	}

	m, err := s.repo.GetMarketByCode(ctx, marketCode)
	if err != nil {
		f := fault[result.Unit](ctx, participantLog, op, err)
		return nil, nil, &f
	}
	if m == nil {
		f := reject[result.Unit](ctx, participantLog, op,
			errors.KindMarketNotFound, errors.NewNotFound(errors.ErrMarketNotFound, marketCode))
		return nil, nil, &f
	}

	return pr.Value(), m, nil
}

func unresolved(requested, resolved []int64) []int64 {
	found := make(map[int64]struct{}, len(resolved))
	for _, id := range resolved {
		found[id] = struct{}{}
	}

	var out []int64
	for _, id := range requested {
		if _, ok := found[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
