package handler

import (
	"time"

	"github.com/xtxerr/marketstats/internal/store"
)

// =============================================================================
// Response views
// =============================================================================

type countryView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type marketView struct {
	ID             int64        `json:"id"`
	Code           string       `json:"code"`
	Description    string       `json:"description"`
	Country        *countryView `json:"country,omitempty"`
	ParticipantIDs []int64      `json:"participant_ids"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type participantView struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Identification     string    `json:"identification"`
	IdentificationType string    `json:"identification_type"`
	Description        string    `json:"description"`
	MarketIDs          []int64   `json:"market_ids"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func viewCountry(c *store.Country) *countryView {
	if c == nil {
		return nil
	}
	return &countryView{
		ID:          c.ID,
		Name:        string(c.Name),
		Description: c.Description(),
		CreatedAt:   c.CreatedAt,
	}
}

func viewMarket(m *store.Market) marketView {
	ids := m.ParticipantIDs
	if ids == nil {
		ids = []int64{}
	}
	return marketView{
		ID:             m.ID,
		Code:           m.Code,
		Description:    m.Description,
		Country:        viewCountry(m.Country),
		ParticipantIDs: ids,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func viewParticipant(p *store.Participant) participantView {
	ids := p.MarketIDs
	if ids == nil {
		ids = []int64{}
	}
	return participantView{
		ID:                 p.ID,
		Name:               p.Name,
		Identification:     p.Identification,
		IdentificationType: string(p.IdentificationType),
		Description:        p.Description,
		MarketIDs:          ids,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func viewCountries(cs []*store.Country) []*countryView {
	out := make([]*countryView, 0, len(cs))
	for _, c := range cs {
		out = append(out, viewCountry(c))
	}
	return out
}

func viewMarkets(ms []*store.Market) []marketView {
	out := make([]marketView, 0, len(ms))
	for _, m := range ms {
		out = append(out, viewMarket(m))
	}
	return out
}

func viewParticipants(ps []*store.Participant) []participantView {
	out := make([]participantView, 0, len(ps))
	for _, p := range ps {
		out = append(out, viewParticipant(p))
	}
	return out
}
