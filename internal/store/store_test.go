package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/xtxerr/marketstats/internal/constants"
	"github.com/xtxerr/marketstats/internal/errors"
)

// =============================================================================
// Helpers
// =============================================================================

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := Config{
		Driver:       DriverDuckDB,
		DSN:          "",
		QueryTimeout: 30 * time.Second,
	}
	store, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCountry(t *testing.T, s *Store, name constants.Country) *Country {
	t.Helper()
	c := &Country{Name: name}
	if err := s.CreateCountry(context.Background(), c); err != nil {
		t.Fatalf("CreateCountry(%s): %v", name, err)
	}
	return c
}

func mustMarket(t *testing.T, s *Store, code string, countryID int64) *Market {
	t.Helper()
	m := &Market{Code: code, Description: code + " market", CountryID: countryID}
	if err := s.CreateMarket(context.Background(), m); err != nil {
		t.Fatalf("CreateMarket(%s): %v", code, err)
	}
	return m
}

func mustParticipant(t *testing.T, s *Store, ident string, marketIDs ...int64) *Participant {
	t.Helper()
	p := &Participant{
		Name:               "participant " + ident,
		Identification:     ident,
		IdentificationType: constants.IdentificationDNI,
		Description:        "test",
	}
	if err := s.CreateParticipant(context.Background(), p, marketIDs); err != nil {
		t.Fatalf("CreateParticipant(%s): %v", ident, err)
	}
	return p
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// Country Tests
// =============================================================================

func TestCountry_CRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	if ar.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.GetCountry(ctx, ar.ID)
	if err != nil {
		t.Fatalf("GetCountry: %v", err)
	}
	if got == nil || got.Name != constants.CountryArgentina {
		t.Fatalf("GetCountry = %+v, want ARGENTINA", got)
	}
	if got.Description() != "Argentina" {
		t.Errorf("Description() = %q, want Argentina", got.Description())
	}

	byName, err := s.GetCountryByName(ctx, constants.CountryArgentina)
	if err != nil || byName == nil || byName.ID != ar.ID {
		t.Fatalf("GetCountryByName = %+v, %v", byName, err)
	}

	missing, err := s.GetCountryByName(ctx, constants.CountryUruguay)
	if err != nil || missing != nil {
		t.Fatalf("GetCountryByName(URUGUAY) = %+v, %v; want nil, nil", missing, err)
	}

	if err := s.DeleteCountry(ctx, ar.ID); err != nil {
		t.Fatalf("DeleteCountry: %v", err)
	}
	if err := s.DeleteCountry(ctx, ar.ID); !errors.Is(err, ErrCountryNotFound) {
		t.Errorf("second DeleteCountry error = %v, want ErrCountryNotFound", err)
	}
}

func TestCountry_UniqueName(t *testing.T) {
	s := setupTestStore(t)

	mustCountry(t, s, constants.CountryArgentina)
	err := s.CreateCountry(context.Background(), &Country{Name: constants.CountryArgentina})
	if err == nil {
		t.Fatal("expected unique violation on duplicate country")
	}
}

func TestCountMarketsByCountry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	uy := mustCountry(t, s, constants.CountryUruguay)
	mustMarket(t, s, "A", ar.ID)
	mustMarket(t, s, "B", ar.ID)

	n, err := s.CountMarketsByCountry(ctx, ar.ID)
	if err != nil || n != 2 {
		t.Errorf("CountMarketsByCountry(ar) = %d, %v; want 2", n, err)
	}
	n, err = s.CountMarketsByCountry(ctx, uy.ID)
	if err != nil || n != 0 {
		t.Errorf("CountMarketsByCountry(uy) = %d, %v; want 0", n, err)
	}
}

// =============================================================================
// Market Tests
// =============================================================================

func TestMarket_GetAndUpdate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	m := mustMarket(t, s, "MAE", ar.ID)

	got, err := s.GetMarketByCode(ctx, "MAE")
	if err != nil || got == nil {
		t.Fatalf("GetMarketByCode = %+v, %v", got, err)
	}
	if got.ID != m.ID || got.Country == nil || got.Country.Name != constants.CountryArgentina {
		t.Errorf("unexpected market %+v", got)
	}
	if len(got.ParticipantIDs) != 0 {
		t.Errorf("ParticipantIDs = %v, want empty", got.ParticipantIDs)
	}

	if err := s.UpdateMarketDescription(ctx, m.ID, "renamed"); err != nil {
		t.Fatalf("UpdateMarketDescription: %v", err)
	}
	got, _ = s.GetMarket(ctx, m.ID)
	if got.Description != "renamed" {
		t.Errorf("Description = %q, want renamed", got.Description)
	}

	if err := s.UpdateMarketDescription(ctx, 999, "x"); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("UpdateMarketDescription(999) error = %v, want ErrMarketNotFound", err)
	}

	missing, err := s.GetMarket(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("GetMarket(999) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestListMarkets_GraphOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	uy := mustCountry(t, s, constants.CountryUruguay)
	ar := mustCountry(t, s, constants.CountryArgentina)

	c := mustMarket(t, s, "C", uy.ID)
	a := mustMarket(t, s, "A", ar.ID)
	b := mustMarket(t, s, "B", ar.ID)

	mustParticipant(t, s, "1", a.ID)
	mustParticipant(t, s, "2", a.ID, b.ID)
	mustParticipant(t, s, "3", b.ID, c.ID)

	markets, err := s.ListMarkets(ctx)
	if err != nil {
		t.Fatalf("ListMarkets: %v", err)
	}

	var codes []string
	for _, m := range markets {
		codes = append(codes, m.Code)
	}
	want := []string{"C", "A", "B"}
	if len(codes) != len(want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}

	if markets[0].Country.Name != constants.CountryUruguay {
		t.Errorf("first market country = %s, want URUGUAY", markets[0].Country.Name)
	}
	if len(markets[1].ParticipantIDs) != 2 || len(markets[2].ParticipantIDs) != 2 {
		t.Errorf("unexpected member sets: A=%v B=%v", markets[1].ParticipantIDs, markets[2].ParticipantIDs)
	}
}

func TestListMarketsByIDs_IgnoresUnknown(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	a := mustMarket(t, s, "A", ar.ID)
	b := mustMarket(t, s, "B", ar.ID)

	markets, err := s.ListMarketsByIDs(ctx, []int64{b.ID, 404, a.ID})
	if err != nil {
		t.Fatalf("ListMarketsByIDs: %v", err)
	}
	if len(markets) != 2 || markets[0].ID != a.ID || markets[1].ID != b.ID {
		t.Errorf("ListMarketsByIDs = %+v", markets)
	}

	none, err := s.ListMarketsByIDs(ctx, nil)
	if err != nil || none != nil {
		t.Errorf("ListMarketsByIDs(nil) = %v, %v", none, err)
	}
}

func TestDeleteMarket_RemovesEdges(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	a := mustMarket(t, s, "A", ar.ID)
	b := mustMarket(t, s, "B", ar.ID)
	p := mustParticipant(t, s, "1", a.ID, b.ID)

	if err := s.DeleteMarket(ctx, a.ID); err != nil {
		t.Fatalf("DeleteMarket: %v", err)
	}

	got, err := s.GetParticipant(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if !equalIDs(got.MarketIDs, []int64{b.ID}) {
		t.Errorf("MarketIDs = %v, want [%d]", got.MarketIDs, b.ID)
	}

	if err := s.DeleteMarket(ctx, a.ID); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("second DeleteMarket error = %v, want ErrMarketNotFound", err)
	}
}

// =============================================================================
// Participant Tests
// =============================================================================

func TestParticipant_CreateAttachesMarkets(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	a := mustMarket(t, s, "A", ar.ID)
	b := mustMarket(t, s, "B", ar.ID)

	p := mustParticipant(t, s, "20-1", b.ID, a.ID, b.ID)
	if !equalIDs(p.MarketIDs, []int64{a.ID, b.ID}) {
		t.Errorf("MarketIDs = %v, want [%d %d]", p.MarketIDs, a.ID, b.ID)
	}

	got, err := s.GetParticipantByIdentification(ctx, "20-1", constants.IdentificationDNI)
	if err != nil || got == nil {
		t.Fatalf("GetParticipantByIdentification = %+v, %v", got, err)
	}
	if !equalIDs(got.MarketIDs, []int64{a.ID, b.ID}) {
		t.Errorf("stored MarketIDs = %v", got.MarketIDs)
	}

	other, err := s.GetParticipantByIdentification(ctx, "20-1", constants.IdentificationCUIT)
	if err != nil || other != nil {
		t.Errorf("lookup with other type = %+v, %v; want nil, nil", other, err)
	}
}

func TestParticipant_UniqueIdentification(t *testing.T) {
	s := setupTestStore(t)

	mustParticipant(t, s, "30-2")
	dup := &Participant{
		Name:               "dup",
		Identification:     "30-2",
		IdentificationType: constants.IdentificationDNI,
	}
	if err := s.CreateParticipant(context.Background(), dup, nil); err == nil {
		t.Fatal("expected unique violation on duplicate identification")
	}

	list, err := s.ListParticipants(context.Background())
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(ListParticipants) = %d, want 1", len(list))
	}
}

func TestParticipant_UpdateAndDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	a := mustMarket(t, s, "A", ar.ID)
	p := mustParticipant(t, s, "1", a.ID)

	if err := s.UpdateParticipantDescription(ctx, p.ID, "updated"); err != nil {
		t.Fatalf("UpdateParticipantDescription: %v", err)
	}
	got, _ := s.GetParticipant(ctx, p.ID)
	if got.Description != "updated" {
		t.Errorf("Description = %q", got.Description)
	}

	if err := s.DeleteParticipant(ctx, p.ID); err != nil {
		t.Fatalf("DeleteParticipant: %v", err)
	}

	m, _ := s.GetMarket(ctx, a.ID)
	if len(m.ParticipantIDs) != 0 {
		t.Errorf("market still lists %v after participant delete", m.ParticipantIDs)
	}
	if err := s.DeleteParticipant(ctx, p.ID); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("second DeleteParticipant error = %v", err)
	}
	if err := s.UpdateParticipantDescription(ctx, p.ID, "x"); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("UpdateParticipantDescription after delete error = %v", err)
	}
}

func TestListParticipantsByMarket(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	a := mustMarket(t, s, "A", ar.ID)
	b := mustMarket(t, s, "B", ar.ID)
	p1 := mustParticipant(t, s, "1", a.ID, b.ID)
	mustParticipant(t, s, "2", b.ID)
	p3 := mustParticipant(t, s, "3", a.ID)

	members, err := s.ListParticipantsByMarket(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListParticipantsByMarket: %v", err)
	}
	if len(members) != 2 || members[0].ID != p1.ID || members[1].ID != p3.ID {
		t.Fatalf("members = %+v", members)
	}
	if !equalIDs(members[0].MarketIDs, []int64{a.ID, b.ID}) {
		t.Errorf("p1 MarketIDs = %v", members[0].MarketIDs)
	}
}

// =============================================================================
// Membership Tests
// =============================================================================

func TestMembership_Symmetry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ar := mustCountry(t, s, constants.CountryArgentina)
	a := mustMarket(t, s, "A", ar.ID)
	p := mustParticipant(t, s, "1")

	if err := s.AddMembership(ctx, a.ID, p.ID); err != nil {
		t.Fatalf("AddMembership: %v", err)
	}

	ok, err := s.HasMembership(ctx, a.ID, p.ID)
	if err != nil || !ok {
		t.Fatalf("HasMembership = %v, %v", ok, err)
	}

	m, _ := s.GetMarket(ctx, a.ID)
	got, _ := s.GetParticipant(ctx, p.ID)
	if !m.HasParticipant(p.ID) || !equalIDs(got.MarketIDs, []int64{a.ID}) {
		t.Errorf("edge not visible on both sides: market=%v participant=%v", m.ParticipantIDs, got.MarketIDs)
	}

	if err := s.AddMembership(ctx, a.ID, p.ID); err == nil {
		t.Error("expected primary key violation on duplicate edge")
	}

	if err := s.RemoveMembership(ctx, a.ID, p.ID); err != nil {
		t.Fatalf("RemoveMembership: %v", err)
	}
	if err := s.RemoveMembership(ctx, a.ID, p.ID); !errors.Is(err, ErrMembershipNotFound) {
		t.Errorf("second RemoveMembership error = %v", err)
	}

	m, _ = s.GetMarket(ctx, a.ID)
	got, _ = s.GetParticipant(ctx, p.ID)
	if len(m.ParticipantIDs) != 0 || len(got.MarketIDs) != 0 {
		t.Errorf("edge still visible: market=%v participant=%v", m.ParticipantIDs, got.MarketIDs)
	}
}

// =============================================================================
// Fault Tests (sqlmock)
// =============================================================================

func TestStore_QueryFaultIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewWithDB(db)
	mock.ExpectQuery("SELECT id, name, created_at FROM countries").
		WillReturnError(sql.ErrConnDone)

	_, err = s.ListCountries(context.Background())
	if !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("ListCountries error = %v, want wrapped ErrConnDone", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_DeleteMissingCountry(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewWithDB(db)
	mock.ExpectExec("DELETE FROM countries").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.DeleteCountry(context.Background(), 7)
	if !errors.Is(err, ErrCountryNotFound) {
		t.Errorf("DeleteCountry error = %v, want ErrCountryNotFound", err)
	}
}

func TestStore_TransactionRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := NewWithDB(db)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM market_participants").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM markets").
		WithArgs(int64(3)).
		WillReturnError(sql.ErrTxDone)
	mock.ExpectRollback()

	if err := s.DeleteMarket(context.Background(), 3); !errors.Is(err, sql.ErrTxDone) {
		t.Errorf("DeleteMarket error = %v, want wrapped ErrTxDone", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
