package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/peersenco/storefront-backend/api/middleware"
	"github.com/peersenco/storefront-backend/internal/addresses"
	"github.com/peersenco/storefront-backend/internal/favorites"
	"github.com/peersenco/storefront-backend/internal/users"
	"github.com/peersenco/storefront-backend/pkg/pagination"
)

type stubProfiles struct {
	userID uuid.UUID
	update users.UpdateProfileInput
}

func (s *stubProfiles) Get(_ context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	s.userID = userID
	return &users.UserDTO{ID: userID, Email: "kari@example.no"}, nil
}

func (s *stubProfiles) Update(_ context.Context, userID uuid.UUID, input users.UpdateProfileInput) (*users.UserDTO, error) {
	s.userID = userID
	s.update = input
	return &users.UserDTO{ID: userID}, nil
}

type stubAddresses struct {
	userID    uuid.UUID
	addressID uuid.UUID
	created   addresses.AddressInput
	defaulted bool
}

func (s *stubAddresses) List(_ context.Context, userID uuid.UUID) ([]addresses.AddressDTO, error) {
	s.userID = userID
	return []addresses.AddressDTO{}, nil
}

func (s *stubAddresses) Create(_ context.Context, userID uuid.UUID, input addresses.AddressInput) (*addresses.AddressDTO, error) {
	s.userID = userID
	s.created = input
	return &addresses.AddressDTO{ID: uuid.New(), IsDefault: true}, nil
}

func (s *stubAddresses) Update(_ context.Context, userID, id uuid.UUID, input addresses.AddressInput) (*addresses.AddressDTO, error) {
	s.userID, s.addressID = userID, id
	return &addresses.AddressDTO{ID: id}, nil
}

func (s *stubAddresses) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.userID, s.addressID = userID, id
	return nil
}

func (s *stubAddresses) SetDefault(_ context.Context, userID, id uuid.UUID) error {
	s.userID, s.addressID = userID, id
	s.defaulted = true
	return nil
}

type stubFavorites struct {
	added   uuid.UUID
	removed uuid.UUID
	params  pagination.Params
}

func (s *stubFavorites) List(_ context.Context, _ uuid.UUID, params pagination.Params) (favorites.FavoritesPageDTO, error) {
	s.params = params
	return favorites.FavoritesPageDTO{Items: []favorites.FavoriteDTO{}}, nil
}

func (s *stubFavorites) Add(_ context.Context, _ uuid.UUID, productID uuid.UUID) error {
	s.added = productID
	return nil
}

func (s *stubFavorites) Remove(_ context.Context, _ uuid.UUID, productID uuid.UUID) error {
	s.removed = productID
	return nil
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestMeUpdatePassesOnlyProvidedFields(t *testing.T) {
	svc := &stubProfiles{}
	userID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{"phone":"+4799999999"}`)), userID)
	rec := httptest.NewRecorder()
	MeUpdate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.userID != userID || svc.update.FullName != nil || svc.update.Phone == nil {
		t.Fatalf("unexpected update %+v", svc.update)
	}
}

func TestMeGetRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	MeGet(&stubProfiles{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAddressCreateValidatesPostalCode(t *testing.T) {
	svc := &stubAddresses{}
	body := `{"first_name":"Kari","last_name":"Nordmann","address_line1":"Storgata 1","postal_code":"01","city":"Oslo"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/addresses", strings.NewReader(body)), uuid.New())
	rec := httptest.NewRecorder()
	AddressCreate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAddressCreate(t *testing.T) {
	svc := &stubAddresses{}
	userID := uuid.New()
	body := `{"first_name":"Kari","last_name":"Nordmann","address_line1":"Storgata 1","postal_code":"0155","city":"Oslo"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/api/addresses", strings.NewReader(body)), userID)
	rec := httptest.NewRecorder()
	AddressCreate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.userID != userID || svc.created.City != "Oslo" {
		t.Fatalf("unexpected create %+v", svc.created)
	}
}

func TestAddressSetDefault(t *testing.T) {
	svc := &stubAddresses{}
	r := chi.NewRouter()
	r.Post("/api/addresses/{addressId}/default", AddressSetDefault(svc, nil))

	addressID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPost, "/api/addresses/"+addressID.String()+"/default", nil), uuid.New())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.defaulted || svc.addressID != addressID {
		t.Fatalf("expected %s set as default", addressID)
	}
}

func TestFavoritesAddAndRemove(t *testing.T) {
	svc := &stubFavorites{}
	r := chi.NewRouter()
	r.Put("/api/favorites/{productId}", FavoritesAdd(svc, nil))
	r.Delete("/api/favorites/{productId}", FavoritesRemove(svc, nil))
	r.Get("/api/favorites", FavoritesList(svc, nil))

	userID := uuid.New()
	productID := uuid.New()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPut, "/api/favorites/"+productID.String(), nil), userID))
	if rec.Code != http.StatusOK || svc.added != productID {
		t.Fatalf("add: status %d added %s", rec.Code, svc.added)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/favorites/"+productID.String(), nil), userID))
	if rec.Code != http.StatusOK || svc.removed != productID {
		t.Fatalf("remove: status %d removed %s", rec.Code, svc.removed)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/favorites?limit=10", nil), userID))
	if rec.Code != http.StatusOK || svc.params.Limit != 10 {
		t.Fatalf("list: status %d params %+v", rec.Code, svc.params)
	}
}
