package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/api/middleware"
	personsvc "github.com/assetdesk/assetdesk-backend/internal/persons"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
)

type testPersonService struct {
	createFn func(ctx context.Context, actorID uuid.UUID, input personsvc.CreateInput) (*personsvc.PersonDTO, error)
	updateFn func(ctx context.Context, actorID, personID uuid.UUID, input personsvc.UpdateInput) (*personsvc.PersonDTO, error)
	deleteFn func(ctx context.Context, actorID, personID uuid.UUID) error
	searchFn func(ctx context.Context, query string) ([]personsvc.PersonDTO, error)
	getFn    func(ctx context.Context, personID uuid.UUID) (*personsvc.PersonDetailDTO, error)
}

func (s *testPersonService) Create(ctx context.Context, actorID uuid.UUID, input personsvc.CreateInput) (*personsvc.PersonDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, actorID, input)
	}
	return &personsvc.PersonDTO{ID: uuid.New()}, nil
}

func (s *testPersonService) Update(ctx context.Context, actorID, personID uuid.UUID, input personsvc.UpdateInput) (*personsvc.PersonDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, actorID, personID, input)
	}
	return &personsvc.PersonDTO{ID: personID}, nil
}

func (s *testPersonService) Delete(ctx context.Context, actorID, personID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, actorID, personID)
	}
	return nil
}

func (s *testPersonService) Search(ctx context.Context, query string) ([]personsvc.PersonDTO, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, query)
	}
	return []personsvc.PersonDTO{}, nil
}

func (s *testPersonService) Get(ctx context.Context, personID uuid.UUID) (*personsvc.PersonDetailDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, personID)
	}
	return &personsvc.PersonDetailDTO{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withActor(req *http.Request, actorID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), actorID.String()))
}

func TestCreatePersonSuccess(t *testing.T) {
	actor := uuid.New()
	called := false
	svc := &testPersonService{
		createFn: func(ctx context.Context, actorID uuid.UUID, input personsvc.CreateInput) (*personsvc.PersonDTO, error) {
			called = true
			if actorID != actor {
				t.Fatalf("unexpected actor %s", actorID)
			}
			if input.Email != "jane@corp.test" {
				t.Fatalf("unexpected email %q", input.Email)
			}
			return &personsvc.PersonDTO{ID: uuid.New(), Email: input.Email}, nil
		},
	}

	body := `{"first_name":"Jane","last_name":"Doe","email":"jane@corp.test","department":"IT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withActor(req, actor)

	resp := httptest.NewRecorder()
	CreatePerson(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestCreatePersonMissingUser(t *testing.T) {
	body := `{"first_name":"Jane","last_name":"Doe","email":"jane@corp.test","department":"IT"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePerson(&testPersonService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreatePersonRejectsInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(`{"first_name":"Jane"}`))
	req = withActor(req, uuid.New())
	resp := httptest.NewRecorder()
	CreatePerson(&testPersonService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListPersonsPassesQuery(t *testing.T) {
	var gotQuery string
	svc := &testPersonService{
		searchFn: func(ctx context.Context, query string) ([]personsvc.PersonDTO, error) {
			gotQuery = query
			return []personsvc.PersonDTO{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/persons?q=engineering", nil)
	resp := httptest.NewRecorder()
	ListPersons(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotQuery != "engineering" {
		t.Fatalf("expected search query passed through, got %q", gotQuery)
	}

	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if _, ok := envelope.Data["persons"]; !ok {
		t.Fatal("response missing persons key")
	}
}

func TestGetPersonInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/persons/invalid", nil)
	req = addRouteParam(req, "personId", "invalid")
	resp := httptest.NewRecorder()
	GetPerson(&testPersonService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeletePersonRoutesTarget(t *testing.T) {
	actor := uuid.New()
	target := uuid.New()
	svc := &testPersonService{
		deleteFn: func(ctx context.Context, actorID, personID uuid.UUID) error {
			if actorID != actor {
				t.Fatalf("unexpected actor %s", actorID)
			}
			if personID != target {
				t.Fatalf("unexpected person %s", personID)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/persons/"+target.String(), nil)
	req = withActor(req, actor)
	req = addRouteParam(req, "personId", target.String())
	resp := httptest.NewRecorder()
	DeletePerson(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
