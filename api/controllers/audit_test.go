package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	auditsvc "github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/pkg/pagination"
)

type testAuditService struct {
	listFn func(ctx context.Context, params pagination.Params) (*auditsvc.LogListResult, error)
}

func (s *testAuditService) List(ctx context.Context, params pagination.Params) (*auditsvc.LogListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &auditsvc.LogListResult{Logs: []auditsvc.LogDTO{}}, nil
}

func TestAdminListAuditLogsPassesPagination(t *testing.T) {
	var got pagination.Params
	svc := &testAuditService{
		listFn: func(ctx context.Context, params pagination.Params) (*auditsvc.LogListResult, error) {
			got = params
			return &auditsvc.LogListResult{Logs: []auditsvc.LogDTO{{ID: uuid.New()}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit-logs?limit=10&cursor=abc", nil)
	resp := httptest.NewRecorder()
	AdminListAuditLogs(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Limit != 10 {
		t.Fatalf("unexpected limit %d", got.Limit)
	}
	if got.Cursor != "abc" {
		t.Fatalf("unexpected cursor %q", got.Cursor)
	}
}

func TestAdminListAuditLogsDefaultsLimit(t *testing.T) {
	var got pagination.Params
	svc := &testAuditService{
		listFn: func(ctx context.Context, params pagination.Params) (*auditsvc.LogListResult, error) {
			got = params
			return &auditsvc.LogListResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit-logs", nil)
	resp := httptest.NewRecorder()
	AdminListAuditLogs(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.Limit != pagination.DefaultLimit {
		t.Fatalf("unexpected default limit %d", got.Limit)
	}
}

func TestAdminListAuditLogsRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit-logs?limit=oops", nil)
	resp := httptest.NewRecorder()
	AdminListAuditLogs(&testAuditService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
