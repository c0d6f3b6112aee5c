package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/shared"
)

func permissionsRouter() http.Handler {
	svc := NewService()
	r := chi.NewRouter()
	r.Route("/permissions", NewPermissionsHandler(svc, Middleware{Service: svc}).MountRoutes)
	return r
}

func getAs(h http.Handler, p *shared.Principal, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMyPermissions(t *testing.T) {
	h := permissionsRouter()

	rec := getAs(h, &shared.Principal{UserID: 5, Role: shared.RoleSeller}, "/permissions/me")
	require.Equal(t, http.StatusOK, rec.Code)
	var g Grant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, shared.RoleSeller, g.Role)
	assert.Contains(t, g.Permissions, shared.PermProductsManageOwn)
	assert.NotContains(t, g.Permissions, shared.PermAuditView)

	assert.Equal(t, http.StatusUnauthorized, getAs(h, nil, "/permissions/me").Code)
}

func TestPermissionTableAdminOnly(t *testing.T) {
	h := permissionsRouter()

	assert.Equal(t, http.StatusForbidden, getAs(h, &shared.Principal{UserID: 2, Role: shared.RoleSales}, "/permissions").Code)

	rec := getAs(h, &shared.Principal{UserID: 1, Role: shared.RoleAdmin}, "/permissions")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Grant `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 4)
}
