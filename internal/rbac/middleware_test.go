package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrotrade/agrotrade/internal/shared"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, p *shared.Principal) int {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(context.Background(), p))
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	m := Middleware{Service: NewService()}

	assert.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAny(shared.PermProductsView), nil))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.PermProductsView), &shared.Principal{UserID: 1, Role: shared.RoleBuyer}))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny(shared.PermReportsExport), &shared.Principal{UserID: 1, Role: shared.RoleBuyer}))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.PermReportsExport), &shared.Principal{UserID: 2, Role: shared.RoleSales}))
}

func TestRequireAll(t *testing.T) {
	m := Middleware{Service: NewService()}
	seller := &shared.Principal{UserID: 3, Role: shared.RoleSeller}

	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAll(shared.PermProductsView, shared.PermProductsManageOwn), seller))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAll(shared.PermProductsManageOwn, shared.PermProductsManageAll), seller))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAll(shared.PermProductsManageOwn, shared.PermProductsManageAll), &shared.Principal{Role: shared.RoleAdmin}))
}

func TestRequireRole(t *testing.T) {
	m := Middleware{Service: NewService()}
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireRole(shared.RoleAdmin, shared.RoleSales), &shared.Principal{Role: shared.RoleSales}))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireRole(shared.RoleAdmin), &shared.Principal{Role: shared.RoleSeller}))
	assert.Equal(t, http.StatusUnauthorized, serve(t, m.RequireRole(shared.RoleAdmin), nil))
}

func TestServiceCan(t *testing.T) {
	s := NewService()
	assert.True(t, s.Can(&shared.Principal{Role: shared.RoleAdmin}, shared.PermOrdersDelete))
	assert.False(t, s.Can(&shared.Principal{Role: shared.RoleSales}, shared.PermOrdersDelete))
	assert.False(t, s.Can(nil, shared.PermProductsView))
	assert.Len(t, s.Grants(context.Background()), 4)
}

type failingSource struct{}

func (failingSource) EffectivePermissions(context.Context, shared.Role) ([]string, error) {
	return nil, errors.New("grants unavailable")
}

func TestRequireAnySourceError(t *testing.T) {
	m := Middleware{Service: failingSource{}}
	assert.Equal(t, http.StatusInternalServerError, serve(t, m.RequireAny(shared.PermProductsView), &shared.Principal{Role: shared.RoleBuyer}))
}

func TestPermissionNamesAreCaseInsensitive(t *testing.T) {
	m := Middleware{Service: NewService()}
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(" Products.View "), &shared.Principal{Role: shared.RoleBuyer}))
	assert.True(t, NewService().Can(&shared.Principal{Role: shared.RoleSeller}, "PRODUCTS.MANAGE.OWN"))
}
