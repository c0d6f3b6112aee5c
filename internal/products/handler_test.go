package products

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/shared"
)

type catalogueAPI struct {
	router http.Handler
	repo   *memoryRepo
	images *memoryImages
}

func newCatalogueAPI(t *testing.T) catalogueAPI {
	t.Helper()
	svc, repo, images, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/products", NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService()}, 1<<20).MountRoutes)
	return catalogueAPI{router: r, repo: repo, images: images}
}

func (a catalogueAPI) serve(p *shared.Principal, req *http.Request) *httptest.ResponseRecorder {
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a catalogueAPI) send(p *shared.Principal, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.serve(p, req)
}

func (a catalogueAPI) upload(p *shared.Principal, path, field string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "photo.png")
	if err != nil {
		panic(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.serve(p, req)
}

const createBody = `{"name":"Whole cashew","category":"CASHEW","grade":"w240","price_per_kg":9.5,"stock_kg":300,"min_order_kg":25}`

func TestCreateProductEndpoint(t *testing.T) {
	api := newCatalogueAPI(t)

	rec := api.send(seller, http.MethodPost, "/products", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prod Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prod))
	assert.Equal(t, seller.UserID, prod.SellerID)
	assert.Equal(t, "W240", prod.Grade)
	assert.True(t, strings.HasPrefix(prod.SKU, "CASHEW-W240-"))

	rec = api.send(buyer, http.MethodPost, "/products", createBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.send(seller, http.MethodPost, "/products", `{"name":"Rice","category":"RICE","grade":"A","price_per_kg":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":"oneof"`)

	rec = api.send(seller, http.MethodPost, "/products", `{"name":"x","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductReadEndpoints(t *testing.T) {
	api := newCatalogueAPI(t)
	rec := api.send(seller, http.MethodPost, "/products", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.send(buyer, http.MethodGet, "/products?category=cashew", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
	require.NotEmpty(t, api.repo.filters)
	assert.Equal(t, "CASHEW", api.repo.filters[len(api.repo.filters)-1].Category)

	rec = api.send(buyer, http.MethodGet, "/products/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.send(buyer, http.MethodGet, "/products/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.send(buyer, http.MethodGet, "/products/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.send(buyer, http.MethodGet, "/products/1/price-history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestListRejectsMalformedFilters(t *testing.T) {
	api := newCatalogueAPI(t)

	rec := api.send(buyer, http.MethodGet, "/products?min_price=cheap&in_stock=maybe", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"min_price":"number"`)
	assert.Contains(t, rec.Body.String(), `"in_stock":"boolean"`)

	rec = api.send(buyer, http.MethodGet, "/products?page=9223372036854775807", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"page":"max"`)
	assert.Empty(t, api.repo.filters)
}

func TestUpdateProductEndpoint(t *testing.T) {
	api := newCatalogueAPI(t)
	rec := api.send(seller, http.MethodPost, "/products", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.send(otherSeller, http.MethodPatch, "/products/1", `{"price_per_kg":5}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.send(seller, http.MethodPatch, "/products/1", `{"price_per_kg":10.25}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 10.25, api.repo.products[1].PricePerKg, 1e-9)
	assert.Len(t, api.repo.history, 1)
}

func TestProductImageEndpoints(t *testing.T) {
	api := newCatalogueAPI(t)
	rec := api.send(seller, http.MethodPost, "/products", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.upload(seller, "/products/1/images", "photo", []byte("png"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "wrong field name")

	rec = api.upload(otherSeller, "/products/1/images", "file", []byte("png"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.upload(seller, "/products/1/images", "file", []byte("png"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var img Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	assert.Equal(t, "products/1/img.png", img.Key)
	assert.True(t, api.images.stored[img.Key])

	rec = api.send(seller, http.MethodDelete, "/products/1/images", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.send(seller, http.MethodDelete, "/products/1/images?key="+img.Key, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, api.images.stored[img.Key])
	assert.Empty(t, api.repo.products[1].ImageKeys)
}

func TestDeleteProductEndpoint(t *testing.T) {
	api := newCatalogueAPI(t)
	rec := api.send(seller, http.MethodPost, "/products", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.send(buyer, http.MethodDelete, "/products/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.send(admin, http.MethodDelete, "/products/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.send(admin, http.MethodDelete, "/products/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
