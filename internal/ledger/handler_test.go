package ledger

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestRecordMovementEndpointSpeaksSnakeCase(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = Product{ID: 1, SKU: "WID-1", StockQuantity: 10, CostPrice: 3, CompanyID: 7}
	svc := NewService(repo, nil, nil)
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

	router := chi.NewRouter()
	handler.MountRoutes(router)

	body := `{"product_id":1,"type":"out","quantity":4,"reason":"cycle count","processed_by":9,"company_id":7}`
	req := httptest.NewRequest(http.MethodPost, "/stock-movements", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.movements, 1)
	require.Equal(t, int64(1), repo.movements[0].ProductID)
	require.Equal(t, MovementOut, repo.movements[0].Type)
	require.Equal(t, int64(9), repo.movements[0].ProcessedBy)

	var created StockMovement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.InDelta(t, 10.0, created.StockBefore, 0.0001)
	require.InDelta(t, 6.0, created.StockAfter, 0.0001)
}
