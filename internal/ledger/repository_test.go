package ledger

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// rowFunc adapts a function to pgx.Row for scan tests.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

func TestScanProductToleratesNullUpdatedBy(t *testing.T) {
	now := time.Now().UTC()
	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*int64)) = 42
		*(dest[1].(*string)) = "WID-9"
		*(dest[2].(*float64)) = 12
		*(dest[3].(*float64)) = 2.5
		*(dest[4].(*float64)) = 4
		*(dest[5].(*float64)) = 3
		*(dest[6].(*int64)) = 7
		*(dest[7].(**int64)) = nil
		*(dest[8].(*time.Time)) = now
		return nil
	})

	product, err := scanProduct(row)
	require.NoError(t, err)
	require.Equal(t, int64(42), product.ID)
	require.Equal(t, "WID-9", product.SKU)
	require.InDelta(t, 12.0, product.StockQuantity, 0.0001)
	require.Zero(t, product.UpdatedBy)
	require.Equal(t, now, product.UpdatedAt)
}

func TestScanProductCarriesUpdatedBy(t *testing.T) {
	updatedBy := int64(9)
	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*int64)) = 1
		*(dest[1].(*string)) = "WID-1"
		*(dest[7].(**int64)) = &updatedBy
		return nil
	})

	product, err := scanProduct(row)
	require.NoError(t, err)
	require.Equal(t, int64(9), product.UpdatedBy)
}

func TestScanProductMapsNoRows(t *testing.T) {
	row := rowFunc(func(dest ...any) error { return pgx.ErrNoRows })

	_, err := scanProduct(row)
	require.ErrorIs(t, err, ErrProductNotFound)
}
