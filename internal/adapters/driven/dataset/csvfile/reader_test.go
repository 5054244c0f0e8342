package csvfile

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/features"
)

const diamondsCSV = `,carat,cut,color,clarity,depth,table,price,x,y,z
1,0.23,Ideal,E,SI2,61.5,55,326,3.95,3.98,2.43
2,0.21,Premium,E,SI1,59.8,61,326,3.89,3.84,2.31
3,0.23,Good,E,VS1,56.9,65,327,4.05,4.07,2.31
`

func TestReader_Read(t *testing.T) {
	table, err := NewReader().Read(context.Background(), strings.NewReader(diamondsCSV), "diamonds.csv")

	require.NoError(t, err)
	assert.Equal(t, "diamonds.csv", table.Source)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, domain.RawRecord{
		Cut: "Ideal", Color: "E", Clarity: "SI2",
		Carat: 0.23, Depth: 61.5, Table: 55, Price: 326,
		X: 3.95, Y: 3.98, Z: 2.43,
	}, table.Records[0])
	assert.Equal(t, "Good", table.Records[2].Cut)
}

func TestReader_ColumnOrderAndExtraColumns(t *testing.T) {
	in := "z,y,x,price,table,depth,clarity,color,cut,carat,dealer\n" +
		"2.43,3.98,3.95,326,55,61.5,SI2,E,Ideal,0.23,acme\n"

	table, err := NewReader().Read(context.Background(), strings.NewReader(in), "shuffled")

	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	rec := table.Records[0]
	assert.Equal(t, "Ideal", rec.Cut)
	assert.InDelta(t, 0.23, rec.Carat, 1e-12)
	assert.InDelta(t, 2.43, rec.Z, 1e-12)
}

func TestReader_MissingColumns(t *testing.T) {
	in := "carat,cut,color,depth,table,x,y,z\n0.23,Ideal,E,61.5,55,3.95,3.98,2.43\n"

	_, err := NewReader().Read(context.Background(), strings.NewReader(in), "partial.csv")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchema))
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"clarity", "price"}, schemaErr.Missing)
}

func TestReader_EmptyInputIsSchemaError(t *testing.T) {
	_, err := NewReader().Read(context.Background(), strings.NewReader(""), "empty.csv")

	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestReader_HeaderOnly(t *testing.T) {
	in := "carat,cut,color,clarity,depth,table,price,x,y,z\n"

	table, err := NewReader().Read(context.Background(), strings.NewReader(in), "header.csv")

	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestReader_MissingValues(t *testing.T) {
	in := "carat,cut,color,clarity,depth,table,price,x,y,z\n" +
		",Ideal,E,SI2,61.5,55,326,3.95,3.98,2.43\n" +
		"0.23,NA,E,SI2,61.5,55,326,3.95,3.98,2.43\n" +
		"0.23,Ideal,E,SI2,abc,55,326,3.95,3.98,2.43\n" +
		"0.23,Ideal,E,SI2,61.5,55,326,3.95\n"

	table, err := NewReader().Read(context.Background(), strings.NewReader(in), "holes.csv")

	require.NoError(t, err)
	require.Equal(t, 4, table.Len())
	assert.True(t, math.IsNaN(table.Records[0].Carat))
	assert.Empty(t, table.Records[1].Cut)
	assert.True(t, math.IsNaN(table.Records[2].Depth), "unparsable numbers are missing")
	assert.True(t, math.IsNaN(table.Records[3].Y), "short rows are missing trailing values")
	for _, rec := range table.Records {
		assert.True(t, rec.HasMissing())
	}
}

func TestReader_BOMAndSpacesInHeader(t *testing.T) {
	in := "\ufeffcarat, cut ,color,clarity,depth,table,price,x,y,z\n" +
		"0.23,Ideal,E,SI2,61.5,55,326,3.95,3.98,2.43\n"

	table, err := NewReader().Read(context.Background(), strings.NewReader(in), "bom.csv")

	require.NoError(t, err)
	assert.Equal(t, "Ideal", table.Records[0].Cut)
}

func TestReader_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diamonds.csv")
	require.NoError(t, os.WriteFile(path, []byte(diamondsCSV), 0644))

	table, err := NewReader().ReadFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, path, table.Source)
	assert.Equal(t, 3, table.Len())
}

func TestReader_StrayQuoteKeepsOtherRows(t *testing.T) {
	in := ",carat,cut,color,clarity,depth,table,price,x,y,z\n" +
		"1,0.23,Ideal,E,SI2,61.5,55,326,3.95,3.98,2.43\n" +
		"2,0.21,Pre\"mium,E,SI1,59.8,61,326,3.89,3.84,2.31\n" +
		"3,0.23,Good,E,VS1,56.9,65,327,4.05,4.07,2.31\n"

	table, err := NewReader().Read(context.Background(), strings.NewReader(in), "stray.csv")

	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, "Ideal", table.Records[0].Cut)
	assert.Equal(t, `Pre"mium`, table.Records[1].Cut)
	assert.Equal(t, "Good", table.Records[2].Cut)
	assert.Equal(t, 327.0, table.Records[2].Price)

	set, stats, err := features.Encode(table)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 1, stats.DroppedUnknown)
}

func TestReader_ReadFileMissing(t *testing.T) {
	_, err := NewReader().ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReader_CancelledContext(t *testing.T) {
	var b strings.Builder
	b.WriteString("carat,cut,color,clarity,depth,table,price,x,y,z\n")
	for i := 0; i < 2*checkEvery; i++ {
		b.WriteString("0.23,Ideal,E,SI2,61.5,55,326,3.95,3.98,2.43\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader().Read(ctx, strings.NewReader(b.String()), "big.csv")

	assert.ErrorIs(t, err, context.Canceled)
}
