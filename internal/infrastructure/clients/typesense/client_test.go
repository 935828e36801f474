package typesense

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudzz/marketplace/pkg/config"
)

func TestListingSchema(t *testing.T) {
	schema := ListingSchema()
	assert.Equal(t, ListingsCollection, schema.Name)

	types := map[string]string{}
	for _, f := range schema.Fields {
		types[f.Name] = f.Type
	}
	assert.Equal(t, "geopoint", types["location"])
	assert.Equal(t, "string[]", types["services"])
	assert.Equal(t, "int64", types["created_at"])
	require.NotNil(t, schema.DefaultSortingField)
	assert.Equal(t, "created_at", *schema.DefaultSortingField)
}

func TestClient_Integration(t *testing.T) {
	url := os.Getenv("TYPESENSE_TEST_URL")
	if url == "" {
		t.Skip("TYPESENSE_TEST_URL not set")
	}

	client, err := NewClient(&config.TypesenseConfig{URL: url, APIKey: os.Getenv("TYPESENSE_TEST_API_KEY")})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.InitSchema(ctx))
	assert.NoError(t, client.InitSchema(ctx), "second init is a no-op")
}
