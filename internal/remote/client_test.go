package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/remote"
)

func newClient(t *testing.T, h http.HandlerFunc, opts ...remote.Option) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := remote.NewClient(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestFetchCategoriesEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
		err  error
	}{
		{"bare array", `[{"id":1,"name":"Cascos","active":true},{"id":2,"name":"Guantes","active":true,"parentId":1}]`, 2, nil},
		{"data envelope", ` {"data":[{"id":1,"name":"Cascos","active":true}]}`, 1, nil},
		{"empty array", `[]`, 0, nil},
		{"empty data", `{"data":[]}`, 0, nil},
		{"object without data", `{"items":[]}`, 0, remote.ErrMalformedResponse},
		{"null data", `{"data":null}`, 0, remote.ErrMalformedResponse},
		{"scalar", `"nope"`, 0, remote.ErrMalformedResponse},
		{"broken json", `[{"id":1`, 0, remote.ErrMalformedResponse},
		{"invalid record", `[{"id":0,"name":""}]`, 0, remote.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/categories", r.URL.Path)
				assert.Equal(t, "true", r.URL.Query().Get("active"))
				_, _ = w.Write([]byte(tc.body))
			})
			cats, err := c.FetchCategories(context.Background())
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, cats, tc.want)
			assert.NotNil(t, cats)
		})
	}
}

func TestFetchProductsQueryAndToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("categoryId"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"id":10,"name":"Casco X","basePrice":"120000","onlinePrice":"110000","categoryId":7,"imageId":"abc","imageExt":"jpg"}]}`))
	}, remote.WithToken("s3cret"))

	products, err := c.FetchProducts(context.Background(), 7, 50)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "120000", products[0].BasePrice.String())
	assert.True(t, products[0].OnlinePrice.Valid)
	assert.False(t, products[0].PromoOnlinePrice.Valid)
}

func TestFetchFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.FetchProducts(context.Background(), 1, 10)
		assert.ErrorIs(t, err, remote.ErrRemoteFetchFailed)
		assert.False(t, errors.Is(err, remote.ErrMalformedResponse))
	})

	t.Run("deadline", func(t *testing.T) {
		release := make(chan struct{})
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, remote.WithTimeout(50*time.Millisecond))
		defer close(release)

		start := time.Now()
		_, err := c.FetchCategories(context.Background())
		assert.ErrorIs(t, err, remote.ErrRemoteFetchFailed)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := remote.NewClient("not a url")
	assert.Error(t, err)
}

func TestFetchStock(t *testing.T) {
	cases := []struct {
		name string
		body string
		qty  int
		err  error
	}{
		{"bare", `{"productId":5,"qty":3}`, 3, nil},
		{"envelope", `{"data":{"productId":5,"qty":12}}`, 12, nil},
		{"missing id is filled", `{"qty":1}`, 1, nil},
		{"array", `[{"productId":5,"qty":3}]`, 0, remote.ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/products/5/stock", r.URL.Path)
				_, _ = w.Write([]byte(tc.body))
			})
			lvl, err := c.FetchStock(context.Background(), 5)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, 5, lvl.ProductID)
			assert.Equal(t, tc.qty, lvl.Qty)
		})
	}
}
