package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/hwmond/internal/api"
	"codeberg.org/mutker/hwmond/internal/errors"
)

func TestServerServesAndShutsDown(t *testing.T) {
	env := newTestEnv()
	srv, err := api.NewServer("127.0.0.1:0", env.router)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- srv.Start()
	}()

	url := "http://" + srv.Address() + "/health"
	var status int
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		status = resp.StatusCode

		return true
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, http.StatusOK, status)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}

func TestNewServerAddressConflict(t *testing.T) {
	env := newTestEnv()
	first, err := api.NewServer("127.0.0.1:0", env.router)
	require.NoError(t, err)

	_, err = api.NewServer(first.Address(), env.router)
	require.Error(t, err)
	assert.Equal(t, errors.ErrServerStart, errors.CodeOf(err))
}
