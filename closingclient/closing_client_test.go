package closingclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/starius/restface"
)

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

var sleeperAPI = &restface.API{
	Type: restface.TypeOf[Sleeper](),
	Endpoints: []restface.Endpoint{
		{
			Method:  "Sleep",
			Request: "POST /sleep?d={d}",
			Params:  []restface.Param{{}, restface.Named("d")},
		},
	},
}

func TestClosingClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sleep", func(w http.ResponseWriter, r *http.Request) {
		d, err := time.ParseDuration(r.URL.Query().Get("d"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		select {
		case <-time.After(d):
		case <-r.Context().Done():
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	ctx := context.Background()
	noRetries := restface.WithRetryer(restface.NeverRetry)

	t.Run("normal client", func(t *testing.T) {
		client, err := restface.NewClient(sleeperAPI, server.URL, noRetries)
		if err != nil {
			t.Fatal(err)
		}

		var errCall, errClose error
		var wg sync.WaitGroup

		t1 := time.Now()

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errCall = client.Invoke(ctx, "Sleep", time.Second)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(100 * time.Millisecond)

			t1 := time.Now()
			errClose = client.Close()
			spent := time.Since(t1)

			if spent > 10*time.Millisecond {
				errClose = fmt.Errorf("Expected Close to spend 0.01s or less, but spent %s.", spent)
			}
		}()

		wg.Wait()

		if errCall != nil {
			t.Errorf("Call failed: %v.", errCall)
		}
		if errClose != nil {
			t.Errorf("Close failed: %v.", errClose)
		}

		spent := time.Since(t1)
		if spent < time.Second {
			t.Errorf("In normal client expected to spend 1s or more, but spent %s.", spent)
		}
	})

	t.Run("closing client", func(t *testing.T) {
		cc := New(&http.Client{})
		client, err := restface.NewClient(sleeperAPI, server.URL, restface.CustomClient(cc), noRetries)
		if err != nil {
			t.Fatal(err)
		}

		var errCall, errClose error
		var wg sync.WaitGroup

		t1 := time.Now()

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errCall = client.Invoke(ctx, "Sleep", time.Second)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(100 * time.Millisecond)

			t1 := time.Now()
			errClose = client.Close()
			spent := time.Since(t1)

			if spent > 50*time.Millisecond {
				errClose = fmt.Errorf("Expected Close to spend 0.05s or less, but spent %s.", spent)
			}
		}()

		wg.Wait()

		if !errors.Is(errCall, context.Canceled) {
			t.Errorf("Call was expected to fail with context.Canceled, got %v.", errCall)
		}
		if errClose != nil {
			t.Errorf("Close failed: %v.", errClose)
		}

		spent := time.Since(t1)
		if spent > time.Second/2 {
			t.Errorf("In closing client expected to spend 0.5s or less, but spent %s.", spent)
		}

		_, err = client.Invoke(ctx, "Sleep", time.Millisecond)
		if !errors.Is(err, ErrClosing) {
			t.Errorf("Call after Close was expected to fail with ErrClosing, got %v.", err)
		}
	})

	t.Run("closing client, many parallel requests", func(t *testing.T) {
		cc := New(&http.Client{})
		client, err := restface.NewClient(sleeperAPI, server.URL, restface.CustomClient(cc), noRetries)
		if err != nil {
			t.Fatal(err)
		}

		var errClose1, errClose2 error
		var wg sync.WaitGroup

		t1 := time.Now()

		n := 50
		wg.Add(n)
		for i := 0; i < n; i++ {
			time.AfterFunc(time.Duration(i)*time.Millisecond*10, func() {
				defer wg.Done()
				_, err := client.Invoke(ctx, "Sleep", 200*time.Millisecond)
				t.Log(i, err)
			})
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(250 * time.Millisecond)

			cc.mu.Lock()
			ncancels := len(cc.cancels)
			cc.mu.Unlock()
			if ncancels >= 25 {
				errClose1 = fmt.Errorf("Expected to have < 25 cancels in the map, got %d", ncancels)
			}

			errClose2 = client.Close()
		}()

		wg.Wait()

		if errClose1 != nil {
			t.Errorf("Close failed: %v.", errClose1)
		}
		if errClose2 != nil {
			t.Errorf("Close failed: %v.", errClose2)
		}

		spent := time.Since(t1)
		if spent > 600*time.Millisecond {
			t.Errorf("Expected to spend 0.6s or less, but spent %s.", spent)
		}
	})
}
