package protobufcodec

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/starius/restface"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type Clock interface {
	Shift(ctx context.Context, at *timestamppb.Timestamp, by string) (*timestamppb.Timestamp, error)
	Uptime(ctx context.Context) (*durationpb.Duration, error)
	Zone(ctx context.Context) (string, error)
}

var clockAPI = &restface.API{
	Type: restface.TypeOf[Clock](),
	Endpoints: []restface.Endpoint{
		{Method: "Shift", Request: "POST /shift?by={by}", Params: []restface.Param{{}, {}, restface.Named("by")}},
		{Method: "Uptime", Request: "GET /uptime"},
		{Method: "Zone", Request: "GET /zone"},
	},
}

func newClockServer(t *testing.T, jsonFormat bool) *httptest.Server {
	marshal := proto.Marshal
	unmarshal := proto.Unmarshal
	if jsonFormat {
		marshal = protojson.Marshal
		unmarshal = protojson.Unmarshal
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /shift", func(w http.ResponseWriter, r *http.Request) {
		want := ContentType
		if jsonFormat {
			want = JsonContentType
		}
		if r.Header.Get("Content-Type") != want {
			http.Error(w, "unexpected content type", http.StatusUnsupportedMediaType)
			return
		}
		by, err := time.ParseDuration(r.URL.Query().Get("by"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var at timestamppb.Timestamp
		if err := unmarshal(body, &at); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res, err := marshal(timestamppb.New(at.AsTime().Add(by)))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(res)
	})
	mux.HandleFunc("GET /uptime", func(w http.ResponseWriter, r *http.Request) {
		res, err := marshal(durationpb.New(90 * time.Minute))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(res)
	})
	mux.HandleFunc("GET /zone", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("UTC"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCodec(t *testing.T) {
	for _, jsonFormat := range []bool{false, true} {
		name := "binary"
		if jsonFormat {
			name = "json"
		}
		t.Run(name, func(t *testing.T) {
			server := newClockServer(t, jsonFormat)
			codec := Codec{JSON: jsonFormat}
			client, err := restface.NewClient(clockAPI, server.URL,
				restface.WithEncoder(codec),
				restface.WithDecoder(codec),
			)
			require.NoError(t, err)
			ctx := context.Background()

			at := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
			got, err := restface.Call[*timestamppb.Timestamp](ctx, client, "Shift", timestamppb.New(at), "36h")
			require.NoError(t, err)
			if diff := cmp.Diff(timestamppb.New(at.Add(36*time.Hour)), got, protocmp.Transform()); diff != "" {
				t.Errorf("unexpected result (-want +got):\n%s", diff)
			}

			uptime, err := restface.Call[*durationpb.Duration](ctx, client, "Uptime")
			require.NoError(t, err)
			require.Equal(t, 90*time.Minute, uptime.AsDuration())

			// Non-proto results go to the next decoder.
			zone, err := restface.Call[string](ctx, client, "Zone")
			require.NoError(t, err)
			require.Equal(t, "UTC", zone)
		})
	}
}

func TestCodecBadMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xff, 0xff, 0xff})
	}))
	defer server.Close()

	client, err := restface.NewClient(clockAPI, server.URL, restface.WithDecoder(Codec{}))
	require.NoError(t, err)

	_, err = restface.Call[*durationpb.Duration](context.Background(), client, "Uptime")
	var decodeErr *restface.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.ErrorContains(t, err, "failed to unmarshal")
}
