package grpc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/seal-tracker/internal/dal"
	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/pubsub"
	"github.com/Billy-Davies-2/seal-tracker/internal/service"
	"github.com/Billy-Davies-2/seal-tracker/internal/source"
)

func init() {
	logger.Init()
}

const feed = `{
  "generated_at": "2025-03-01T08:00:00Z",
  "summary": {"200_seal_count": 2, "50_seal_count": 1},
  "players": {
    "200_seal": [
      {"name": "Lionel Messi", "slug": "lionel-andres-messi-cuccittini", "seal": 200, "previous_seal": 50, "price_limited_eur": 12},
      {"name": "Pedri", "slug": "pedro-gonzalez-lopez", "seal": 200, "previous_seal": 200, "price_limited_eur": 3}
    ],
    "50_seal": [
      {"name": "Nico Williams", "slug": "nicholas-williams-arthuer", "seal": 50, "previous_seal": 50, "price_limited_eur": 2}
    ]
  }
}`

func newTestClient(t *testing.T, load bool) (*Client, *service.SealService) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seal_data.json")
	if err := os.WriteFile(path, []byte(feed), 0o644); err != nil {
		t.Fatalf("failed to write feed: %v", err)
	}
	svc := service.New(source.NewFileSource(path), dal.NewMemoryDAL(), nil, pubsub.New(), service.Options{})
	if load {
		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() failed: %v", err)
		}
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterTableServiceServer(srv, NewServer(svc, models.DefaultViewState()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn), svc
}

func decodeStruct(t *testing.T, s *structpb.Struct, v interface{}) {
	t.Helper()
	data, err := protojson.Marshal(s)
	if err != nil {
		t.Fatalf("failed to marshal struct: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
}

func TestQuery(t *testing.T) {
	client, _ := newTestClient(t, true)
	ctx := context.Background()

	req, _ := structpb.NewStruct(map[string]interface{}{
		"tier":      "all",
		"direction": "desc",
		"pageSize":  2,
	})
	out, err := client.Query(ctx, req)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	var result models.ViewResult
	decodeStruct(t, out, &result)
	if result.TotalCount != 3 || result.TotalPages != 2 || len(result.Items) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Items[0].Slug != "lionel-andres-messi-cuccittini" || result.Items[1].Slug != "pedro-gonzalez-lopez" {
		t.Errorf("unexpected order %s, %s", result.Items[0].Slug, result.Items[1].Slug)
	}
}

func TestQueryInvalid(t *testing.T) {
	client, _ := newTestClient(t, true)

	for _, fields := range []map[string]interface{}{
		{"cardType": "gold"},
		{"page": 0},
		{"tier": []interface{}{"200"}},
	} {
		req, _ := structpb.NewStruct(fields)
		_, err := client.Query(context.Background(), req)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%v: expected InvalidArgument, got %v", fields, err)
		}
	}
}

func TestQueryNotLoaded(t *testing.T) {
	client, _ := newTestClient(t, false)

	_, err := client.Query(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.Unavailable {
		t.Errorf("expected Unavailable, got %v", err)
	}
}

func TestGetPlayer(t *testing.T) {
	client, _ := newTestClient(t, true)
	ctx := context.Background()

	req, _ := structpb.NewStruct(map[string]interface{}{"slug": "pedro-gonzalez-lopez"})
	out, err := client.GetPlayer(ctx, req)
	if err != nil {
		t.Fatalf("GetPlayer() failed: %v", err)
	}
	var rec models.PlayerRecord
	decodeStruct(t, out, &rec)
	if rec.Name != "Pedri" {
		t.Errorf("expected Pedri, got %q", rec.Name)
	}
	if r := rec.Ratios[models.CardLimited]; !r.Valid || r.Decimal.String() != "0.015" {
		t.Errorf("expected ratio 0.015, got %v", r)
	}

	req, _ = structpb.NewStruct(map[string]interface{}{"slug": "nobody"})
	if _, err := client.GetPlayer(ctx, req); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := client.GetPlayer(ctx, &structpb.Struct{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	client, _ := newTestClient(t, true)

	out, err := client.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	var sum models.Summary
	decodeStruct(t, out, &sum)
	if sum.Total != 3 || sum.Changed != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestWatchEvents(t *testing.T) {
	client, _ := newTestClient(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.WatchEvents(ctx)
	if err != nil {
		t.Fatalf("WatchEvents() failed: %v", err)
	}
	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() failed: %v", err)
	}
	if first.Fields["type"].GetStringValue() != "connected" {
		t.Fatalf("expected connected event, got %v", first)
	}

	if _, err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	event, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() failed: %v", err)
	}
	if event.Fields["type"].GetStringValue() != pubsub.EventDatasetRefreshed {
		t.Errorf("expected %s, got %v", pubsub.EventDatasetRefreshed, event)
	}
	if n := event.Fields["payload"].GetStructValue().Fields["players"].GetNumberValue(); n != 3 {
		t.Errorf("expected 3 players in payload, got %v", n)
	}
}
