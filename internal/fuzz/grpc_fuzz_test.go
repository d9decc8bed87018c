package fuzz

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcserver "github.com/Billy-Davies-2/seal-tracker/internal/grpc"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// FuzzGRPCQuery fuzzes the gRPC Query request fields
func FuzzGRPCQuery(f *testing.F) {
	f.Add("all", "ratio", "limited", 1.0, 50.0)
	f.Add("200", "price", "rare", 3.0, 1.0)
	f.Add("nope", "x", "gold", -1.0, 0.5)

	svc := loadedService(f)
	server := grpcserver.NewServer(svc, models.DefaultViewState())

	f.Fuzz(func(t *testing.T, tier, sort, cardType string, page, pageSize float64) {
		req, err := structpb.NewStruct(map[string]interface{}{
			"tier":     tier,
			"sort":     sort,
			"cardType": cardType,
			"page":     page,
			"pageSize": pageSize,
		})
		if err != nil {
			return
		}

		_, err = server.Query(context.Background(), req)
		if err != nil && status.Code(err) != codes.InvalidArgument {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// FuzzGRPCGetPlayer fuzzes player lookup by slug
func FuzzGRPCGetPlayer(f *testing.F) {
	f.Add("pedro-gonzalez-lopez")
	f.Add("")
	f.Add("../../etc/passwd")

	svc := loadedService(f)
	server := grpcserver.NewServer(svc, models.DefaultViewState())

	f.Fuzz(func(t *testing.T, slug string) {
		req, err := structpb.NewStruct(map[string]interface{}{"slug": slug})
		if err != nil {
			return
		}
		_, err = server.GetPlayer(context.Background(), req)
		switch status.Code(err) {
		case codes.OK, codes.NotFound, codes.InvalidArgument:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
