package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/seal-tracker/internal/logger"
	"github.com/Billy-Davies-2/seal-tracker/internal/models"
	"github.com/Billy-Davies-2/seal-tracker/internal/pubsub"
	"github.com/Billy-Davies-2/seal-tracker/internal/service"
	"github.com/Billy-Davies-2/seal-tracker/internal/source"
)

// Server implements the gRPC TableService
type Server struct {
	svc      *service.SealService
	defaults models.ViewState
}

// NewServer creates a new gRPC server
func NewServer(svc *service.SealService, defaults models.ViewState) *Server {
	return &Server{
		svc:      svc,
		defaults: defaults,
	}
}

// Query runs one table view. Request fields use the HTTP query parameter
// names; strings, numbers and booleans are accepted.
func (s *Server) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	values, err := structToValues(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	vs, err := models.ParseViewQuery(values, s.defaults)
	if err != nil {
		logger.Warn("gRPC: Invalid query", "error", err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.svc.Query(vs)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(result)
}

// GetPlayer returns one player by {"slug": ...}
func (s *Server) GetPlayer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	slug := req.GetFields()["slug"].GetStringValue()
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug is required")
	}

	rec, err := s.svc.Player(slug)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(rec)
}

// Summary describes the current snapshot
func (s *Server) Summary(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	sum, err := s.svc.Summary()
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(sum)
}

// Refresh fetches a new snapshot now
func (s *Server) Refresh(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	logger.Info("gRPC: Manual refresh requested")
	result, err := s.svc.Refresh(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(result)
}

// WatchEvents streams refresh events. The first message is a "connected"
// event so clients know the subscription is live.
func (s *Server) WatchEvents(req *emptypb.Empty, stream TableService_WatchEventsServer) error {
	bus := s.svc.Bus()
	if bus == nil {
		return status.Error(codes.Unavailable, "events are disabled")
	}

	logger.Debug("gRPC: New client connected to event stream")
	eventChan := bus.Subscribe()
	defer bus.Unsubscribe(eventChan)

	if err := stream.Send(eventStruct(pubsub.Event{Type: "connected"})); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			if err := stream.Send(eventStruct(event)); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidView):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPlayerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrNotLoaded), errors.Is(err, source.ErrSourceUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	}
	logger.Error("gRPC: Request failed", "error", err)
	return status.Error(codes.Internal, err.Error())
}

// toStruct goes through JSON so the wire shape matches the HTTP API
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func eventStruct(event pubsub.Event) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"type": structpb.NewStringValue(event.Type),
	}
	if event.Origin != "" {
		fields["origin"] = structpb.NewStringValue(event.Origin)
	}
	if !event.At.IsZero() {
		fields["at"] = structpb.NewStringValue(event.At.Format("2006-01-02T15:04:05.000Z07:00"))
	}
	if len(event.Payload) > 0 {
		payload := make(map[string]*structpb.Value, len(event.Payload))
		for k, v := range event.Payload {
			value, err := structpb.NewValue(v)
			if err != nil {
				value = structpb.NewStringValue(fmt.Sprint(v))
			}
			payload[k] = value
		}
		fields["payload"] = structpb.NewStructValue(&structpb.Struct{Fields: payload})
	}
	return &structpb.Struct{Fields: fields}
}

func structToValues(req *structpb.Struct) (url.Values, error) {
	values := url.Values{}
	for name, v := range req.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			values.Set(name, kind.StringValue)
		case *structpb.Value_NumberValue:
			values.Set(name, strconv.FormatFloat(kind.NumberValue, 'f', -1, 64))
		case *structpb.Value_BoolValue:
			values.Set(name, strconv.FormatBool(kind.BoolValue))
		default:
			return nil, fmt.Errorf("field %q must be a string, number or bool", name)
		}
	}
	return values, nil
}
