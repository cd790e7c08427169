package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mcdev12/turnbid/go/internal/archive"
	"github.com/mcdev12/turnbid/go/internal/auction"
)

const ServiceName = "turnbid.admin.v1.AdminService"

// Procedure paths served by Handler
const (
	ListAuctionsProcedure = "/" + ServiceName + "/ListAuctions"
	GetAuctionProcedure   = "/" + ServiceName + "/GetAuction"
	GetStatsProcedure     = "/" + ServiceName + "/GetStats"
	ListResultsProcedure  = "/" + ServiceName + "/ListResults"
)

const defaultResultLimit = 50

// Engine is the read side of the auction engine
type Engine interface {
	List() []auction.AuctionSnapshot
	Snapshot(auctionID string) (auction.AuctionSnapshot, error)
	Stats() auction.Stats
}

// ResultLister reads archived results
type ResultLister interface {
	ListResults(ctx context.Context, limit int32) ([]archive.Result, error)
}

// Service is a read-only Connect RPC view of live auctions
type Service struct {
	engine  Engine
	results ResultLister
}

// NewService creates the admin service. results may be nil when the
// archive is disabled.
func NewService(engine Engine, results ResultLister) *Service {
	return &Service{engine: engine, results: results}
}

// Handler returns the path prefix and handler to mount on a mux
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ListAuctionsProcedure, connect.NewUnaryHandler(ListAuctionsProcedure, s.ListAuctions, opts...))
	mux.Handle(GetAuctionProcedure, connect.NewUnaryHandler(GetAuctionProcedure, s.GetAuction, opts...))
	mux.Handle(GetStatsProcedure, connect.NewUnaryHandler(GetStatsProcedure, s.GetStats, opts...))
	mux.Handle(ListResultsProcedure, connect.NewUnaryHandler(ListResultsProcedure, s.ListResults, opts...))
	return "/" + ServiceName + "/", mux
}

// ListAuctions returns every open auction, oldest first
func (s *Service) ListAuctions(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return respond(map[string]interface{}{"auctions": s.engine.List()})
}

// GetAuction returns one open auction by id
func (s *Service) GetAuction(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
	if req.Msg.GetValue() == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auction.ErrAuctionIDEmpty)
	}
	snap, err := s.engine.Snapshot(req.Msg.GetValue())
	if err != nil {
		if errors.Is(err, auction.ErrAuctionNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return respond(snap)
}

// GetStats returns engine counters
func (s *Service) GetStats(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return respond(s.engine.Stats())
}

// ListResults returns the most recently archived auctions
func (s *Service) ListResults(ctx context.Context, req *connect.Request[wrapperspb.Int32Value]) (*connect.Response[structpb.Struct], error) {
	if s.results == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("results archive is disabled"))
	}
	limit := req.Msg.GetValue()
	if limit <= 0 {
		limit = defaultResultLimit
	}
	results, err := s.results.ListResults(ctx, limit)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return respond(map[string]interface{}{"results": results})
}

// respond converts any JSON-tagged value to a Struct response
func respond(v interface{}) (*connect.Response[structpb.Struct], error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("marshal response: %w", err))
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("unmarshal response: %w", err))
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}
