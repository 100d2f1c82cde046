package api

import (
	"context"
	"strings"
	"time"

	"holidayrent/internal/models"
	"holidayrent/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const availabilityServiceName = "holidayrent.availability.v1.AvailabilityService"

const (
	methodCheckAvailability = "/" + availabilityServiceName + "/CheckAvailability"
	methodQuotePrice        = "/" + availabilityServiceName + "/QuotePrice"
)

// StayQuoter checks and prices stays.
type StayQuoter interface {
	Quote(ctx context.Context, propertyID string, checkIn, checkOut time.Time, guests int) (*service.StayQuote, error)
}

// AvailabilityServer is the partner-facing availability API. Requests and
// responses are google.protobuf.Struct messages.
type AvailabilityServer interface {
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	QuotePrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: unaryStructHandler(methodCheckAvailability, AvailabilityServer.CheckAvailability)},
		{MethodName: "QuotePrice", Handler: unaryStructHandler(methodQuotePrice, AvailabilityServer.QuotePrice)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "holidayrent/availability/v1/availability.proto",
}

func unaryStructHandler(
	fullMethod string,
	call func(AvailabilityServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AvailabilityServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AvailabilityServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterAvailabilityServer registers srv on s.
func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

type AvailabilityService struct {
	quoter StayQuoter
}

func NewAvailabilityService(quoter StayQuoter) *AvailabilityService {
	return &AvailabilityService{quoter: quoter}
}

type stayRequest struct {
	propertyID string
	checkIn    time.Time
	checkOut   time.Time
	guests     int
}

func parseStayRequest(req *structpb.Struct) (stayRequest, error) {
	fields := req.GetFields()
	str := func(name string) string {
		return strings.TrimSpace(fields[name].GetStringValue())
	}

	out := stayRequest{propertyID: str("property_id")}
	if out.propertyID == "" {
		return out, status.Error(codes.InvalidArgument, "property_id is required")
	}
	if str("check_in") == "" || str("check_out") == "" {
		return out, status.Error(codes.InvalidArgument, "check_in and check_out are required")
	}

	var err error
	if out.checkIn, err = models.ParseDate(str("check_in")); err != nil {
		return out, status.Error(codes.InvalidArgument, "invalid check_in; expected YYYY-MM-DD")
	}
	if out.checkOut, err = models.ParseDate(str("check_out")); err != nil {
		return out, status.Error(codes.InvalidArgument, "invalid check_out; expected YYYY-MM-DD")
	}
	if g, ok := fields["guests"]; ok {
		out.guests = int(g.GetNumberValue())
		if out.guests < 0 {
			return out, status.Error(codes.InvalidArgument, "guests must not be negative")
		}
	}
	return out, nil
}

func (s *AvailabilityService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := parseStayRequest(req)
	if err != nil {
		return nil, err
	}
	q, err := s.quoter.Quote(ctx, in.propertyID, in.checkIn, in.checkOut, in.guests)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"property_id": q.PropertyID,
		"check_in":    models.FormatDate(q.CheckIn),
		"check_out":   models.FormatDate(q.CheckOut),
		"nights":      q.Nights,
		"available":   q.Available,
		"total_price": q.TotalPrice,
	})
}

// QuotePrice prices a stay regardless of whether the dates are free.
func (s *AvailabilityService) QuotePrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := parseStayRequest(req)
	if err != nil {
		return nil, err
	}
	q, err := s.quoter.Quote(ctx, in.propertyID, in.checkIn, in.checkOut, in.guests)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"property_id": q.PropertyID,
		"nights":      q.Nights,
		"total_price": q.TotalPrice,
	})
}
