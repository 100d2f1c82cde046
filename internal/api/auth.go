package api

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"holidayrent/internal/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	permReadAvailability = "read:availability"
	permReadPricing      = "read:pricing"
	unknownClient        = "unknown"
	requestIDMetadataKey = "x-request-id"
)

// partnerKey is a configured API client. An empty permission set grants
// every method.
type partnerKey struct {
	extra       []byte
	permissions map[string]struct{}
}

func (k partnerKey) allows(permission string) bool {
	if permission == "" || len(k.permissions) == 0 {
		return true
	}
	_, ok := k.permissions[permission]
	return ok
}

// AuthInterceptor guards the partner gRPC API with static API keys and a
// per-client rate limit.
type AuthInterceptor struct {
	enabled     bool
	checkKeys   bool
	keyHeader   string
	extraHeader string
	keys        map[string]partnerKey
	limiter     *rateLimiter
}

func NewAuthInterceptor(cfg *config.APIConfig) *AuthInterceptor {
	keys := make(map[string]partnerKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		perms := make(map[string]struct{}, len(k.Permissions))
		for _, p := range k.Permissions {
			if p = strings.TrimSpace(p); p != "" {
				perms[p] = struct{}{}
			}
		}
		keys[k.Key] = partnerKey{extra: []byte(k.Extra), permissions: perms}
	}

	return &AuthInterceptor{
		enabled:     cfg.Enabled,
		checkKeys:   cfg.Auth.Enabled,
		keyHeader:   headerOrDefault(cfg.Auth.HeaderAPIKey, "x-api-key"),
		extraHeader: headerOrDefault(cfg.Auth.HeaderExtra, "x-api-extra"),
		keys:        keys,
		limiter:     newRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}
}

func headerOrDefault(h, def string) string {
	if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
		return h
	}
	return def
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !a.enabled || publicMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		if a.checkKeys {
			if err := a.authorize(md, info.FullMethod); err != nil {
				return nil, err
			}
		}
		if !a.limiter.allow(a.clientKey(ctx, md)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(ctx, req)
	}
}

func (a *AuthInterceptor) authorize(md metadata.MD, fullMethod string) error {
	if md == nil {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}

	apiKey := first(md.Get(a.keyHeader))
	extra := first(md.Get(a.extraHeader))
	if apiKey == "" || extra == "" {
		return status.Error(codes.Unauthenticated, "missing api key headers")
	}

	key, ok := a.keys[apiKey]
	if !ok {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	if subtle.ConstantTimeCompare(key.extra, []byte(extra)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid extra header")
	}
	if !key.allows(requiredPermission(fullMethod)) {
		return status.Error(codes.PermissionDenied, "permission denied")
	}
	return nil
}

// publicMethod reports whether fullMethod is infrastructure that needs no key.
func publicMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/") ||
		strings.HasPrefix(fullMethod, "/grpc.reflection.")
}

func requiredPermission(fullMethod string) string {
	switch fullMethod {
	case methodCheckAvailability:
		return permReadAvailability
	case methodQuotePrice:
		return permReadPricing
	default:
		return ""
	}
}

// clientKey buckets rate limiting by API key, or by peer address for
// anonymous callers.
func (a *AuthInterceptor) clientKey(ctx context.Context, md metadata.MD) string {
	if apiKey := first(md.Get(a.keyHeader)); apiKey != "" {
		return apiKey
	}
	return peerAddr(ctx)
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return unknownClient
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// LoggingUnaryInterceptor logs one line per call and echoes the request id
// back in the response header.
func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		event := base.Info()
		if code != codes.OK {
			event = base.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", peerAddr(ctx)).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc request")

		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if id := first(md.Get(requestIDMetadataKey)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
