package grpcserver

import (
	"context"
	"errors"

	"moviebox-restful/interceptors"
	"moviebox-restful/repositories"
	"moviebox-restful/serializers"
	"moviebox-restful/services"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type sessionServiceServer struct {
	users  services.UserService
	movies services.MovieService
	items  services.ItemService
}

var _ SessionServiceServer = (*sessionServiceServer)(nil)

func NewSessionServiceServer(users services.UserService, movies services.MovieService, items services.ItemService) SessionServiceServer {
	return &sessionServiceServer{users: users, movies: movies, items: items}
}

func (s *sessionServiceServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, ok := interceptors.GetUserIDFromContext(ctx)
	if !ok {
		return structpb.NewStruct(map[string]interface{}{"user": nil})
	}
	user, err := s.users.GetByID(ctx, userID)
	if services.IsKind(err, services.KindNotFound) {
		return structpb.NewStruct(map[string]interface{}{"user": nil})
	}
	if err != nil {
		return nil, toStatus(err)
	}

	repr := serializers.User(user)
	return structpb.NewStruct(map[string]interface{}{
		"user": map[string]interface{}{
			"id":           repr.ID,
			"username":     repr.Username,
			"email":        repr.Email,
			"display_name": repr.DisplayName,
			"avatar_url":   repr.AvatarURL,
		},
	})
}

func (s *sessionServiceServer) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	byGenre, err := s.movies.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	byTag, err := s.items.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]interface{}{
		"by_genre": countList(byGenre),
		"by_tag":   countList(byTag),
	})
}

func countList(counts []repositories.LabelCount) []interface{} {
	out := make([]interface{}, len(counts))
	for i, c := range counts {
		out[i] = map[string]interface{}{"name": c.Name, "count": c.Count}
	}
	return out
}

// toStatus maps service error kinds onto gRPC codes.
func toStatus(err error) error {
	var se *services.Error
	if !errors.As(err, &se) {
		return status.Error(codes.Internal, "internal server error")
	}
	switch se.Kind {
	case services.KindNotFound:
		return status.Error(codes.NotFound, se.Message)
	case services.KindAuthorization:
		return status.Error(codes.PermissionDenied, se.Message)
	case services.KindAuthentication:
		return status.Error(codes.Unauthenticated, se.Message)
	default:
		return status.Error(codes.InvalidArgument, se.Message)
	}
}
