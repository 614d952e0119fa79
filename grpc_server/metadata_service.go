package grpcserver

import (
	"context"
	"encoding/json"

	"custombuttons-restful/services"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// MetadataServiceName is the fully qualified gRPC service name.
const MetadataServiceName = "custombuttons.v1.CustomButtonMetadata"

// OptionsMethod is the full method name of the Options RPC.
const OptionsMethod = "/" + MetadataServiceName + "/Options"

// MetadataServer serves the custom button metadata document over gRPC. The
// messages are well-known protobuf types, so no generated code is needed.
type MetadataServer interface {
	Options(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// MetadataServiceDesc describes the service for grpc.Server.RegisterService.
var MetadataServiceDesc = grpc.ServiceDesc{
	ServiceName: MetadataServiceName,
	HandlerType: (*MetadataServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Options", Handler: optionsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "custombuttons/v1/metadata.proto",
}

// RegisterMetadataServer registers srv on s.
func RegisterMetadataServer(s grpc.ServiceRegistrar, srv MetadataServer) {
	s.RegisterService(&MetadataServiceDesc, srv)
}

func optionsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MetadataServer).Options(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OptionsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MetadataServer).Options(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// metadataServiceServer exposes services.MetadataService.
type metadataServiceServer struct {
	metadata services.MetadataService
}

// NewMetadataServiceServer creates a gRPC metadata server.
func NewMetadataServiceServer(metadata services.MetadataService) MetadataServer {
	return &metadataServiceServer{metadata: metadata}
}

// Options returns the same document as OPTIONS /api/custom_buttons.
func (s *metadataServiceServer) Options(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	doc, err := s.metadata.Options(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build options document: %v", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode options document: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "convert options document: %v", err)
	}
	return out, nil
}
