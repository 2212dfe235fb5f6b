package chat

import (
	"google.golang.org/grpc"

	"github.com/oggyb/muzz-match/internal/rpc/chatrpc"
)

// Registrar ties the Chat service into the gRPC server
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the Chat service
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the Chat service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	chatrpc.RegisterChatServiceServer(s, NewHandler(r.svc))
}
