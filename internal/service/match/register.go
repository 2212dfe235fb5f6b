package match

import (
	"google.golang.org/grpc"

	"github.com/oggyb/muzz-match/internal/rpc/matchrpc"
)

// Registrar ties the Match service into the gRPC server
type Registrar struct {
	engine *Engine
}

// NewRegistrar creates a new Registrar for the Match service
func NewRegistrar(engine *Engine) *Registrar {
	return &Registrar{engine: engine}
}

// Register attaches the Match service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	matchrpc.RegisterMatchServiceServer(s, NewHandler(r.engine))
}
