package examcode

import (
	"github.com/prelimth/examgate/internal/examcode/repository"
	"github.com/prelimth/examgate/internal/examcode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("examcode",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewIssuer),
)
