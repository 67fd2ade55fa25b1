package capacity

import (
	"github.com/prelimth/examgate/internal/capacity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("capacity",
	fx.Provide(repository.Provide),
)
