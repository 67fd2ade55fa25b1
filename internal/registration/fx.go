package registration

import (
	"github.com/prelimth/examgate/internal/cache"
	examcodedomain "github.com/prelimth/examgate/internal/examcode/domain"
	"github.com/prelimth/examgate/internal/registration/service"
	pkgrepository "github.com/prelimth/examgate/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("registration",
	fx.Provide(cache.NewStatusCache),
	fx.Provide(pkgrepository.ProvideStore[examcodedomain.ExamCode]),
	fx.Provide(service.New),
)
