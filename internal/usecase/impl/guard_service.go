package impl

import (
	"context"
	"log/slog"

	deliverycontext "warden/internal/delivery/context"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/policy"
	"warden/internal/domain/service"
	"warden/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type guardService struct {
	tokenService service.TokenService
	policy       policy.Table
	logger       *slog.Logger
}

// GuardServiceParams holds dependencies for GuardService, injected by Fx.
type GuardServiceParams struct {
	fx.In

	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewGuardService creates the guard backed by the default policy table.
func NewGuardService(params GuardServiceParams) usecase.GuardUsecase {
	return &guardService{
		tokenService: params.TokenService,
		policy:       policy.Default,
		logger:       params.Logger,
	}
}

func (srv *guardService) Authenticate(ctx context.Context, token string) (entity.AuthContext, error) {
	if token == "" {
		return entity.AuthContext{}, errors.Wrap(domainerrors.ErrUnauthenticated, "no token presented")
	}

	claims, err := srv.tokenService.Verify(token, entity.TokenKindAccess)
	if err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, srv.logger).Debug("Access token rejected", slog.Any("error", err))

		return entity.AuthContext{}, errors.Wrap(domainerrors.ErrUnauthenticated, err.Error())
	}

	return entity.AuthContext{SubjectID: claims.SubjectID, Role: claims.Role}, nil
}

func (srv *guardService) Authorize(ac entity.AuthContext, op policy.Operation) error {
	if ac.IsZero() {
		return errors.Wrap(domainerrors.ErrUnauthenticated, "no identity on request")
	}

	return srv.policy.Authorize(op, ac.Role)
}
