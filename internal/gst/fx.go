package gst

import (
	"github.com/smallbiznis/ledgercraft/internal/gst/repository"
	"github.com/smallbiznis/ledgercraft/internal/gst/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gst.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
