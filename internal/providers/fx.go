package providers

import (
	"github.com/smallbiznis/glazeops/internal/providers/email"
	"github.com/smallbiznis/glazeops/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
