package jobworker

import (
	"github.com/domonda/golog"
	rootlog "github.com/domonda/golog/log"
)

var log = rootlog.NewPackageLogger("jobworker")

func OverrideLogger(logger *golog.Logger) {
	log = logger
}
