package jobsync

import (
	"github.com/domonda/golog"
	rootlog "github.com/domonda/golog/log"
)

var log = rootlog.NewPackageLogger("jobsync")

func OverrideLogger(logger *golog.Logger) {
	log = logger
}
