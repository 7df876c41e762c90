package jobgraph

import (
	"github.com/domonda/golog"
	rootlog "github.com/domonda/golog/log"
)

var log = rootlog.NewPackageLogger("jobgraph")

func OverrideLogger(logger *golog.Logger) {
	log = logger
}
