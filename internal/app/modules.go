package app

import (
	"github.com/specialistvlad/officegrid/internal/registry"
	"github.com/specialistvlad/officegrid/modules/env_vars"
	"github.com/specialistvlad/officegrid/modules/fail"
	"github.com/specialistvlad/officegrid/modules/http_client"
	"github.com/specialistvlad/officegrid/modules/log_governance"
	"github.com/specialistvlad/officegrid/modules/print"
	"github.com/specialistvlad/officegrid/modules/s3"
	"github.com/specialistvlad/officegrid/modules/socketio_client"
	"github.com/specialistvlad/officegrid/modules/ticker"
)

// coreModules is the definitive list of all modules that are compiled into
// the officegrid binary.
var coreModules = []registry.Module{
	&env_vars.Module{},
	&fail.Module{},
	&http_client.Module{},
	&log_governance.Module{},
	&print.Module{},
	&s3.Module{},
	&socketio_client.Module{},
	&ticker.Module{},
}
